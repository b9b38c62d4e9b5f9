package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationLine is the quantity taken from one source
type AllocationLine struct {
	Source   SourceKey       `json:"source"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Allocation is the result of a successful multi-source debit
type Allocation struct {
	Reference string           `json:"reference"`
	Lines     []AllocationLine `json:"lines"`
}

// Total returns the allocated quantity across all sources
func (a *Allocation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range a.Lines {
		total = total.Add(line.Quantity)
	}
	return total
}

// SourceBalance is a reporting view of one source
type SourceBalance struct {
	Key      SourceKey                  `json:"key"`
	Status   ContainerStatus            `json:"status,omitempty"`
	Carrier  string                     `json:"carrier,omitempty"`
	ETA      *time.Time                 `json:"eta,omitempty"`
	Eligible bool                       `json:"eligible"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
}

// DefaultRestoreBudget bounds how long a credit-back keeps retrying its store write
const DefaultRestoreBudget = 30 * time.Second

// maxAllocateAttempts bounds re-planning when a container leaves the eligible
// set between planning and debiting.
const maxAllocateAttempts = 3

// Ledger is the in-memory arena of stock sources. Every mutation holds the
// slot lock of each (source, product) it touches and is written through to the
// StockStore; a failed write reverts the arena. Credit-backs (Release, Restore)
// are the exception: they always land in the arena and retry the write.
type Ledger struct {
	mu            sync.RWMutex
	sources       map[SourceKey]StockSource
	store         StockStore
	locker        *KeyedLocker
	policy        EligibilityPolicy
	restoreBudget time.Duration
}

// LedgerOption configures a Ledger
type LedgerOption func(*Ledger)

// WithEligibilityPolicy sets which container statuses are allocatable
func WithEligibilityPolicy(p EligibilityPolicy) LedgerOption {
	return func(l *Ledger) {
		if len(p) > 0 {
			l.policy = p
		}
	}
}

// WithLocker sets the keyed locker used for slot serialization
func WithLocker(locker *KeyedLocker) LedgerOption {
	return func(l *Ledger) {
		if locker != nil {
			l.locker = locker
		}
	}
}

// WithRestoreBudget sets how long a credit-back retries a failing store write
func WithRestoreBudget(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.restoreBudget = d
		}
	}
}

// NewLedger creates an empty ledger holding only the warehouse and free zone
func NewLedger(store StockStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:         store,
		locker:        NewKeyedLocker(DefaultLockTimeout),
		policy:        DefaultEligibilityPolicy(),
		restoreBudget: DefaultRestoreBudget,
	}
	l.reset()
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) reset() {
	l.sources = map[SourceKey]StockSource{
		WarehouseKey: &Warehouse{holdings: holdings{}},
		FreeZoneKey:  &FreeZone{holdings: holdings{}},
	}
}

// Policy returns the eligibility policy in force
func (l *Ledger) Policy() EligibilityPolicy {
	return l.policy
}

// Load rebuilds the arena from the store
func (l *Ledger) Load(ctx context.Context) error {
	state, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load stock state: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset()
	for _, rec := range state.Containers {
		l.sources[ContainerKey(rec.ID)] = &Container{
			ID:        rec.ID,
			Carrier:   rec.Carrier,
			ETA:       rec.ETA,
			Status:    rec.Status,
			CreatedAt: rec.CreatedAt,
			holdings:  holdings{},
		}
	}
	for _, h := range state.Holdings {
		src, ok := l.sources[h.Source]
		if !ok {
			return fmt.Errorf("load stock state: holding for unknown source %s", h.Source)
		}
		if h.Quantity.IsNegative() {
			return fmt.Errorf("load stock state: negative holding of %s at %s", h.Reference, h.Source)
		}
		holdingsOf(src).set(h.Reference, h.Quantity)
	}
	return nil
}

// AvailableQuantity sums the product over every eligible source
func (l *Ledger) AvailableQuantity(_ context.Context, reference string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := decimal.Zero
	for _, src := range l.sources {
		if src.Eligible(l.policy) {
			total = total.Add(src.QuantityOf(reference))
		}
	}
	return total
}

// QuantityAt returns the quantity held at one source regardless of eligibility
func (l *Ledger) QuantityAt(key SourceKey, reference string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src, ok := l.sources[key]
	if !ok {
		return decimal.Zero, shared.NewDomainErrorf(shared.CodeNotFound, "Stock source %s not found", key)
	}
	return src.QuantityOf(reference), nil
}

// Snapshot reports every source, including containers that are not eligible
func (l *Ledger) Snapshot() []SourceBalance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]SourceBalance, 0, len(l.sources))
	for key, src := range l.sources {
		b := SourceBalance{
			Key:      key,
			Eligible: src.Eligible(l.policy),
			Holdings: holdingsOf(src).clone(),
		}
		if c, ok := src.(*Container); ok {
			eta := c.ETA
			b.Status = c.Status
			b.Carrier = c.Carrier
			b.ETA = &eta
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Container returns the persisted view of a container
func (l *Ledger) Container(id string) (ContainerRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.sources[ContainerKey(id)].(*Container)
	if !ok {
		return ContainerRecord{}, shared.NewDomainErrorf(shared.CodeNotFound, "Container %s not found", id)
	}
	return c.record(), nil
}

// EligibleContainers returns the keys of allocatable containers ordered by ETA
func (l *Ledger) EligibleContainers() []SourceKey {
	l.mu.RLock()
	defer l.mu.RUnlock()
	containers := make([]*Container, 0)
	for _, src := range l.sources {
		if c, ok := src.(*Container); ok && c.Eligible(l.policy) {
			containers = append(containers, c)
		}
	}
	sort.Slice(containers, func(i, j int) bool {
		if !containers[i].ETA.Equal(containers[j].ETA) {
			return containers[i].ETA.Before(containers[j].ETA)
		}
		return containers[i].ID < containers[j].ID
	})
	keys := make([]SourceKey, len(containers))
	for i, c := range containers {
		keys[i] = c.Key()
	}
	return keys
}

// RegisterContainer adds a container to the arena
func (l *Ledger) RegisterContainer(ctx context.Context, c *Container) error {
	if c.Status == "" {
		c.Status = ContainerStatusInProduction
	}
	if !c.Status.IsValid() {
		return shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown container status %q", c.Status)
	}
	if c.holdings == nil {
		c.holdings = holdings{}
	}

	release, err := l.locker.Acquire(ctx, containerLockKey(c.ID))
	if err != nil {
		return err
	}
	defer release()

	l.mu.RLock()
	_, exists := l.sources[c.Key()]
	l.mu.RUnlock()
	if exists {
		return shared.NewDomainErrorf(shared.CodeAlreadyExists, "Container %s already registered", c.ID)
	}

	if err := l.store.SaveContainer(context.WithoutCancel(ctx), c.record()); err != nil {
		return fmt.Errorf("save container %s: %w", c.ID, err)
	}
	l.mu.Lock()
	l.sources[c.Key()] = c
	l.mu.Unlock()
	return nil
}

// AdvanceContainerStatus moves a container along its shipping lifecycle
func (l *Ledger) AdvanceContainerStatus(ctx context.Context, id string, status ContainerStatus) (ContainerRecord, error) {
	release, err := l.locker.Acquire(ctx, containerLockKey(id))
	if err != nil {
		return ContainerRecord{}, err
	}
	defer release()
	ctx = context.WithoutCancel(ctx)

	l.mu.Lock()
	c, ok := l.sources[ContainerKey(id)].(*Container)
	if !ok {
		l.mu.Unlock()
		return ContainerRecord{}, shared.NewDomainErrorf(shared.CodeNotFound, "Container %s not found", id)
	}
	if !c.Status.CanTransitionTo(status) {
		from := c.Status
		l.mu.Unlock()
		return ContainerRecord{}, shared.NewDomainErrorf(shared.CodeInvalidStatusTransition,
			"Cannot move container %s from %s to %s", id, from, status)
	}
	previous := c.Status
	c.Status = status
	rec := c.record()
	l.mu.Unlock()

	if err := l.store.SaveContainer(ctx, rec); err != nil {
		l.mu.Lock()
		c.Status = previous
		l.mu.Unlock()
		return ContainerRecord{}, fmt.Errorf("save container %s: %w", id, err)
	}
	return rec, nil
}

// Debit removes quantity from one source. Insufficient stock leaves the source untouched.
func (l *Ledger) Debit(ctx context.Context, key SourceKey, reference string, qty decimal.Decimal) error {
	return l.single(ctx, key, reference, qty, true)
}

// Credit returns quantity to one source
func (l *Ledger) Credit(ctx context.Context, key SourceKey, reference string, qty decimal.Decimal) error {
	return l.single(ctx, key, reference, qty, false)
}

// Receive adds newly arrived stock to a source
func (l *Ledger) Receive(ctx context.Context, key SourceKey, reference string, qty decimal.Decimal) error {
	return l.single(ctx, key, reference, qty, false)
}

func (l *Ledger) single(ctx context.Context, key SourceKey, reference string, qty decimal.Decimal, debit bool) error {
	if !qty.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	release, err := l.locker.Acquire(ctx, key.SlotKey(reference))
	if err != nil {
		return err
	}
	defer release()

	delta := qty
	if debit {
		delta = qty.Neg()
	}
	return l.apply(context.WithoutCancel(ctx), []step{{key: key, reference: reference, delta: delta}})
}

// Restore credits quantity back to a source on behalf of an undone debit. It
// waits for the slot however long it is held and never reverts the arena; a
// store write still failing after the restore budget is returned, and the next
// write to the slot persists the balance.
func (l *Ledger) Restore(ctx context.Context, key SourceKey, reference string, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	release := l.locker.AcquireAll(key.SlotKey(reference))
	defer release()
	return l.restore(context.WithoutCancel(ctx), []step{{key: key, reference: reference, delta: qty}})
}

// ResolveOrder expands a preference list into concrete source keys. A
// container entry without an ID stands for every eligible container by ETA.
func (l *Ledger) ResolveOrder(order []SourceKey) ([]SourceKey, error) {
	seen := make(map[SourceKey]struct{}, len(order))
	out := make([]SourceKey, 0, len(order))
	add := func(k SourceKey) {
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	for _, k := range order {
		if !k.Type.IsValid() {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown source type %q", k.Type)
		}
		if k.Type == SourceTypeContainer && k.ID == "" {
			for _, c := range l.EligibleContainers() {
				add(c)
			}
			continue
		}
		if k.Type != SourceTypeContainer {
			k.ID = SingletonID
		}
		l.mu.RLock()
		_, ok := l.sources[k]
		l.mu.RUnlock()
		if !ok {
			return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Stock source %s not found", k)
		}
		add(k)
	}
	if len(out) == 0 {
		return nil, shared.NewDomainError(shared.CodeInsufficientStock, "No eligible stock source to allocate from")
	}
	return out, nil
}

// Allocate debits qty of the product greedily across sources in the given
// order. Either the whole quantity is debited and persisted or nothing changes.
// Cancellation of ctx is honoured only while waiting for slot locks.
func (l *Ledger) Allocate(ctx context.Context, reference string, qty decimal.Decimal, order []SourceKey) (*Allocation, error) {
	if !qty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	keys, err := l.ResolveOrder(order)
	if err != nil {
		return nil, err
	}

	slots := make([]string, len(keys))
	for i, k := range keys {
		slots[i] = k.SlotKey(reference)
	}
	release, err := l.locker.Acquire(ctx, slots...)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx = context.WithoutCancel(ctx)

	// Container status is not covered by the slot locks, so each debit
	// re-checks eligibility and a lost race re-plans without that container.
	for attempt := 1; ; attempt++ {
		steps, allocation, remaining := l.plan(reference, qty, keys)
		if remaining.IsPositive() {
			return nil, shared.NewDomainErrorf(shared.CodeInsufficientStock,
				"Insufficient stock of %s: requested %s, available %s", reference, qty, qty.Sub(remaining))
		}
		err := l.apply(ctx, steps)
		if err == nil {
			return allocation, nil
		}
		if !errors.Is(err, errIneligible) {
			return nil, err
		}
		if attempt == maxAllocateAttempts {
			return nil, shared.NewDomainErrorf(shared.CodeBusy, "Stock sources of %s keep changing, retry later", reference)
		}
	}
}

func (l *Ledger) plan(reference string, qty decimal.Decimal, keys []SourceKey) ([]step, *Allocation, decimal.Decimal) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	allocation := &Allocation{Reference: reference}
	steps := make([]step, 0, len(keys))
	remaining := qty
	for _, key := range keys {
		if !remaining.IsPositive() {
			break
		}
		src, ok := l.sources[key]
		if !ok || !src.Eligible(l.policy) {
			continue
		}
		take := decimal.Min(src.QuantityOf(reference), remaining)
		if !take.IsPositive() {
			continue
		}
		steps = append(steps, step{key: key, reference: reference, delta: take.Neg(), eligible: true})
		allocation.Lines = append(allocation.Lines, AllocationLine{Source: key, Quantity: take})
		remaining = remaining.Sub(take)
	}
	return steps, allocation, remaining
}

// Release credits every line of a previous allocation back to its source. It
// has the same guarantees as Restore.
func (l *Ledger) Release(ctx context.Context, allocation *Allocation) error {
	if allocation == nil || len(allocation.Lines) == 0 {
		return nil
	}
	slots := make([]string, len(allocation.Lines))
	steps := make([]step, len(allocation.Lines))
	for i, line := range allocation.Lines {
		slots[i] = line.Source.SlotKey(allocation.Reference)
		steps[i] = step{key: line.Source, reference: allocation.Reference, delta: line.Quantity}
	}
	release := l.locker.AcquireAll(slots...)
	defer release()
	return l.restore(context.WithoutCancel(ctx), steps)
}

type step struct {
	key       SourceKey
	reference string
	delta     decimal.Decimal
	// eligible requires the source to still be allocatable when debited
	eligible bool
}

var errIneligible = errors.New("stock source is no longer eligible")

// apply runs the steps as a local saga: each applied step is logged and on any
// failure, including the store write, the log is undone in reverse order.
// Callers hold the slot locks of every step.
func (l *Ledger) apply(ctx context.Context, steps []step) error {
	applied := make([]Movement, 0, len(steps))
	for _, s := range steps {
		m, err := l.mutate(s.key, s.reference, s.delta, s.eligible)
		if err != nil {
			l.compensate(applied)
			return err
		}
		applied = append(applied, m)
	}
	if err := l.store.Apply(ctx, applied); err != nil {
		l.compensate(applied)
		return fmt.Errorf("persist stock movements: %w", err)
	}
	return nil
}

func (l *Ledger) compensate(applied []Movement) {
	for i := len(applied) - 1; i >= 0; i-- {
		m := applied[i]
		_, _ = l.mutate(m.Source, m.Reference, m.Delta.Neg(), false)
	}
}

// restore applies credits to the arena unconditionally and retries the store
// write with exponential backoff until it succeeds or the budget runs out.
// Callers hold the slot locks of every step.
func (l *Ledger) restore(ctx context.Context, steps []step) error {
	applied := make([]Movement, 0, len(steps))
	for _, s := range steps {
		m, err := l.mutate(s.key, s.reference, s.delta, false)
		if err != nil {
			return err
		}
		applied = append(applied, m)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = l.restoreBudget
	if err := backoff.Retry(func() error {
		return l.store.Apply(ctx, applied)
	}, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("persist restored stock: %w", err)
	}
	return nil
}

func (l *Ledger) mutate(key SourceKey, reference string, delta decimal.Decimal, eligible bool) (Movement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.sources[key]
	if !ok {
		return Movement{}, shared.NewDomainErrorf(shared.CodeNotFound, "Stock source %s not found", key)
	}
	if eligible && !src.Eligible(l.policy) {
		return Movement{}, fmt.Errorf("debit %s: %w", key, errIneligible)
	}
	h := holdingsOf(src)
	held := h.quantityOf(reference)
	next := held.Add(delta)
	if next.IsNegative() {
		return Movement{}, shared.NewDomainErrorf(shared.CodeInsufficientStock,
			"Insufficient stock of %s at %s: held %s, requested %s", reference, key, held, delta.Neg())
	}
	h.set(reference, next)
	return Movement{Source: key, Reference: reference, Delta: delta, Balance: next}, nil
}

func (c *Container) record() ContainerRecord {
	return ContainerRecord{
		ID:        c.ID,
		Carrier:   c.Carrier,
		ETA:       c.ETA,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
	}
}

func containerLockKey(id string) string {
	return "container-status:" + id
}
