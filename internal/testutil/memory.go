package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/sales"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// MemoryStockStore is an in-memory stock.StockStore.
type MemoryStockStore struct {
	mu         sync.Mutex
	containers map[string]stock.ContainerRecord
	holdings   map[stock.SourceKey]map[string]decimal.Decimal
	applyErr   error
}

// NewMemoryStockStore creates an empty store.
func NewMemoryStockStore() *MemoryStockStore {
	return &MemoryStockStore{
		containers: map[string]stock.ContainerRecord{},
		holdings:   map[stock.SourceKey]map[string]decimal.Decimal{},
	}
}

// Load returns the stored state.
func (s *MemoryStockStore) Load(context.Context) (*stock.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := &stock.State{}
	for _, c := range s.containers {
		state.Containers = append(state.Containers, c)
	}
	for key, refs := range s.holdings {
		for ref, qty := range refs {
			state.Holdings = append(state.Holdings, stock.Holding{Source: key, Reference: ref, Quantity: qty})
		}
	}
	return state, nil
}

// SaveContainer upserts a container.
func (s *MemoryStockStore) SaveContainer(_ context.Context, c stock.ContainerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[c.ID] = c
	return nil
}

// Apply stores the resulting balances, or fails with the configured error.
func (s *MemoryStockStore) Apply(_ context.Context, movements []stock.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return s.applyErr
	}
	for _, m := range movements {
		refs, ok := s.holdings[m.Source]
		if !ok {
			refs = map[string]decimal.Decimal{}
			s.holdings[m.Source] = refs
		}
		refs[m.Reference] = m.Balance
	}
	return nil
}

// SetApplyError makes subsequent Apply calls fail.
func (s *MemoryStockStore) SetApplyError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyErr = err
}

// Balance returns the persisted quantity of reference at key.
func (s *MemoryStockStore) Balance(key stock.SourceKey, reference string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdings[key][reference]
}

// MemoryQuoteRepository is an in-memory quote.QuoteRepository.
type MemoryQuoteRepository struct {
	mu     sync.Mutex
	quotes map[string]quote.Quote
}

// NewMemoryQuoteRepository creates an empty repository.
func NewMemoryQuoteRepository() *MemoryQuoteRepository {
	return &MemoryQuoteRepository{quotes: map[string]quote.Quote{}}
}

func (r *MemoryQuoteRepository) FindByID(_ context.Context, id uuid.UUID) (*quote.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.quotes {
		if q.ID == id {
			cp := q
			return &cp, nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, "Quote not found")
}

func (r *MemoryQuoteRepository) FindByNumber(_ context.Context, number string) (*quote.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[number]
	if !ok {
		return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Quote %s not found", number)
	}
	return &q, nil
}

func (r *MemoryQuoteRepository) FindAll(_ context.Context, _ shared.Filter) ([]quote.Quote, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]quote.Quote, 0, len(r.quotes))
	for _, q := range r.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, int64(len(out)), nil
}

func (r *MemoryQuoteRepository) Save(_ context.Context, q *quote.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *q
	cp.ClearDomainEvents()
	r.quotes[q.Number] = cp
	return nil
}

// MemoryReservationRepository is an in-memory reservation.ReservationRepository
// with optimistic version checks.
type MemoryReservationRepository struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]reservation.Reservation
	order        []uuid.UUID
	saveErr      error
}

// NewMemoryReservationRepository creates an empty repository.
func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{reservations: map[uuid.UUID]reservation.Reservation{}}
}

// SetSaveError makes subsequent SaveAll and Save calls fail.
func (r *MemoryReservationRepository) SetSaveError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

func (r *MemoryReservationRepository) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Reservation %s not found", id)
	}
	return &res, nil
}

func (r *MemoryReservationRepository) FindAll(_ context.Context, filter reservation.ReservationFilter) ([]reservation.Reservation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []reservation.Reservation
	for _, id := range r.order {
		res := r.reservations[id]
		if filter.QuoteNumber != "" && res.QuoteNumber != filter.QuoteNumber {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		if filter.Advisor != "" && !strings.EqualFold(res.Advisor, filter.Advisor) {
			continue
		}
		out = append(out, res)
	}
	total := int64(len(out))
	start := filter.Offset()
	if start > len(out) {
		start = len(out)
	}
	end := len(out)
	if filter.PageSize > 0 && start+filter.PageSize < end {
		end = start + filter.PageSize
	}
	return out[start:end], total, nil
}

func (r *MemoryReservationRepository) FindByStatus(_ context.Context, status reservation.Status) ([]reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []reservation.Reservation
	for _, id := range r.order {
		if res := r.reservations[id]; res.Status == status {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *MemoryReservationRepository) SaveAll(_ context.Context, rs []*reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, res := range rs {
		cp := *res
		cp.ClearDomainEvents()
		r.reservations[res.ID] = cp
		r.order = append(r.order, res.ID)
	}
	return nil
}

func (r *MemoryReservationRepository) Save(_ context.Context, res *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	stored, ok := r.reservations[res.ID]
	if !ok {
		return shared.NewDomainErrorf(shared.CodeNotFound, "Reservation %s not found", res.ID)
	}
	if stored.Version != res.Version-1 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Reservation was modified concurrently")
	}
	cp := *res
	cp.ClearDomainEvents()
	r.reservations[res.ID] = cp
	return nil
}

// Count returns the number of stored reservations.
func (r *MemoryReservationRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reservations)
}

// MemorySalesRepository is an in-memory sales.SalesRepository.
type MemorySalesRepository struct {
	mu      sync.Mutex
	records map[string]sales.SalesRecord
}

// NewMemorySalesRepository creates an empty repository.
func NewMemorySalesRepository() *MemorySalesRepository {
	return &MemorySalesRepository{records: map[string]sales.SalesRecord{}}
}

func salesKey(advisor string, p sales.Period) string {
	return strings.ToLower(advisor) + "|" + p.String()
}

func (r *MemorySalesRepository) Add(_ context.Context, record *sales.SalesRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := salesKey(record.Advisor, record.Period)
	existing, ok := r.records[key]
	if !ok {
		r.records[key] = *record
		return nil
	}
	if existing.Currency != record.Currency {
		return shared.NewDomainErrorf(shared.CodeCurrencyMismatch, "Sales of %s are recorded in %s", record.Advisor, existing.Currency)
	}
	existing.Amount = existing.Amount.Add(record.Amount)
	r.records[key] = existing
	return nil
}

func (r *MemorySalesRepository) Find(_ context.Context, advisor string, period sales.Period) (*sales.SalesRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[salesKey(advisor, period)]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeNotFound, "No sales recorded")
	}
	return &rec, nil
}

func (r *MemorySalesRepository) FindRange(_ context.Context, advisor string, from, to sales.Period) ([]sales.SalesRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sales.SalesRecord
	for _, rec := range r.records {
		if !strings.EqualFold(rec.Advisor, advisor) || rec.Period.Before(from) || to.Before(rec.Period) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (r *MemorySalesRepository) ReplaceAll(_ context.Context, records []sales.SalesRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]sales.SalesRecord, len(records))
	for _, rec := range records {
		r.records[salesKey(rec.Advisor, rec.Period)] = rec
	}
	return nil
}
