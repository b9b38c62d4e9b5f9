package reservation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/marmoleria/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const quoteNumber = "COT-2026-000001"

var (
	accounting = reservation.MustActor(reservation.RoleAccounting, "ana")
	advisor    = reservation.MustActor(reservation.RoleAdvisor, "laura")
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	svc          *ReservationService
	ledger       *stock.Ledger
	store        *testutil.MemoryStockStore
	quotes       *testutil.MemoryQuoteRepository
	reservations *testutil.MemoryReservationRepository
	publisher    *testutil.RecordingPublisher
	locker       *stock.KeyedLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	cat := testutil.SampleCatalog(t)

	f := &fixture{
		store:        testutil.NewMemoryStockStore(),
		quotes:       testutil.NewMemoryQuoteRepository(),
		reservations: testutil.NewMemoryReservationRepository(),
		publisher:    testutil.NewRecordingPublisher(),
		locker:       stock.NewKeyedLocker(200 * time.Millisecond),
	}
	f.ledger = stock.NewLedger(f.store, stock.WithLocker(f.locker), stock.WithRestoreBudget(100*time.Millisecond))
	require.NoError(t, f.ledger.Receive(ctx, stock.WarehouseKey, testutil.Carrara, d(40)))
	require.NoError(t, f.ledger.Receive(ctx, stock.FreeZoneKey, testutil.Carrara, d(15)))

	calc, err := quote.NewCalculator(cat, "retail").Compute(quote.ComputeRequest{
		Lines: []quote.LineRequest{
			{Reference: testutil.Carrara, Quantity: d(50)},
			{Reference: testutil.OnixMiel, Quantity: d(2)},
		},
	})
	require.NoError(t, err)
	q, err := quote.NewQuote(quoteNumber, "Constructora Andina", "laura", "", quote.SupplyOptions{}, calc)
	require.NoError(t, err)
	require.NoError(t, f.quotes.Save(ctx, q))

	f.svc = NewReservationService(f.ledger, cat, f.quotes, f.reservations, f.locker, nil)
	f.svc.SetEventPublisher(f.publisher)
	return f
}

func (f *fixture) create(qty int64, sources ...SourceInput) ([]ReservationResponse, error) {
	return f.svc.CreateReservation(context.Background(), CreateReservationRequest{
		QuoteNumber:      quoteNumber,
		ProductReference: testutil.Carrara,
		Quantity:         d(qty),
		PreferredSources: sources,
	})
}

func (f *fixture) available(t *testing.T, key stock.SourceKey) decimal.Decimal {
	t.Helper()
	q, err := f.ledger.QuantityAt(key, testutil.Carrara)
	require.NoError(t, err)
	return q
}

var warehouseThenFreeZone = []SourceInput{{Type: "WAREHOUSE"}, {Type: "FREE_ZONE"}}

func TestCreateReservation_GreedyAcrossSources(t *testing.T) {
	f := newFixture(t)

	first, err := f.create(30, warehouseThenFreeZone...)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "WAREHOUSE", first[0].SourceType)
	assert.Equal(t, "PENDIENTE", first[0].Status)
	assert.Equal(t, "250000", first[0].UnitPrice.String())
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(10)))

	second, err := f.create(20, warehouseThenFreeZone...)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "WAREHOUSE", second[0].SourceType)
	assert.True(t, second[0].Quantity.Equal(d(10)))
	assert.Equal(t, "FREE_ZONE", second[1].SourceType)
	assert.True(t, second[1].Quantity.Equal(d(10)))

	assert.True(t, f.available(t, stock.WarehouseKey).IsZero())
	assert.True(t, f.available(t, stock.FreeZoneKey).Equal(d(5)))
	assert.True(t, f.store.Balance(stock.FreeZoneKey, testutil.Carrara).Equal(d(5)))
	assert.Len(t, f.publisher.EventsOfType(reservation.EventTypeReservationCreated), 3)
}

func TestCreateReservation_DefaultOrder(t *testing.T) {
	f := newFixture(t)
	out, err := f.create(45)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "WAREHOUSE", out[0].SourceType)
	assert.Equal(t, "FREE_ZONE", out[1].SourceType)
}

func TestCreateReservation_InsufficientStockLeavesLedgerUnchanged(t *testing.T) {
	f := newFixture(t)

	_, err := f.create(56, warehouseThenFreeZone...)
	assert.True(t, shared.HasCode(err, shared.CodeInsufficientStock))
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(40)))
	assert.True(t, f.available(t, stock.FreeZoneKey).Equal(d(15)))
	assert.Zero(t, f.reservations.Count())

	// retry with the same inputs is safe
	_, err = f.create(56, warehouseThenFreeZone...)
	assert.True(t, shared.HasCode(err, shared.CodeInsufficientStock))
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(40)))
}

func TestCreateReservation_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateReservationRequest
		code string
	}{
		{"zero quantity", CreateReservationRequest{QuoteNumber: quoteNumber, ProductReference: testutil.Carrara}, shared.CodeInvalidQuantity},
		{"unknown product", CreateReservationRequest{QuoteNumber: quoteNumber, ProductReference: "Granito", Quantity: d(1)}, shared.CodeUnknownReference},
		{"unknown quote", CreateReservationRequest{QuoteNumber: "COT-2026-999999", ProductReference: testutil.Carrara, Quantity: d(1)}, shared.CodeNotFound},
		{"product not quoted", CreateReservationRequest{QuoteNumber: quoteNumber, ProductReference: testutil.TravertinoXL, Quantity: d(1)}, shared.CodeInvalidInput},
		{"unknown source type", CreateReservationRequest{QuoteNumber: quoteNumber, ProductReference: testutil.Carrara, Quantity: d(1), PreferredSources: []SourceInput{{Type: "SHIP"}}}, shared.CodeInvalidInput},
		{"unknown container", CreateReservationRequest{QuoteNumber: quoteNumber, ProductReference: testutil.Carrara, Quantity: d(1), PreferredSources: []SourceInput{{Type: "CONTAINER", ID: "MSCU1"}}}, shared.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateReservation(ctx, tt.req)
			assert.True(t, shared.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(40)))
}

func TestCreateReservation_CancelledQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q, err := f.quotes.FindByNumber(ctx, quoteNumber)
	require.NoError(t, err)
	require.NoError(t, q.Cancel())
	require.NoError(t, f.quotes.Save(ctx, q))

	_, err = f.create(1)
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
}

func TestCreateReservation_PersistenceFailureReleasesStock(t *testing.T) {
	f := newFixture(t)
	f.reservations.SetSaveError(errors.New("db down"))

	_, err := f.create(45, warehouseThenFreeZone...)
	require.Error(t, err)
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(40)))
	assert.True(t, f.available(t, stock.FreeZoneKey).Equal(d(15)))
	assert.True(t, f.store.Balance(stock.WarehouseKey, testutil.Carrara).Equal(d(40)))
}

func TestCreateReservation_FromEligibleContainers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late, _ := stock.NewContainer("MSCU2", "MSC", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	early, _ := stock.NewContainer("MSCU1", "MSC", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	for _, c := range []*stock.Container{late, early} {
		require.NoError(t, f.ledger.RegisterContainer(ctx, c))
		require.NoError(t, f.ledger.Receive(ctx, c.Key(), testutil.Carrara, d(5)))
		for _, s := range []stock.ContainerStatus{stock.ContainerStatusInTransit, stock.ContainerStatusInPort} {
			_, err := f.ledger.AdvanceContainerStatus(ctx, c.ID, s)
			require.NoError(t, err)
		}
	}

	out, err := f.create(7, SourceInput{Type: "CONTAINER"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "MSCU1", out[0].SourceID)
	assert.True(t, out[0].Quantity.Equal(d(5)))
	assert.Equal(t, "MSCU2", out[1].SourceID)
	assert.True(t, out[1].Quantity.Equal(d(2)))
}

func TestReservationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.create(4)
	require.NoError(t, err)
	id := created[0].ID

	_, err = f.svc.Validate(ctx, id, advisor)
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	_, err = f.svc.Dispatch(ctx, id, accounting)
	assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))

	validated, err := f.svc.Validate(ctx, id, accounting)
	require.NoError(t, err)
	assert.Equal(t, "VALIDADA", validated.Status)
	assert.Equal(t, "ACCOUNTING:ana", validated.ValidatedBy)

	_, err = f.svc.Validate(ctx, id, accounting)
	assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))

	_, err = f.svc.Reject(ctx, id, accounting, "late")
	assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))

	dispatched, err := f.svc.Dispatch(ctx, id, reservation.MustActor(reservation.RoleAdmin, ""))
	require.NoError(t, err)
	assert.Equal(t, "DESPACHADA", dispatched.Status)
	assert.NotNil(t, dispatched.DispatchedAt)

	events := f.publisher.EventsOfType(reservation.EventTypeReservationDispatched)
	require.Len(t, events, 1)
	ev := events[0].(*reservation.ReservationDispatchedEvent)
	assert.Equal(t, "laura", ev.Advisor)
	assert.Equal(t, "1000000.00", ev.Amount.StringFixed(2))
	assert.Equal(t, dispatched.DispatchedAt.Format(reservation.PeriodLayout), ev.Period)

	// dispatch does not return stock
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(36)))
}

func TestReject_RestoresExactSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.create(45, warehouseThenFreeZone...)
	require.NoError(t, err)
	require.Len(t, created, 2)

	fz := created[1]
	_, err = f.svc.Reject(ctx, fz.ID, accounting, "customer withdrew")
	require.NoError(t, err)
	assert.True(t, f.available(t, stock.FreeZoneKey).Equal(d(15)))
	assert.True(t, f.available(t, stock.WarehouseKey).IsZero())

	_, err = f.svc.Reject(ctx, created[0].ID, accounting, "")
	require.NoError(t, err)
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(40)))
	assert.True(t, f.available(t, stock.FreeZoneKey).Equal(d(15)))

	got, err := f.svc.GetReservation(ctx, fz.ID)
	require.NoError(t, err)
	assert.Equal(t, "RECHAZADA", got.Status)
	assert.Equal(t, "customer withdrew", got.RejectReason)
}

func TestReject_SaveFailureLeavesStockDebited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create(10)
	require.NoError(t, err)

	f.reservations.SetSaveError(errors.New("db down"))
	_, err = f.svc.Reject(ctx, created[0].ID, accounting, "")
	require.Error(t, err)
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(30)))

	f.reservations.SetSaveError(nil)
	got, err := f.svc.GetReservation(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDIENTE", got.Status)
}

func TestReject_CreditWaitsForContendedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create(10)
	require.NoError(t, err)

	hold, err := f.locker.Acquire(ctx, stock.WarehouseKey.SlotKey(testutil.Carrara))
	require.NoError(t, err)
	time.AfterFunc(500*time.Millisecond, hold)

	_, err = f.svc.Reject(ctx, created[0].ID, accounting, "")
	require.NoError(t, err)
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(40)))
	assert.True(t, f.store.Balance(stock.WarehouseKey, testutil.Carrara).Equal(d(40)))
}

func TestReject_StoreOutageStillCreditsArena(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create(10)
	require.NoError(t, err)

	f.store.SetApplyError(errors.New("stock table locked"))
	rejected, err := f.svc.Reject(ctx, created[0].ID, accounting, "")
	require.NoError(t, err)
	assert.Equal(t, "RECHAZADA", rejected.Status)
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(40)))
	assert.True(t, f.store.Balance(stock.WarehouseKey, testutil.Carrara).Equal(d(30)))

	// the next write to the slot persists the credited balance
	f.store.SetApplyError(nil)
	require.NoError(t, f.ledger.Receive(ctx, stock.WarehouseKey, testutil.Carrara, d(1)))
	assert.True(t, f.store.Balance(stock.WarehouseKey, testutil.Carrara).Equal(d(41)))
}

// contendedRepository fails SaveAll while another caller holds a stock slot
// for longer than the locker timeout.
type contendedRepository struct {
	*testutil.MemoryReservationRepository
	locker *stock.KeyedLocker
	slot   string
	hold   time.Duration
}

func (r *contendedRepository) SaveAll(ctx context.Context, _ []*reservation.Reservation) error {
	release, err := r.locker.Acquire(ctx, r.slot)
	if err != nil {
		return err
	}
	time.AfterFunc(r.hold, release)
	return errors.New("db down")
}

func TestCreateReservation_ReleaseOutlastsContendedSlot(t *testing.T) {
	f := newFixture(t)
	repo := &contendedRepository{
		MemoryReservationRepository: f.reservations,
		locker:                      f.locker,
		slot:                        stock.WarehouseKey.SlotKey(testutil.Carrara),
		hold:                        500 * time.Millisecond,
	}
	svc := NewReservationService(f.ledger, testutil.SampleCatalog(t), f.quotes, repo, f.locker, nil)

	_, err := svc.CreateReservation(context.Background(), CreateReservationRequest{
		QuoteNumber:      quoteNumber,
		ProductReference: testutil.Carrara,
		Quantity:         d(10),
		PreferredSources: warehouseThenFreeZone,
	})
	require.Error(t, err)
	assert.True(t, f.ledger.AvailableQuantity(context.Background(), testutil.Carrara).Equal(d(55)))
	assert.True(t, f.store.Balance(stock.WarehouseKey, testutil.Carrara).Equal(d(40)))
	assert.Zero(t, f.reservations.Count())
}

func TestDispatch_SaleFailureRevertsDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create(4)
	require.NoError(t, err)
	id := created[0].ID
	_, err = f.svc.Validate(ctx, id, accounting)
	require.NoError(t, err)

	f.publisher.SetError(errors.New("sales store down"))
	_, err = f.svc.Dispatch(ctx, id, accounting)
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeUnavailable))

	got, err := f.svc.GetReservation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "VALIDADA", got.Status)
	assert.Nil(t, got.DispatchedAt)
	assert.Empty(t, f.publisher.EventsOfType(reservation.EventTypeReservationDispatched))

	f.publisher.SetError(nil)
	dispatched, err := f.svc.Dispatch(ctx, id, accounting)
	require.NoError(t, err)
	assert.Equal(t, "DESPACHADA", dispatched.Status)
	assert.Len(t, f.publisher.EventsOfType(reservation.EventTypeReservationDispatched), 1)
	assert.True(t, f.available(t, stock.WarehouseKey).Equal(d(36)))
}

func TestDispatch_WithoutPublisherSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.SetEventPublisher(nil)
	created, err := f.create(2)
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, created[0].ID, accounting)
	require.NoError(t, err)

	dispatched, err := f.svc.Dispatch(ctx, created[0].ID, accounting)
	require.NoError(t, err)
	assert.Equal(t, "DESPACHADA", dispatched.Status)
}

func TestTransition_BusyWhileLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.create(1)
	require.NoError(t, err)

	release, err := f.locker.Acquire(ctx, lockKey(created[0].ID))
	require.NoError(t, err)
	defer release()

	_, err = f.svc.Validate(ctx, created[0].ID, accounting)
	assert.True(t, shared.HasCode(err, shared.CodeBusy))
	assert.True(t, shared.IsRetryable(err))
}

func TestCreateReservation_ConcurrentRequestsNeverOversell(t *testing.T) {
	f := newFixture(t)
	const n = 8
	// 55 units on hand; every request takes 7 from the warehouse and free zone
	// so only 7 of 8 can succeed.
	var ok, insufficient atomic.Int32
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := f.create(7, warehouseThenFreeZone...)
			switch {
			case err == nil:
				ok.Add(1)
			case shared.HasCode(err, shared.CodeInsufficientStock):
				insufficient.Add(1)
			case shared.HasCode(err, shared.CodeBusy):
				// retry once after the holder finishes
				if _, err := f.create(7, warehouseThenFreeZone...); err == nil {
					ok.Add(1)
				} else {
					insufficient.Add(1)
				}
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(7), ok.Load())
	assert.Equal(t, int32(1), insufficient.Load())
	total := f.available(t, stock.WarehouseKey).Add(f.available(t, stock.FreeZoneKey))
	assert.True(t, total.Equal(d(6)), "remaining %s", total)
}

func TestConservationAcrossLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const supplied = 55

	committed := func(t *testing.T) decimal.Decimal {
		t.Helper()
		sum := decimal.Zero
		for _, st := range []reservation.Status{reservation.StatusPending, reservation.StatusValidated, reservation.StatusDispatched} {
			rs, err := f.reservations.FindByStatus(ctx, st)
			require.NoError(t, err)
			for _, r := range rs {
				sum = sum.Add(r.Quantity)
			}
		}
		return sum
	}
	check := func(t *testing.T) {
		t.Helper()
		onHand := f.available(t, stock.WarehouseKey).Add(f.available(t, stock.FreeZoneKey))
		assert.True(t, onHand.Add(committed(t)).Equal(d(supplied)), "on hand %s committed %s", onHand, committed(t))
	}

	first, err := f.create(30, warehouseThenFreeZone...)
	require.NoError(t, err)
	check(t)

	second, err := f.create(20, warehouseThenFreeZone...)
	require.NoError(t, err)
	require.Len(t, second, 2)
	check(t)

	_, err = f.create(6, warehouseThenFreeZone...)
	assert.True(t, shared.HasCode(err, shared.CodeInsufficientStock))
	check(t)

	_, err = f.svc.Validate(ctx, first[0].ID, accounting)
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, first[0].ID, accounting)
	require.NoError(t, err)
	check(t)

	_, err = f.svc.Reject(ctx, second[1].ID, accounting, "")
	require.NoError(t, err)
	check(t)
}

func TestListReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.create(45)
	require.NoError(t, err)

	items, total, err := f.svc.ListReservations(ctx, ListReservationsFilter{QuoteNumber: quoteNumber, Status: "PENDIENTE"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	_, _, err = f.svc.ListReservations(ctx, ListReservationsFilter{Status: "BOGUS"})
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
}
