package sales

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/marmoleria/backend/internal/domain/reservation"
	domain "github.com/marmoleria/backend/internal/domain/sales"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/marmoleria/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSalesService() (*SalesService, *testutil.MemorySalesRepository, *testutil.MemoryReservationRepository) {
	salesRepo := testutil.NewMemorySalesRepository()
	reservations := testutil.NewMemoryReservationRepository()
	return NewSalesService(salesRepo, reservations, "", nil), salesRepo, reservations
}

func TestRecordSale_Accumulates(t *testing.T) {
	svc, _, _ := newTestSalesService()
	ctx := context.Background()

	require.NoError(t, svc.RecordSale(ctx, "laura", "2026-03", testutil.COP("1000000")))
	require.NoError(t, svc.RecordSale(ctx, "laura", "2026-03", testutil.COP("250000.50")))

	p, err := svc.SalesFor(ctx, "laura", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, "1250000.50", p.Amount.StringFixed(2))
	assert.Equal(t, "COP", p.Currency)

	empty, err := svc.SalesFor(ctx, "laura", "2026-04")
	require.NoError(t, err)
	assert.True(t, empty.Amount.IsZero())

	err = svc.RecordSale(ctx, "laura", "2026-03", testutil.COP("-1"))
	assert.True(t, shared.HasCode(err, shared.CodeInvalidQuantity))

	err = svc.RecordSale(ctx, "laura", "March", testutil.COP("1"))
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
}

func TestSalesForRange_ZeroFilled(t *testing.T) {
	svc, _, _ := newTestSalesService()
	ctx := context.Background()
	require.NoError(t, svc.RecordSale(ctx, "laura", "2025-12", testutil.COP("500")))
	require.NoError(t, svc.RecordSale(ctx, "laura", "2026-02", testutil.COP("700")))
	require.NoError(t, svc.RecordSale(ctx, "pedro", "2026-01", testutil.COP("900")))

	series, err := svc.SalesForRange(ctx, "laura", "2025-11", "2026-02")
	require.NoError(t, err)
	require.Len(t, series, 4)
	got := make([]string, len(series))
	for i, p := range series {
		got[i] = p.Period + "=" + p.Amount.String()
	}
	assert.Equal(t, []string{"2025-11=0", "2025-12=500", "2026-01=0", "2026-02=700"}, got)

	_, err = svc.SalesForRange(ctx, "laura", "2026-02", "2025-11")
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
}

func dispatchedReservation(t *testing.T, advisor string, qty int64, price string, at time.Time) *reservation.Reservation {
	t.Helper()
	r, err := reservation.NewReservation("COT-2026-000001", "Cliente", advisor, testutil.Carrara, stock.WarehouseKey, decimal.NewFromInt(qty), testutil.COP(price))
	require.NoError(t, err)
	admin := reservation.MustActor(reservation.RoleAdmin, "")
	require.NoError(t, r.Validate(admin))
	require.NoError(t, r.Dispatch(admin))
	r.DispatchedAt = &at
	return r
}

func TestDispatchedSaleHandler(t *testing.T) {
	svc, _, _ := newTestSalesService()
	handler := NewDispatchedSaleHandler(svc, nil)
	ctx := context.Background()

	assert.Equal(t, []string{reservation.EventTypeReservationDispatched}, handler.EventTypes())

	r := dispatchedReservation(t, "laura", 4, "250000", time.Now())
	require.NoError(t, handler.Handle(ctx, reservation.NewReservationDispatchedEvent(r)))

	p, err := svc.SalesFor(ctx, "laura", r.Period())
	require.NoError(t, err)
	assert.Equal(t, "1000000.00", p.Amount.StringFixed(2))

	err = handler.Handle(ctx, reservation.NewReservationCreatedEvent(r))
	assert.Error(t, err)
}

func TestRebuild(t *testing.T) {
	svc, salesRepo, reservations := newTestSalesService()
	ctx := context.Background()

	march := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	pending, err := reservation.NewReservation("COT-2026-000002", "Cliente", "laura", testutil.Carrara, stock.WarehouseKey, decimal.NewFromInt(1), testutil.COP("999"))
	require.NoError(t, err)
	require.NoError(t, reservations.SaveAll(ctx, []*reservation.Reservation{
		dispatchedReservation(t, "laura", 2, "100", march),
		dispatchedReservation(t, "Laura", 3, "100", march),
		dispatchedReservation(t, "laura", 1, "50", april),
		dispatchedReservation(t, "pedro", 1, "10", april),
		pending,
	}))
	// stale data is replaced
	require.NoError(t, salesRepo.Add(ctx, &domain.SalesRecord{Advisor: "laura", Period: domain.Period{Year: 2026, Month: time.March}, Amount: decimal.NewFromInt(1), Currency: "COP"}))

	n, err := svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	p, err := svc.SalesFor(ctx, "laura", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, "500", p.Amount.String())
	p, err = svc.SalesFor(ctx, "laura", "2026-04")
	require.NoError(t, err)
	assert.Equal(t, "50", p.Amount.String())
}

type bufferExporter struct{ points []domain.SeriesPoint }

func (b *bufferExporter) WriteSeries(w io.Writer, advisor string, points []domain.SeriesPoint) error {
	b.points = points
	_, err := w.Write([]byte(advisor))
	return err
}

func TestExportWorkbook(t *testing.T) {
	svc, _, _ := newTestSalesService()
	ctx := context.Background()
	var buf bytes.Buffer

	err := svc.ExportWorkbook(ctx, &buf, "laura", "2026-01", "2026-03")
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))

	exporter := &bufferExporter{}
	svc.SetExporter(exporter)
	require.NoError(t, svc.ExportWorkbook(ctx, &buf, "laura", "2026-01", "2026-03"))
	assert.Len(t, exporter.points, 3)
	assert.Equal(t, "laura", buf.String())
}
