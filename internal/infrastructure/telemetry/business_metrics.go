package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks quotes, reservations, dispatched sales and stock levels.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	quoteTotal            *Counter
	reservationTotal      *Counter
	reservationTransition *Counter
	salesAmountTotal      *Counter
	lockBusyTotal         *Counter
	allocationQuantity    *Histogram

	stockQuantity *FloatGauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	stockProvider StockSnapshotter
}

// StockSnapshotter exposes the current per-source balances.
type StockSnapshotter interface {
	Snapshot() []stock.SourceBalance
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter         metric.Meter
	Logger        *zap.Logger
	StockProvider StockSnapshotter
}

// ReservationOutcome labels reservation attempts.
type ReservationOutcome string

const (
	ReservationCreated      ReservationOutcome = "created"
	ReservationInsufficient ReservationOutcome = "insufficient_stock"
	ReservationBusy         ReservationOutcome = "busy"
	ReservationFailed       ReservationOutcome = "failed"
)

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		stockProvider: cfg.StockProvider,
	}

	var err error
	if bm.quoteTotal, err = NewCounter(cfg.Meter, "marmoleria_quote_total", "Quotes computed or issued", "{quotes}"); err != nil {
		return nil, err
	}
	if bm.reservationTotal, err = NewCounter(cfg.Meter, "marmoleria_reservation_attempt_total", "Reservation attempts by outcome", "{attempts}"); err != nil {
		return nil, err
	}
	if bm.reservationTransition, err = NewCounter(cfg.Meter, "marmoleria_reservation_transition_total", "Reservation status transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if bm.salesAmountTotal, err = NewCounter(cfg.Meter, "marmoleria_sales_amount_total", "Dispatched sales amount in cents", "{cents}"); err != nil {
		return nil, err
	}
	if bm.lockBusyTotal, err = NewCounter(cfg.Meter, "marmoleria_stock_lock_busy_total", "Stock slot lock acquisitions that timed out", "{attempts}"); err != nil {
		return nil, err
	}
	if bm.allocationQuantity, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "marmoleria_allocation_quantity",
		Description: "Quantity allocated per reservation line",
		Unit:        "{units}",
		Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}); err != nil {
		return nil, err
	}
	if bm.stockQuantity, err = NewFloatGauge(cfg.Meter, "marmoleria_stock_quantity", "Quantity held per source and product", "{units}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordQuoteComputed counts a quote calculation; persisted marks issued quotes.
func (bm *BusinessMetrics) RecordQuoteComputed(ctx context.Context, profile string, persisted bool) {
	bm.quoteTotal.Inc(ctx, AttrProfile.String(profile), AttrPersisted.Bool(persisted))
}

// RecordReservation counts a reservation attempt.
func (bm *BusinessMetrics) RecordReservation(ctx context.Context, outcome ReservationOutcome, quantity decimal.Decimal) {
	bm.reservationTotal.Inc(ctx, AttrOutcome.String(string(outcome)))
	if outcome == ReservationCreated {
		bm.allocationQuantity.Record(ctx, quantity.InexactFloat64())
	}
	if outcome == ReservationBusy {
		bm.lockBusyTotal.Inc(ctx)
	}
}

// RecordTransition counts a reservation entering status.
func (bm *BusinessMetrics) RecordTransition(ctx context.Context, status string) {
	bm.reservationTransition.Inc(ctx, AttrStatus.String(status))
}

// RecordSale adds a dispatched sale amount.
func (bm *BusinessMetrics) RecordSale(ctx context.Context, currency string, amount decimal.Decimal) {
	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.salesAmountTotal.Add(ctx, cents, AttrCurrency.String(currency))
}

// RecordStockLevels records one gauge point per source and product.
func (bm *BusinessMetrics) RecordStockLevels(ctx context.Context, balances []stock.SourceBalance) {
	for _, b := range balances {
		for ref, qty := range b.Holdings {
			bm.stockQuantity.Record(ctx, qty.InexactFloat64(),
				AttrSourceType.String(string(b.Key.Type)),
				AttrSourceKey.String(b.Key.String()),
				AttrReference.String(ref),
			)
		}
	}
}

// StartPeriodicCollection samples stock levels every interval (default 1 minute).
// It is non-blocking; use Stop to end collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectStock(ctx)
	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.collectStock(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectStock(ctx context.Context) {
	if bm.stockProvider == nil {
		bm.logger.Debug("No stock provider configured, skipping stock metrics collection")
		return
	}
	bm.RecordStockLevels(ctx, bm.stockProvider.Snapshot())
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
