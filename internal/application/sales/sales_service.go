package sales

import (
	"context"
	"io"
	"strings"

	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/sales"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/marmoleria/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SeriesExporter renders a sales series into a document
type SeriesExporter interface {
	WriteSeries(w io.Writer, advisor string, points []sales.SeriesPoint) error
}

// SalesService aggregates dispatched sales per advisor and month. It only
// reads reservations and never mutates them.
type SalesService struct {
	salesRepo       sales.SalesRepository
	reservationRepo reservation.ReservationRepository
	exporter        SeriesExporter
	currency        valueobject.Currency
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
}

// NewSalesService creates a new SalesService. currency labels empty periods.
func NewSalesService(salesRepo sales.SalesRepository, reservationRepo reservation.ReservationRepository, currency valueobject.Currency, logger *zap.Logger) *SalesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &SalesService{
		salesRepo:       salesRepo,
		reservationRepo: reservationRepo,
		currency:        currency,
		logger:          logger,
	}
}

// SetExporter sets the workbook exporter
func (s *SalesService) SetExporter(exporter SeriesExporter) {
	s.exporter = exporter
}

// SetBusinessMetrics sets the business metrics recorder
func (s *SalesService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// RecordSale increases the advisor's total for period by amount
func (s *SalesService) RecordSale(ctx context.Context, advisor, period string, amount valueobject.Money) error {
	p, err := sales.ParsePeriod(period)
	if err != nil {
		return err
	}
	record, err := sales.NewSalesRecord(advisor, p, amount)
	if err != nil {
		return err
	}
	if err := s.salesRepo.Add(ctx, record); err != nil {
		return err
	}
	s.logger.Info("sale recorded",
		zap.String("advisor", record.Advisor),
		zap.String("period", p.String()),
		zap.String("amount", amount.Amount().StringFixed(2)),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordSale(ctx, string(amount.Currency()), amount.Amount())
	}
	return nil
}

// SalesFor returns the advisor's total for one period, zero when nothing was sold
func (s *SalesService) SalesFor(ctx context.Context, advisor, period string) (sales.SeriesPoint, error) {
	p, err := sales.ParsePeriod(period)
	if err != nil {
		return sales.SeriesPoint{}, err
	}
	record, err := s.salesRepo.Find(ctx, strings.TrimSpace(advisor), p)
	if shared.HasCode(err, shared.CodeNotFound) {
		return s.zero(p), nil
	}
	if err != nil {
		return sales.SeriesPoint{}, err
	}
	return point(record), nil
}

// SalesForRange returns one point per month from from to to inclusive
func (s *SalesService) SalesForRange(ctx context.Context, advisor, from, to string) ([]sales.SeriesPoint, error) {
	start, err := sales.ParsePeriod(from)
	if err != nil {
		return nil, err
	}
	end, err := sales.ParsePeriod(to)
	if err != nil {
		return nil, err
	}
	periods, err := start.Range(end)
	if err != nil {
		return nil, err
	}

	records, err := s.salesRepo.FindRange(ctx, strings.TrimSpace(advisor), start, end)
	if err != nil {
		return nil, err
	}
	byPeriod := make(map[sales.Period]sales.SalesRecord, len(records))
	for _, r := range records {
		byPeriod[r.Period] = r
	}

	out := make([]sales.SeriesPoint, len(periods))
	for i, p := range periods {
		if r, ok := byPeriod[p]; ok {
			out[i] = point(&r)
		} else {
			out[i] = s.zero(p)
		}
	}
	return out, nil
}

// ExportWorkbook writes the advisor's series for the range to w
func (s *SalesService) ExportWorkbook(ctx context.Context, w io.Writer, advisor, from, to string) error {
	if s.exporter == nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Sales export is not configured")
	}
	points, err := s.SalesForRange(ctx, advisor, from, to)
	if err != nil {
		return err
	}
	return s.exporter.WriteSeries(w, advisor, points)
}

// Rebuild recomputes every record from the dispatched reservations
func (s *SalesService) Rebuild(ctx context.Context) (int, error) {
	dispatched, err := s.reservationRepo.FindByStatus(ctx, reservation.StatusDispatched)
	if err != nil {
		return 0, err
	}

	type key struct {
		advisor string
		period  sales.Period
	}
	totals := map[key]*sales.SalesRecord{}
	order := []key{}
	for i := range dispatched {
		r := &dispatched[i]
		if r.DispatchedAt == nil {
			continue
		}
		k := key{advisor: strings.ToLower(strings.TrimSpace(r.Advisor)), period: sales.PeriodOf(*r.DispatchedAt)}
		amount := r.Amount()
		rec, ok := totals[k]
		if !ok {
			rec, err = sales.NewSalesRecord(r.Advisor, k.period, amount)
			if err != nil {
				return 0, err
			}
			totals[k] = rec
			order = append(order, k)
			continue
		}
		if rec.Currency != amount.Currency() {
			return 0, shared.NewDomainErrorf(shared.CodeCurrencyMismatch,
				"Advisor %s has sales in %s and %s for %s", r.Advisor, rec.Currency, amount.Currency(), k.period)
		}
		rec.Amount = rec.Amount.Add(amount.Amount())
	}

	records := make([]sales.SalesRecord, 0, len(order))
	for _, k := range order {
		records = append(records, *totals[k])
	}
	if err := s.salesRepo.ReplaceAll(ctx, records); err != nil {
		return 0, err
	}
	s.logger.Info("sales records rebuilt",
		zap.Int("reservations", len(dispatched)),
		zap.Int("records", len(records)),
	)
	return len(records), nil
}

func (s *SalesService) zero(p sales.Period) sales.SeriesPoint {
	return sales.SeriesPoint{Period: p.String(), Amount: decimal.Zero, Currency: string(s.currency)}
}

func point(r *sales.SalesRecord) sales.SeriesPoint {
	return sales.SeriesPoint{Period: r.Period.String(), Amount: r.Amount, Currency: string(r.Currency)}
}
