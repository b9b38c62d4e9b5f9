package quote

import (
	"context"
	"time"

	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// QuoteService handles quote computation and lifecycle
type QuoteService struct {
	calculator      *quote.Calculator
	quoteRepo       quote.QuoteRepository
	sequence        quote.NumberSequence
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(calculator *quote.Calculator, quoteRepo quote.QuoteRepository, sequence quote.NumberSequence, logger *zap.Logger) *QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteService{
		calculator: calculator,
		quoteRepo:  quoteRepo,
		sequence:   sequence,
		logger:     logger,
		now:        time.Now,
	}
}

// SetEventPublisher sets the event publisher
func (s *QuoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics recorder
func (s *QuoteService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// ComputeQuote prices a request without persisting anything
func (s *QuoteService) ComputeQuote(ctx context.Context, req ComputeQuoteRequest) (*quote.Calculation, error) {
	calc, err := s.calculator.Compute(req.toDomain())
	if err != nil {
		return nil, err
	}
	if s.businessMetrics != nil {
		s.businessMetrics.RecordQuoteComputed(ctx, calc.Profile, false)
	}
	return calc, nil
}

// CreateQuote prices the request, assigns the next quote number and persists it
func (s *QuoteService) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*QuoteResponse, error) {
	calc, err := s.calculator.Compute(req.toDomain())
	if err != nil {
		return nil, err
	}

	year := s.now().Year()
	seq, err := s.sequence.Next(ctx, year)
	if err != nil {
		return nil, err
	}

	q, err := quote.NewQuote(quote.FormatNumber(year, seq), req.CustomerName, req.Advisor, req.DestinationCity, req.Supply.toDomain(), calc)
	if err != nil {
		return nil, err
	}
	if err := s.quoteRepo.Save(ctx, q); err != nil {
		return nil, err
	}

	s.logger.Info("quote created",
		zap.String("number", q.Number),
		zap.String("advisor", q.Advisor),
		zap.String("total", q.Total.StringFixed(2)),
		zap.String("currency", string(q.Currency)),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordQuoteComputed(ctx, calc.Profile, true)
	}
	s.publish(ctx, q.GetDomainEvents())
	q.ClearDomainEvents()

	response := ToQuoteResponse(q)
	return &response, nil
}

// GetQuote retrieves a quote by its number
func (s *QuoteService) GetQuote(ctx context.Context, number string) (*QuoteResponse, error) {
	q, err := s.quoteRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToQuoteResponse(q)
	return &response, nil
}

// ListQuotes lists quotes with filtering and pagination
func (s *QuoteService) ListQuotes(ctx context.Context, filter ListQuotesFilter) ([]QuoteResponse, int64, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.Search != "" {
		f.Filters["search"] = filter.Search
	}
	if filter.Advisor != "" {
		f.Filters["advisor"] = filter.Advisor
	}
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}

	quotes, total, err := s.quoteRepo.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		out[i] = ToQuoteResponse(&quotes[i])
	}
	return out, total, nil
}

// CancelQuote marks a quote as cancelled. Cancelled quotes cannot back new
// reservations; existing reservations are unaffected.
func (s *QuoteService) CancelQuote(ctx context.Context, number string) (*QuoteResponse, error) {
	q, err := s.quoteRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := q.Cancel(); err != nil {
		return nil, err
	}
	if err := s.quoteRepo.Save(ctx, q); err != nil {
		return nil, err
	}
	s.logger.Info("quote cancelled", zap.String("number", q.Number))
	s.publish(ctx, q.GetDomainEvents())
	q.ClearDomainEvents()

	response := ToQuoteResponse(q)
	return &response, nil
}

func (s *QuoteService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish quote events", zap.Error(err))
	}
}
