// Package assistant prepares engine data for the external text-generation
// capability and returns its output to callers.
package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/marmoleria/backend/internal/domain/catalog"
	"github.com/marmoleria/backend/internal/domain/sales"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/infrastructure/textgen"
	"go.uber.org/zap"
)

// DefaultLookbackMonths is the sales window sent with an advisor suggestion
const DefaultLookbackMonths = 6

// SalesReader is the part of the sales aggregator the assistant reads
type SalesReader interface {
	SalesForRange(ctx context.Context, advisor, from, to string) ([]sales.SeriesPoint, error)
}

// SuggestionInput asks for coaching text for one advisor
type SuggestionInput struct {
	Advisor string `json:"-"`
	Months  int    `json:"months" binding:"omitempty,min=1,max=24"`
	Notes   string `json:"notes" binding:"max=500"`
}

// CampaignInput asks for campaign copy featuring catalog products
type CampaignInput struct {
	References []string `json:"references" binding:"required,min=1,max=10,dive,required"`
	Audience   string   `json:"audience" binding:"required,max=200"`
	Channel    string   `json:"channel" binding:"required,oneof=email whatsapp instagram"`
	Tone       string   `json:"tone" binding:"max=100"`
}

// AssistantService builds text-generation requests from sales and catalog data
type AssistantService struct {
	sales     SalesReader
	catalog   catalog.Reader
	generator textgen.Generator
	now       func() time.Time
	logger    *zap.Logger
}

// NewAssistantService creates the service. A nil generator disables generation.
func NewAssistantService(salesReader SalesReader, reader catalog.Reader, generator textgen.Generator, logger *zap.Logger) *AssistantService {
	if generator == nil {
		generator = textgen.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{
		sales:     salesReader,
		catalog:   reader,
		generator: generator,
		now:       time.Now,
		logger:    logger,
	}
}

// SuggestForAdvisor sends the advisor's recent monthly sales to the generator
func (s *AssistantService) SuggestForAdvisor(ctx context.Context, in SuggestionInput) (*textgen.Suggestion, error) {
	advisor := strings.TrimSpace(in.Advisor)
	if advisor == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Advisor is required")
	}
	months := in.Months
	if months <= 0 {
		months = DefaultLookbackMonths
	}

	to := sales.PeriodOf(s.now())
	from := to
	for range months - 1 {
		from = from.Previous()
	}
	series, err := s.sales.SalesForRange(ctx, advisor, from.String(), to.String())
	if err != nil {
		return nil, err
	}

	out, err := s.generator.SuggestForAdvisor(ctx, textgen.SuggestionRequest{
		Advisor: advisor,
		Series:  series,
		Notes:   in.Notes,
	})
	return out, s.translate(err, "advisor suggestion")
}

// CampaignMessage drafts campaign copy. Prices come from the catalog only.
func (s *AssistantService) CampaignMessage(ctx context.Context, in CampaignInput) (*textgen.CampaignMessage, error) {
	products := make([]textgen.CampaignProduct, 0, len(in.References))
	for _, ref := range in.References {
		p, err := s.catalog.LookupProduct(ref)
		if err != nil {
			return nil, err
		}
		products = append(products, textgen.CampaignProduct{
			Reference: p.Reference,
			Name:      p.Name,
			Price:     p.UnitPrice.String(),
		})
	}

	out, err := s.generator.CampaignMessage(ctx, textgen.CampaignRequest{
		Products: products,
		Audience: in.Audience,
		Channel:  in.Channel,
		Tone:     in.Tone,
	})
	return out, s.translate(err, "campaign message")
}

func (s *AssistantService) translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, textgen.ErrDisabled) {
		return shared.NewDomainError(shared.CodeUnavailable, "Text generation is not configured")
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	s.logger.Error("Text generation failed", zap.String("kind", what), zap.Error(err))
	return shared.NewDomainErrorf(shared.CodeUnavailable, "Text generation failed for %s", what)
}
