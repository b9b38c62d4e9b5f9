// Package textgen is the client side of the external text-generation
// capability used for advisor suggestions and campaign messages.
package textgen

import (
	"context"
	"errors"

	"github.com/marmoleria/backend/internal/domain/sales"
)

// ErrDisabled is returned by the disabled generator
var ErrDisabled = errors.New("text generation is disabled")

// SuggestionRequest carries the sales context of one advisor
type SuggestionRequest struct {
	Advisor string              `json:"advisor"`
	Series  []sales.SeriesPoint `json:"series"`
	Notes   string              `json:"notes,omitempty"`
}

// Suggestion is the generated coaching text for an advisor
type Suggestion struct {
	Headline string   `json:"headline" jsonschema:"description=One sentence summary of the advisor's trend"`
	Actions  []string `json:"actions" jsonschema:"description=Concrete next steps, at most five"`
}

// CampaignRequest describes a promotional message to draft
type CampaignRequest struct {
	Products []CampaignProduct `json:"products"`
	Audience string            `json:"audience"`
	Channel  string            `json:"channel"`
	Tone     string            `json:"tone,omitempty"`
}

// CampaignProduct is a product featured in a campaign with its list price
type CampaignProduct struct {
	Reference string `json:"reference"`
	Name      string `json:"name"`
	Price     string `json:"price"`
}

// CampaignMessage is the generated campaign copy
type CampaignMessage struct {
	Subject      string `json:"subject" jsonschema:"description=Short title or email subject"`
	Body         string `json:"body" jsonschema:"description=Message body in Spanish"`
	CallToAction string `json:"call_to_action" jsonschema:"description=Closing invitation to contact an advisor"`
}

// Generator produces text for the engine. Implementations must not invent
// prices: only the values passed in the request may appear in the output.
type Generator interface {
	SuggestForAdvisor(ctx context.Context, req SuggestionRequest) (*Suggestion, error)
	CampaignMessage(ctx context.Context, req CampaignRequest) (*CampaignMessage, error)
}

// Disabled is the Generator used when no provider is configured
type Disabled struct{}

// SuggestForAdvisor implements Generator
func (Disabled) SuggestForAdvisor(context.Context, SuggestionRequest) (*Suggestion, error) {
	return nil, ErrDisabled
}

// CampaignMessage implements Generator
func (Disabled) CampaignMessage(context.Context, CampaignRequest) (*CampaignMessage, error) {
	return nil, ErrDisabled
}
