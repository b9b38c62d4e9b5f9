package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const archiveTimeout = 2 * time.Minute

// QuoteArchiveHandler refreshes the archived PDF whenever a quote is created
// or cancelled, so the stored copy always shows the current status.
type QuoteArchiveHandler struct {
	documents *QuoteDocumentService
	logger    *zap.Logger
}

// NewQuoteArchiveHandler creates a new QuoteArchiveHandler
func NewQuoteArchiveHandler(documents *QuoteDocumentService, logger *zap.Logger) *QuoteArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteArchiveHandler{documents: documents, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *QuoteArchiveHandler) EventTypes() []string {
	return []string{quote.EventTypeQuoteCreated, quote.EventTypeQuoteCancelled}
}

// Handle archives the quote named by the event
func (h *QuoteArchiveHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var number string
	switch e := event.(type) {
	case *quote.QuoteCreatedEvent:
		number = e.Number
	case *quote.QuoteCancelledEvent:
		number = e.Number
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	if _, err := h.documents.ArchiveQuote(ctx, number); err != nil {
		h.logger.Warn("Failed to archive quote", zap.String("quote_number", number), zap.Error(err))
		return fmt.Errorf("archive quote %s: %w", number, err)
	}
	return nil
}
