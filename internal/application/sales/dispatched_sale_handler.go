package sales

import (
	"context"
	"fmt"

	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// DispatchedSaleHandler credits the advisor's monthly total when a
// reservation is dispatched. Wrap it with an idempotent handler so a
// redelivered event is counted once.
type DispatchedSaleHandler struct {
	salesService *SalesService
	logger       *zap.Logger
}

// NewDispatchedSaleHandler creates a new handler for reservation dispatched events
func NewDispatchedSaleHandler(salesService *SalesService, logger *zap.Logger) *DispatchedSaleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchedSaleHandler{salesService: salesService, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *DispatchedSaleHandler) EventTypes() []string {
	return []string{reservation.EventTypeReservationDispatched}
}

// Handle records the sale carried by a ReservationDispatchedEvent
func (h *DispatchedSaleHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	dispatched, ok := event.(*reservation.ReservationDispatchedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", reservation.EventTypeReservationDispatched),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			reservation.EventTypeReservationDispatched, event.EventType())
	}

	amount, err := valueobject.NewMoney(dispatched.Amount, valueobject.ParseCurrency(dispatched.Currency))
	if err != nil {
		return err
	}
	if err := h.salesService.RecordSale(ctx, dispatched.Advisor, dispatched.Period, amount); err != nil {
		h.logger.Error("failed to record dispatched sale",
			zap.String("reservation_id", dispatched.ReservationID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("record sale: %w", err)
	}
	return nil
}
