package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/catalog"
	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/marmoleria/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultSourceOrder is used when a request names no preferred sources
var DefaultSourceOrder = []stock.SourceKey{
	stock.WarehouseKey,
	stock.FreeZoneKey,
	{Type: stock.SourceTypeContainer},
}

// ReservationService is the reservation engine. It is the only writer of the
// stock ledger on behalf of quotes and drives each reservation through
// PENDIENTE → VALIDADA → DESPACHADA or PENDIENTE → RECHAZADA.
type ReservationService struct {
	ledger          *stock.Ledger
	catalog         catalog.Reader
	quoteRepo       quote.QuoteRepository
	reservationRepo reservation.ReservationRepository
	locker          *stock.KeyedLocker
	defaultOrder    []stock.SourceKey
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
}

// NewReservationService creates a new ReservationService. The locker
// serializes transitions per reservation and may be shared with the ledger.
func NewReservationService(
	ledger *stock.Ledger,
	reader catalog.Reader,
	quoteRepo quote.QuoteRepository,
	reservationRepo reservation.ReservationRepository,
	locker *stock.KeyedLocker,
	logger *zap.Logger,
) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = stock.NewKeyedLocker(stock.DefaultLockTimeout)
	}
	return &ReservationService{
		ledger:          ledger,
		catalog:         reader,
		quoteRepo:       quoteRepo,
		reservationRepo: reservationRepo,
		locker:          locker,
		defaultOrder:    DefaultSourceOrder,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *ReservationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics recorder
func (s *ReservationService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetDefaultSourceOrder overrides the order used when a request names none
func (s *ReservationService) SetDefaultSourceOrder(order []stock.SourceKey) {
	if len(order) > 0 {
		s.defaultOrder = order
	}
}

// CreateReservation debits the requested quantity greedily across the
// preferred sources and records one PENDIENTE reservation per source used.
// On any failure the ledger is left exactly as it was.
func (s *ReservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) ([]ReservationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "reservation.create",
		telemetry.SpanAttrQuoteNumber, req.QuoteNumber,
		telemetry.SpanAttrReference, req.ProductReference,
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)
	defer span.End()

	created, err := s.createReservation(ctx, req)
	s.recordAttempt(ctx, req, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToReservationResponses(created), nil
}

func (s *ReservationService) createReservation(ctx context.Context, req CreateReservationRequest) ([]*reservation.Reservation, error) {
	if !req.Quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	if _, err := s.catalog.LookupProduct(req.ProductReference); err != nil {
		return nil, err
	}

	q, err := s.quoteRepo.FindByNumber(ctx, req.QuoteNumber)
	if err != nil {
		return nil, err
	}
	if !q.IsActive() {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Quote %s is %s", q.Number, q.Status)
	}
	line, ok := q.LineFor(req.ProductReference)
	if !ok {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Quote %s has no line for %s", q.Number, req.ProductReference)
	}
	unitPrice, err := valueobject.NewMoney(line.UnitPrice, q.Currency)
	if err != nil {
		return nil, err
	}

	order, err := ParseSourceOrder(req.PreferredSources)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		order = s.defaultOrder
	}

	var allocation *stock.Allocation
	telemetry.WithProfilingLabels(ctx, map[string]string{telemetry.ProfilingLabelOperation: "allocate"}, func(ctx context.Context) {
		allocation, err = s.ledger.Allocate(ctx, req.ProductReference, req.Quantity, order)
	})
	if err != nil {
		return nil, err
	}
	// Stock is debited; finish regardless of the caller going away.
	ctx = context.WithoutCancel(ctx)

	created := make([]*reservation.Reservation, 0, len(allocation.Lines))
	for _, l := range allocation.Lines {
		r, err := reservation.NewReservation(q.Number, q.CustomerName, q.Advisor, req.ProductReference, l.Source, l.Quantity, unitPrice)
		if err != nil {
			s.release(ctx, allocation)
			return nil, err
		}
		created = append(created, r)
	}
	if err := s.reservationRepo.SaveAll(ctx, created); err != nil {
		s.release(ctx, allocation)
		return nil, fmt.Errorf("save reservations: %w", err)
	}

	for _, r := range created {
		s.logger.Info("reservation created",
			zap.String("reservation_id", r.ID.String()),
			zap.String("quote_number", r.QuoteNumber),
			zap.String("product", r.ProductReference),
			zap.String("source", r.Source().String()),
			zap.String("quantity", r.Quantity.String()),
		)
		s.publish(ctx, r)
	}
	return created, nil
}

// release credits a failed create back to the ledger. The arena is always
// restored; only a store write that keeps failing is reported.
func (s *ReservationService) release(ctx context.Context, allocation *stock.Allocation) {
	if err := s.ledger.Release(ctx, allocation); err != nil {
		s.logger.Error("released allocation not persisted",
			zap.String("product", allocation.Reference),
			zap.String("quantity", allocation.Total().String()),
			zap.Error(err),
		)
	}
}

func (s *ReservationService) recordAttempt(ctx context.Context, req CreateReservationRequest, err error) {
	if s.businessMetrics == nil {
		return
	}
	outcome := telemetry.ReservationCreated
	switch {
	case err == nil:
	case shared.HasCode(err, shared.CodeInsufficientStock):
		outcome = telemetry.ReservationInsufficient
	case shared.HasCode(err, shared.CodeBusy):
		outcome = telemetry.ReservationBusy
	default:
		outcome = telemetry.ReservationFailed
	}
	s.businessMetrics.RecordReservation(ctx, outcome, req.Quantity)
}

// Validate approves a pending reservation
func (s *ReservationService) Validate(ctx context.Context, id uuid.UUID, actor reservation.Actor) (*ReservationResponse, error) {
	return s.transition(ctx, id, "validate", func(r *reservation.Reservation) error {
		return r.Validate(actor)
	}, nil)
}

// Reject refuses a pending reservation and credits its quantity back to the
// exact source it was taken from once the rejection is saved
func (s *ReservationService) Reject(ctx context.Context, id uuid.UUID, actor reservation.Actor, reason string) (*ReservationResponse, error) {
	return s.transition(ctx, id, "reject", func(r *reservation.Reservation) error {
		return r.Reject(actor, reason)
	}, s.creditRejected)
}

// Dispatch ships a validated reservation. The stock stays consumed and the
// sale is announced through ReservationDispatched. When events are published
// in-process, a sale that cannot be recorded reverts the dispatch.
func (s *ReservationService) Dispatch(ctx context.Context, id uuid.UUID, actor reservation.Actor) (*ReservationResponse, error) {
	return s.transition(ctx, id, "dispatch", func(r *reservation.Reservation) error {
		return r.Dispatch(actor)
	}, s.announceSale)
}

// settleFunc runs after a transition is saved, still under the reservation
// lock. previous is the reservation as loaded.
type settleFunc func(ctx context.Context, r *reservation.Reservation, previous reservation.Reservation) error

// transition runs apply on the reservation while holding its lock, persists it
// and then settles its side effects.
func (s *ReservationService) transition(ctx context.Context, id uuid.UUID, action string, apply func(*reservation.Reservation) error, settle settleFunc) (*ReservationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "reservation."+action, telemetry.SpanAttrReservationID, id.String())
	defer span.End()

	release, err := s.locker.Acquire(ctx, lockKey(id))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()
	ctx = context.WithoutCancel(ctx)

	r, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := *r
	previous.ClearDomainEvents()
	if err := apply(r); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.reservationRepo.Save(ctx, r); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("save reservation: %w", err)
	}
	if settle != nil {
		if err := settle(ctx, r, previous); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	s.logger.Info("reservation "+action,
		zap.String("reservation_id", r.ID.String()),
		zap.String("status", string(r.Status)),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordTransition(ctx, string(r.Status))
	}
	s.publish(ctx, r)

	response := ToReservationResponse(r)
	return &response, nil
}

// creditRejected returns the stock of a saved rejection. The arena credit
// always lands; a store write that keeps failing is logged and carried by the
// next write to the slot.
func (s *ReservationService) creditRejected(ctx context.Context, r *reservation.Reservation, _ reservation.Reservation) error {
	if err := s.ledger.Restore(ctx, r.Source(), r.ProductReference, r.Quantity); err != nil {
		s.logger.Error("rejected stock credited but not persisted",
			zap.String("reservation_id", r.ID.String()),
			zap.String("source", r.Source().String()),
			zap.String("quantity", r.Quantity.String()),
			zap.Error(err),
		)
	}
	return nil
}

// announceSale publishes the dispatch synchronously so the sale is credited
// before Dispatch returns. On failure the reservation is written back as it was
// loaded. With the outbox the events travel with the saved row instead and no
// publisher is set.
func (s *ReservationService) announceSale(ctx context.Context, r *reservation.Reservation, previous reservation.Reservation) error {
	if s.eventPublisher == nil {
		return nil
	}
	events := r.GetDomainEvents()
	r.ClearDomainEvents()
	if len(events) == 0 {
		return nil
	}
	err := s.eventPublisher.Publish(ctx, events...)
	if err == nil {
		return nil
	}

	s.logger.Error("sale not recorded, reverting dispatch",
		zap.String("reservation_id", r.ID.String()),
		zap.Error(err),
	)
	restored := previous
	restored.Version = r.Version + 1
	restored.UpdatedAt = time.Now().UTC()
	if rerr := s.reservationRepo.Save(ctx, &restored); rerr != nil {
		s.logger.Error("dispatch saved without its sale",
			zap.String("reservation_id", r.ID.String()),
			zap.Error(rerr),
		)
	} else {
		*r = restored
	}
	return shared.NewDomainErrorf(shared.CodeUnavailable,
		"Sale of reservation %s could not be recorded: %v", r.ID, err)
}

// GetReservation retrieves a reservation by ID
func (s *ReservationService) GetReservation(ctx context.Context, id uuid.UUID) (*ReservationResponse, error) {
	r, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToReservationResponse(r)
	return &response, nil
}

// ListReservations lists reservations with filtering and pagination
func (s *ReservationService) ListReservations(ctx context.Context, filter ListReservationsFilter) ([]ReservationResponse, int64, error) {
	f := reservation.ReservationFilter{
		Filter:      shared.DefaultFilter(),
		QuoteNumber: filter.QuoteNumber,
		Advisor:     filter.Advisor,
	}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		status, err := reservation.ParseStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		f.Status = status
	}

	items, total, err := s.reservationRepo.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ReservationResponse, len(items))
	for i := range items {
		out[i] = ToReservationResponse(&items[i])
	}
	return out, total, nil
}

func (s *ReservationService) publish(ctx context.Context, r *reservation.Reservation) {
	events := r.GetDomainEvents()
	r.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish reservation events",
			zap.String("reservation_id", r.ID.String()),
			zap.Error(err),
		)
	}
}

func lockKey(id uuid.UUID) string {
	return "reservation:" + id.String()
}
