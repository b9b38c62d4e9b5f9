package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReservationRepository implements reservation.ReservationRepository using GORM
type GormReservationRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// SetOutboxEventSaver makes SaveAll and Save write pending domain events to
// the outbox in the same transaction as the reservations
func (r *GormReservationRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a reservation by ID
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	var model models.ReservationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Reservation %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists reservations matching filter
func (r *GormReservationRepository) FindAll(ctx context.Context, filter reservation.ReservationFilter) ([]reservation.Reservation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReservationModel{})
	if filter.QuoteNumber != "" {
		query = query.Where("quote_number = ?", filter.QuoteNumber)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Advisor != "" {
		query = query.Where("LOWER(advisor) = ?", strings.ToLower(filter.Advisor))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, ReservationSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir)).Order("id")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.ReservationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toReservations(rows), total, nil
}

// FindByStatus returns every reservation in status, oldest first
func (r *GormReservationRepository) FindByStatus(ctx context.Context, status reservation.Status) ([]reservation.Reservation, error) {
	var rows []models.ReservationModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC").Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toReservations(rows), nil
}

// SaveAll inserts the reservations of one create call in a single transaction
func (r *GormReservationRepository) SaveAll(ctx context.Context, reservations []*reservation.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	rows := make([]*models.ReservationModel, len(reservations))
	var events []shared.DomainEvent
	for i, res := range reservations {
		rows[i] = models.ReservationModelFromDomain(res)
		events = append(events, res.GetDomainEvents()...)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert reservations: %w", err)
		}
		return saveOutbox(ctx, tx, r.outboxSaver, events)
	})
}

// Save updates a reservation. The stored row must still carry the version the
// reservation was loaded with.
func (r *GormReservationRepository) Save(ctx context.Context, res *reservation.Reservation) error {
	model := models.ReservationModelFromDomain(res)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ReservationModel{}).
			Where("id = ? AND version = ?", res.ID, res.Version-1).
			Updates(map[string]any{
				"status":        model.Status,
				"reject_reason": model.RejectReason,
				"validated_at":  model.ValidatedAt,
				"validated_by":  model.ValidatedBy,
				"rejected_at":   model.RejectedAt,
				"rejected_by":   model.RejectedBy,
				"dispatched_at": model.DispatchedAt,
				"dispatched_by": model.DispatchedBy,
				"version":       model.Version,
				"updated_at":    model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.ReservationModel{}).Where("id = ?", res.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.NewDomainErrorf(shared.CodeNotFound, "Reservation %s not found", res.ID)
			}
			return shared.NewDomainError(shared.CodeConcurrencyConflict, "Reservation was modified concurrently")
		}
		return saveOutbox(ctx, tx, r.outboxSaver, res.GetDomainEvents())
	})
}

func toReservations(rows []models.ReservationModel) []reservation.Reservation {
	out := make([]reservation.Reservation, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ reservation.ReservationRepository = (*GormReservationRepository)(nil)
