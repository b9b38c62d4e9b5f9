package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormQuoteRepository implements quote.QuoteRepository using GORM
type GormQuoteRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// SetOutboxEventSaver makes Save write pending domain events to the outbox
// in the same transaction as the quote
func (r *GormQuoteRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a quote by ID
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*quote.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Quote not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a quote by its number
func (r *GormQuoteRepository) FindByNumber(ctx context.Context, number string) (*quote.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Quote %s not found", number)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists quotes. Supported filters: search (number or customer),
// advisor and status.
func (r *GormQuoteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]quote.Quote, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QuoteModel{})

	if search, ok := filter.Filters["search"].(string); ok && strings.TrimSpace(search) != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
		query = query.Where("LOWER(number) LIKE ? OR LOWER(customer_name) LIKE ?", like, like)
	}
	if advisor, ok := filter.Filters["advisor"].(string); ok && advisor != "" {
		query = query.Where("LOWER(advisor) = ?", strings.ToLower(advisor))
	}
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, QuoteSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.QuoteModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	quotes := make([]quote.Quote, len(rows))
	for i := range rows {
		quotes[i] = *rows[i].ToDomain()
	}
	return quotes, total, nil
}

// Save upserts a quote with an optimistic version check on updates
func (r *GormQuoteRepository) Save(ctx context.Context, q *quote.Quote) error {
	model := models.QuoteModelFromDomain(q)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if q.Version <= 1 {
			if err := tx.Create(model).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.NewDomainErrorf(shared.CodeAlreadyExists, "Quote %s already exists", q.Number)
				}
				return err
			}
		} else {
			result := tx.Model(&models.QuoteModel{}).
				Where("id = ? AND version = ?", q.ID, q.Version-1).
				Updates(map[string]any{
					"status":       model.Status,
					"cancelled_at": model.CancelledAt,
					"version":      model.Version,
					"updated_at":   model.UpdatedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.NewDomainError(shared.CodeConcurrencyConflict, "Quote was modified concurrently")
			}
		}
		return saveOutbox(ctx, tx, r.outboxSaver, q.GetDomainEvents())
	})
}

// MaxSequence returns the highest sequence used by quote numbers of year, or 0
func (r *GormQuoteRepository) MaxSequence(ctx context.Context, year int) (int64, error) {
	prefix := quote.FormatNumber(year, 0)
	prefix = prefix[:strings.LastIndex(prefix, "-")+1]

	var numbers []string
	if err := r.db.WithContext(ctx).Model(&models.QuoteModel{}).
		Where("number LIKE ?", prefix+"%").
		Order("number DESC").
		Limit(1).
		Pluck("number", &numbers).Error; err != nil {
		return 0, err
	}
	if len(numbers) == 0 {
		return 0, nil
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(numbers[0], prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quote number %q: %w", numbers[0], err)
	}
	return seq, nil
}

// saveOutbox writes events through saver inside tx when outbox delivery is on
func saveOutbox(ctx context.Context, tx *gorm.DB, saver shared.OutboxEventSaver, events []shared.DomainEvent) error {
	if saver == nil || len(events) == 0 {
		return nil
	}
	if err := saver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

var _ quote.QuoteRepository = (*GormQuoteRepository)(nil)
