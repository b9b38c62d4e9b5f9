package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/marmoleria/backend/internal/domain/sales"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSalesRepository implements sales.SalesRepository using GORM. Advisors
// are matched case-insensitively.
type GormSalesRepository struct {
	db *gorm.DB
}

// NewGormSalesRepository creates a new GormSalesRepository
func NewGormSalesRepository(db *gorm.DB) *GormSalesRepository {
	return &GormSalesRepository{db: db}
}

func advisorKey(advisor string) string {
	return strings.ToLower(strings.TrimSpace(advisor))
}

// Add accumulates record into the advisor's monthly total with a single
// upsert, so concurrent first sales of a month cannot lose each other. A
// record in another currency than the stored total updates nothing.
func (r *GormSalesRepository) Add(ctx context.Context, record *sales.SalesRecord) error {
	row := models.SalesRecordModel{
		Advisor:     advisorKey(record.Advisor),
		Period:      record.Period.String(),
		DisplayName: record.Advisor,
		Amount:      record.Amount,
		Currency:    string(record.Currency),
		UpdatedAt:   time.Now(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "advisor"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]any{
			"amount":     gorm.Expr("sales_records.amount + excluded.amount"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("sales_records.currency = excluded.currency"),
		}},
	}).Create(&row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.CodeCurrencyMismatch, "Sales of %s are recorded in another currency than %s", record.Advisor, record.Currency)
	}
	return nil
}

// Find returns the record of advisor in period
func (r *GormSalesRepository) Find(ctx context.Context, advisor string, period sales.Period) (*sales.SalesRecord, error) {
	var model models.SalesRecordModel
	err := r.db.WithContext(ctx).
		Where("advisor = ? AND period = ?", advisorKey(advisor), period.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorf(shared.CodeNotFound, "No sales recorded for %s in %s", advisor, period)
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindRange returns the stored records of advisor between from and to, oldest first
func (r *GormSalesRepository) FindRange(ctx context.Context, advisor string, from, to sales.Period) ([]sales.SalesRecord, error) {
	var rows []models.SalesRecordModel
	if err := r.db.WithContext(ctx).
		Where("advisor = ? AND period >= ? AND period <= ?", advisorKey(advisor), from.String(), to.String()).
		Order("period ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]sales.SalesRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// ReplaceAll swaps the whole table for records in one transaction
func (r *GormSalesRepository) ReplaceAll(ctx context.Context, records []sales.SalesRecord) error {
	now := time.Now()
	rows := make([]models.SalesRecordModel, len(records))
	for i, rec := range records {
		rows[i] = models.SalesRecordModel{
			Advisor:     advisorKey(rec.Advisor),
			Period:      rec.Period.String(),
			DisplayName: rec.Advisor,
			Amount:      rec.Amount,
			Currency:    string(rec.Currency),
			UpdatedAt:   now,
		}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SalesRecordModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

var _ sales.SalesRepository = (*GormSalesRepository)(nil)
