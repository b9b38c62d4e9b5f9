package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/marmoleria/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockStore implements stock.StockStore using GORM. The ledger keeps the
// authoritative balances in memory and writes resulting balances here.
type GormStockStore struct {
	db *gorm.DB
}

// NewGormStockStore creates a new GormStockStore
func NewGormStockStore(db *gorm.DB) *GormStockStore {
	return &GormStockStore{db: db}
}

// Load reads every container and holding
func (s *GormStockStore) Load(ctx context.Context) (*stock.State, error) {
	var containers []models.StockContainerModel
	if err := s.db.WithContext(ctx).Order("id").Find(&containers).Error; err != nil {
		return nil, fmt.Errorf("load containers: %w", err)
	}
	var holdings []models.StockHoldingModel
	if err := s.db.WithContext(ctx).
		Order("source_type").Order("source_id").Order("reference").
		Find(&holdings).Error; err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}

	state := &stock.State{
		Containers: make([]stock.ContainerRecord, len(containers)),
		Holdings:   make([]stock.Holding, len(holdings)),
	}
	for i := range containers {
		state.Containers[i] = containers[i].ToDomain()
	}
	for i := range holdings {
		state.Holdings[i] = holdings[i].ToDomain()
	}
	return state, nil
}

// SaveContainer inserts or updates a container
func (s *GormStockStore) SaveContainer(ctx context.Context, c stock.ContainerRecord) error {
	model := models.StockContainerModelFromDomain(c)
	model.UpdatedAt = time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = model.UpdatedAt
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"carrier", "eta", "status", "updated_at"}),
	}).Create(model).Error
}

// Apply writes the resulting balances of movements in one transaction
func (s *GormStockStore) Apply(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]models.StockHoldingModel, len(movements))
	for i, m := range movements {
		rows[i] = models.StockHoldingModel{
			SourceType: string(m.Source.Type),
			SourceID:   m.Source.ID,
			Reference:  m.Reference,
			Quantity:   m.Balance,
			UpdatedAt:  now,
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_type"}, {Name: "source_id"}, {Name: "reference"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&rows).Error
	})
}

var _ stock.StockStore = (*GormStockStore)(nil)
