package models

import (
	"time"

	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// StockContainerModel is a registered shipping container
type StockContainerModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Carrier   string    `gorm:"type:varchar(100)"`
	ETA       time.Time `gorm:"column:eta;not null"`
	Status    string    `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockContainerModel) TableName() string {
	return "stock_containers"
}

// ToDomain converts the model to a container record
func (m *StockContainerModel) ToDomain() stock.ContainerRecord {
	return stock.ContainerRecord{
		ID:        m.ID,
		Carrier:   m.Carrier,
		ETA:       m.ETA,
		Status:    stock.ContainerStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

// StockContainerModelFromDomain converts a container record to its model
func StockContainerModelFromDomain(c stock.ContainerRecord) *StockContainerModel {
	return &StockContainerModel{
		ID:        c.ID,
		Carrier:   c.Carrier,
		ETA:       c.ETA,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
	}
}

// StockHoldingModel is the quantity of one product held at one source
type StockHoldingModel struct {
	SourceType string          `gorm:"type:varchar(20);primaryKey"`
	SourceID   string          `gorm:"type:varchar(64);primaryKey"`
	Reference  string          `gorm:"type:varchar(100);primaryKey"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockHoldingModel) TableName() string {
	return "stock_holdings"
}

// ToDomain converts the model to a holding
func (m *StockHoldingModel) ToDomain() stock.Holding {
	return stock.Holding{
		Source:    stock.SourceKey{Type: stock.SourceType(m.SourceType), ID: m.SourceID},
		Reference: m.Reference,
		Quantity:  m.Quantity,
	}
}
