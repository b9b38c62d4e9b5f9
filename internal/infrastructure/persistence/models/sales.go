package models

import (
	"time"

	"github.com/marmoleria/backend/internal/domain/sales"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SalesRecordModel is the dispatched total of an advisor in a month. Advisor
// holds the lower-cased key; DisplayName keeps the first spelling seen.
type SalesRecordModel struct {
	Advisor     string          `gorm:"type:varchar(100);primaryKey"`
	Period      string          `gorm:"type:varchar(7);primaryKey"`
	DisplayName string          `gorm:"type:varchar(100);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency    string          `gorm:"type:varchar(3);not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SalesRecordModel) TableName() string {
	return "sales_records"
}

// ToDomain converts the model to a sales record
func (m *SalesRecordModel) ToDomain() (*sales.SalesRecord, error) {
	period, err := sales.ParsePeriod(m.Period)
	if err != nil {
		return nil, err
	}
	return &sales.SalesRecord{
		Advisor:  m.DisplayName,
		Period:   period,
		Amount:   m.Amount,
		Currency: valueobject.Currency(m.Currency),
	}, nil
}
