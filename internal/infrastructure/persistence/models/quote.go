package models

import (
	"time"

	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// QuoteModel is the persistence model of a quote. Lines, supplies and details
// are immutable and stored as JSON.
type QuoteModel struct {
	AggregateModel
	Number          string             `gorm:"type:varchar(32);not null;uniqueIndex"`
	Profile         string             `gorm:"type:varchar(50);not null"`
	CustomerName    string             `gorm:"type:varchar(200);not null"`
	Advisor         string             `gorm:"type:varchar(100);not null;index"`
	DestinationCity string             `gorm:"type:varchar(100)"`
	Currency        string             `gorm:"type:varchar(3);not null"`
	Lines           []quote.Line       `gorm:"serializer:json;type:jsonb;not null"`
	Supplies        []quote.SupplyLine `gorm:"serializer:json;type:jsonb"`
	ShippingCost    decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
	Total           decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Details         quote.Details      `gorm:"serializer:json;type:jsonb"`
	Status          string             `gorm:"type:varchar(20);not null;index"`
	CancelledAt     *time.Time
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the model to a quote
func (m *QuoteModel) ToDomain() *quote.Quote {
	return &quote.Quote{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Number:            m.Number,
		Profile:           m.Profile,
		CustomerName:      m.CustomerName,
		Advisor:           m.Advisor,
		DestinationCity:   m.DestinationCity,
		Currency:          valueobject.Currency(m.Currency),
		Lines:             m.Lines,
		Supplies:          m.Supplies,
		ShippingCost:      m.ShippingCost,
		Total:             m.Total,
		Details:           m.Details,
		Status:            quote.Status(m.Status),
		CancelledAt:       m.CancelledAt,
	}
}

// QuoteModelFromDomain converts a quote to its model
func QuoteModelFromDomain(q *quote.Quote) *QuoteModel {
	m := &QuoteModel{
		Number:          q.Number,
		Profile:         q.Profile,
		CustomerName:    q.CustomerName,
		Advisor:         q.Advisor,
		DestinationCity: q.DestinationCity,
		Currency:        string(q.Currency),
		Lines:           q.Lines,
		Supplies:        q.Supplies,
		ShippingCost:    q.ShippingCost,
		Total:           q.Total,
		Details:         q.Details,
		Status:          string(q.Status),
		CancelledAt:     q.CancelledAt,
	}
	m.FromDomainAggregateRoot(q.BaseAggregateRoot)
	return m
}
