package models

import (
	"time"

	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// ReservationModel is the persistence model of a reservation
type ReservationModel struct {
	AggregateModel
	QuoteNumber      string          `gorm:"type:varchar(32);not null;index"`
	Customer         string          `gorm:"type:varchar(200)"`
	ProductReference string          `gorm:"type:varchar(100);not null;index"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SourceType       string          `gorm:"type:varchar(20);not null"`
	SourceID         string          `gorm:"type:varchar(64);not null"`
	Advisor          string          `gorm:"type:varchar(100);not null;index"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	Status           string          `gorm:"type:varchar(20);not null;index"`
	RejectReason     string          `gorm:"type:text"`
	ValidatedAt      *time.Time
	ValidatedBy      string `gorm:"type:varchar(100)"`
	RejectedAt       *time.Time
	RejectedBy       string `gorm:"type:varchar(100)"`
	DispatchedAt     *time.Time
	DispatchedBy     string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ReservationModel) TableName() string {
	return "reservations"
}

// ToDomain converts the model to a reservation
func (m *ReservationModel) ToDomain() *reservation.Reservation {
	return &reservation.Reservation{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		QuoteNumber:       m.QuoteNumber,
		Customer:          m.Customer,
		ProductReference:  m.ProductReference,
		Quantity:          m.Quantity,
		SourceType:        stock.SourceType(m.SourceType),
		SourceID:          m.SourceID,
		Advisor:           m.Advisor,
		UnitPrice:         m.UnitPrice,
		Currency:          valueobject.Currency(m.Currency),
		Status:            reservation.Status(m.Status),
		RejectReason:      m.RejectReason,
		ValidatedAt:       m.ValidatedAt,
		ValidatedBy:       m.ValidatedBy,
		RejectedAt:        m.RejectedAt,
		RejectedBy:        m.RejectedBy,
		DispatchedAt:      m.DispatchedAt,
		DispatchedBy:      m.DispatchedBy,
	}
}

// ReservationModelFromDomain converts a reservation to its model
func ReservationModelFromDomain(r *reservation.Reservation) *ReservationModel {
	m := &ReservationModel{
		QuoteNumber:      r.QuoteNumber,
		Customer:         r.Customer,
		ProductReference: r.ProductReference,
		Quantity:         r.Quantity,
		SourceType:       string(r.SourceType),
		SourceID:         r.SourceID,
		Advisor:          r.Advisor,
		UnitPrice:        r.UnitPrice,
		Currency:         string(r.Currency),
		Status:           string(r.Status),
		RejectReason:     r.RejectReason,
		ValidatedAt:      r.ValidatedAt,
		ValidatedBy:      r.ValidatedBy,
		RejectedAt:       r.RejectedAt,
		RejectedBy:       r.RejectedBy,
		DispatchedAt:     r.DispatchedAt,
		DispatchedBy:     r.DispatchedBy,
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	return m
}
