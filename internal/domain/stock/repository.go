package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ContainerRecord is the persisted form of a container
type ContainerRecord struct {
	ID        string
	Carrier   string
	ETA       time.Time
	Status    ContainerStatus
	CreatedAt time.Time
}

// Holding is the persisted quantity of one product at one source
type Holding struct {
	Source    SourceKey
	Reference string
	Quantity  decimal.Decimal
}

// State is everything the ledger needs to rebuild its arena
type State struct {
	Containers []ContainerRecord
	Holdings   []Holding
}

// Movement is one applied change to a holding. Balance is the resulting
// quantity, so applying the same movement twice is harmless.
type Movement struct {
	Source    SourceKey
	Reference string
	Delta     decimal.Decimal
	Balance   decimal.Decimal
}

// StockStore persists the ledger. Apply must write all movements in a single
// transaction or none of them.
type StockStore interface {
	Load(ctx context.Context) (*State, error)
	SaveContainer(ctx context.Context, c ContainerRecord) error
	Apply(ctx context.Context, movements []Movement) error
}
