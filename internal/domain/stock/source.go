package stock

import (
	"fmt"
	"strings"
	"time"

	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SourceType tags the variant of a stock source
type SourceType string

const (
	SourceTypeContainer SourceType = "CONTAINER"
	SourceTypeWarehouse SourceType = "WAREHOUSE"
	SourceTypeFreeZone  SourceType = "FREE_ZONE"
)

// SingletonID is the ID of the warehouse and the free zone
const SingletonID = "main"

// IsValid checks if the source type is valid
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeContainer, SourceTypeWarehouse, SourceTypeFreeZone:
		return true
	}
	return false
}

// ParseSourceType parses a source type, accepting lower case and the
// "Warehouse"/"FreeZone" spellings used by advisors
func ParseSourceType(s string) (SourceType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	switch norm {
	case "FREEZONE", "ZONA_FRANCA":
		norm = string(SourceTypeFreeZone)
	case "BODEGA":
		norm = string(SourceTypeWarehouse)
	}
	t := SourceType(norm)
	if !t.IsValid() {
		return "", shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown source type %q", s)
	}
	return t, nil
}

// SourceKey addresses a source in the ledger arena
type SourceKey struct {
	Type SourceType `json:"type"`
	ID   string     `json:"id"`
}

// WarehouseKey is the key of the single warehouse
var WarehouseKey = SourceKey{Type: SourceTypeWarehouse, ID: SingletonID}

// FreeZoneKey is the key of the single free-trade zone
var FreeZoneKey = SourceKey{Type: SourceTypeFreeZone, ID: SingletonID}

// ContainerKey returns the key of a container
func ContainerKey(id string) SourceKey {
	return SourceKey{Type: SourceTypeContainer, ID: id}
}

// NewSourceKey builds a key, defaulting singleton IDs
func NewSourceKey(t SourceType, id string) (SourceKey, error) {
	if !t.IsValid() {
		return SourceKey{}, shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown source type %q", t)
	}
	if t != SourceTypeContainer {
		return SourceKey{Type: t, ID: SingletonID}, nil
	}
	return SourceKey{Type: t, ID: strings.TrimSpace(id)}, nil
}

// String returns TYPE:ID
func (k SourceKey) String() string {
	return fmt.Sprintf("%s:%s", k.Type, k.ID)
}

// SlotKey returns the lock key of one (source, product) slot
func (k SourceKey) SlotKey(reference string) string {
	return fmt.Sprintf("%s:%s:%s", k.Type, k.ID, reference)
}

// StockSource is the capability shared by every source variant
type StockSource interface {
	Key() SourceKey
	QuantityOf(reference string) decimal.Decimal
	Eligible(policy EligibilityPolicy) bool
}

// holdings is the per-product quantity held by a source. Quantities are never negative.
type holdings map[string]decimal.Decimal

func (h holdings) quantityOf(reference string) decimal.Decimal {
	if q, ok := h[reference]; ok {
		return q
	}
	return decimal.Zero
}

func (h holdings) set(reference string, qty decimal.Decimal) {
	if qty.IsZero() {
		delete(h, reference)
		return
	}
	h[reference] = qty
}

func (h holdings) clone() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Container is an import container holding stock until it is eligible for allocation
type Container struct {
	ID        string
	Carrier   string
	ETA       time.Time
	Status    ContainerStatus
	CreatedAt time.Time
	holdings  holdings
}

// NewContainer creates a container in production
func NewContainer(id, carrier string, eta time.Time) (*Container, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Container ID cannot be empty")
	}
	return &Container{
		ID:        id,
		Carrier:   carrier,
		ETA:       eta,
		Status:    ContainerStatusInProduction,
		CreatedAt: time.Now().UTC(),
		holdings:  holdings{},
	}, nil
}

func (c *Container) Key() SourceKey { return ContainerKey(c.ID) }

func (c *Container) QuantityOf(reference string) decimal.Decimal {
	return c.holdings.quantityOf(reference)
}

// Eligible reports whether the container's status allows allocation
func (c *Container) Eligible(policy EligibilityPolicy) bool {
	return policy.Allows(c.Status)
}

// Warehouse is the company warehouse
type Warehouse struct {
	holdings holdings
}

func (w *Warehouse) Key() SourceKey { return WarehouseKey }
func (w *Warehouse) QuantityOf(reference string) decimal.Decimal { return w.holdings.quantityOf(reference) }
func (w *Warehouse) Eligible(EligibilityPolicy) bool { return true }

// FreeZone is the free-trade zone depot
type FreeZone struct {
	holdings holdings
}

func (f *FreeZone) Key() SourceKey { return FreeZoneKey }
func (f *FreeZone) QuantityOf(reference string) decimal.Decimal { return f.holdings.quantityOf(reference) }
func (f *FreeZone) Eligible(EligibilityPolicy) bool { return true }

// holdingsOf exposes the mutable holdings of any variant to the ledger
func holdingsOf(s StockSource) holdings {
	switch v := s.(type) {
	case *Container:
		return v.holdings
	case *Warehouse:
		return v.holdings
	case *FreeZone:
		return v.holdings
	}
	panic(fmt.Sprintf("stock: unknown source variant %T", s))
}
