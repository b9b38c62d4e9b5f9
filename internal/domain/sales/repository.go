package sales

import "context"

// SalesRepository stores per-advisor monthly totals
type SalesRepository interface {
	// Add increases the advisor's total for the period, creating the record if needed
	Add(ctx context.Context, record *SalesRecord) error
	// Find returns the record or NOT_FOUND
	Find(ctx context.Context, advisor string, period Period) (*SalesRecord, error)
	// FindRange returns the existing records of the advisor between from and to inclusive
	FindRange(ctx context.Context, advisor string, from, to Period) ([]SalesRecord, error)
	// ReplaceAll swaps the whole table for records in one transaction
	ReplaceAll(ctx context.Context, records []SalesRecord) error
}
