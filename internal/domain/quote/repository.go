package quote

import (
	"context"

	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/shared"
)

// QuoteRepository persists quotes
type QuoteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)
	FindByNumber(ctx context.Context, number string) (*Quote, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Quote, int64, error)
	Save(ctx context.Context, q *Quote) error
}

// NumberSequence hands out monotonically increasing quote sequence numbers per year
type NumberSequence interface {
	Next(ctx context.Context, year int) (int64, error)
}
