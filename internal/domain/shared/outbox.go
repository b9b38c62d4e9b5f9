package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry.
//
//	PENDING ─┬─> PROCESSING ─┬─> SENT
//	         │               └─> FAILED ──> PROCESSING (retry)
//	         │                     └─> DEAD ──> PENDING (manual retry)
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	// MaxBackoff caps the delay between delivery attempts.
	MaxBackoff = 5 * time.Minute
)

var outboxTransitions = map[OutboxStatus][]OutboxStatus{
	OutboxStatusPending:    {OutboxStatusProcessing},
	OutboxStatusProcessing: {OutboxStatusSent, OutboxStatusFailed, OutboxStatusDead},
	OutboxStatusFailed:     {OutboxStatusProcessing},
	OutboxStatusDead:       {OutboxStatusPending},
}

func (s OutboxStatus) canMoveTo(next OutboxStatus) bool {
	for _, allowed := range outboxTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OutboxEntry is a domain event waiting to be delivered to the event bus.
// It is written in the same transaction as the aggregate that raised it.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps a serialized event in a PENDING entry.
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (e *OutboxEntry) moveTo(next OutboxStatus) error {
	if !e.Status.canMoveTo(next) {
		return NewDomainErrorf(CodeInvalidTransition, "Outbox entry %s cannot move from %s to %s", e.ID, e.Status, next)
	}
	e.Status = next
	e.UpdatedAt = time.Now()
	return nil
}

// CanRetry reports whether a failed entry still has attempts left.
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkProcessing claims a pending or failed entry for delivery.
func (e *OutboxEntry) MarkProcessing() error {
	return e.moveTo(OutboxStatusProcessing)
}

// MarkSent records a successful delivery.
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a failed attempt. The entry goes DEAD once the attempts
// are exhausted, otherwise it is scheduled after RetryBackoff.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()
	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := e.UpdatedAt.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// RetryBackoff doubles from DefaultBaseBackoff per attempt, capped at MaxBackoff.
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		return DefaultBaseBackoff
	}
	d := DefaultBaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	return d
}

// ResetForRetry sends a dead entry back to the pending queue with a fresh
// attempt budget.
func (e *OutboxEntry) ResetForRetry() error {
	if err := e.moveTo(OutboxStatusPending); err != nil {
		return err
	}
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	return nil
}

// IsDead reports whether the entry needs manual intervention.
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository persists outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns failed entries whose next retry is due before the given time
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// MarkProcessing claims the entries and returns the ones actually claimed
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
