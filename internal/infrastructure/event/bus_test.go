package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
	Note string `json:"note"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Test", uuid.New())}
}

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	created := &recordingHandler{types: []string{"Created"}}
	all := &recordingHandler{}
	bus.Subscribe(created)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(ctx, newTestEvent("Created"), newTestEvent("Cancelled")))
	assert.Equal(t, 1, created.count())
	assert.Equal(t, 2, all.count())

	bus.Unsubscribe(created)
	require.NoError(t, bus.Publish(ctx, newTestEvent("Created")))
	assert.Equal(t, 1, created.count())
	assert.Equal(t, 3, all.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &recordingHandler{types: []string{"Created"}}
	bus.Subscribe(h, "Cancelled")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Created"), newTestEvent("Cancelled")))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_HandlerFailures(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{types: []string{"Created"}, err: errors.New("db down")}
	panicking := &recordingHandler{types: []string{"Created"}, panics: true}
	healthy := &recordingHandler{types: []string{"Created"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("Created"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 1, healthy.count(), "other handlers still run")
}
