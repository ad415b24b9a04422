package catalog

import (
	"context"
	"testing"

	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
	dombus "github.com/minicommerce/stocksync/internal/domain/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	handlers map[string]dombus.Handler
}

func (s *recordingSubscriber) Subscribe(eventName string, h dombus.Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string]dombus.Handler)
	}
	s.handlers[eventName] = h
}

func TestWorkerProjectsStockEvents(t *testing.T) {
	projector, repo := newTestProjector(t)
	seedProduct(t, repo)

	sub := &recordingSubscriber{}
	NewWorker(sub, projector, nil).Start()

	handler, ok := sub.handlers["stock.changed"]
	require.True(t, ok)

	require.NoError(t, handler(context.Background(), snapshot(2, 12)))

	stored, err := repo.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 12, stored.AvailableQuantity)
	assert.Equal(t, domcatalog.SyncStateSynced, stored.SyncState)
}

func TestWorkerIgnoresForeignEvents(t *testing.T) {
	projector, repo := newTestProjector(t)
	seedProduct(t, repo)

	sub := &recordingSubscriber{}
	NewWorker(sub, projector, nil).Start()

	err := sub.handlers["stock.changed"](context.Background(), domcatalog.ProductCreatedEvent{ProductID: "prod-1"})
	require.NoError(t, err)

	stored, gerr := repo.Get(context.Background(), "prod-1")
	require.NoError(t, gerr)
	assert.Equal(t, domcatalog.SyncStateUnsynced, stored.SyncState)
}
