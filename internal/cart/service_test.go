package cart

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groenvelt/storefront-bff/pkg/config"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

func testService(remote remoteCart) (*Service, *Syncer) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	store := NewStore(newMemoryKV(), config.CartConfig{SessionTTL: time.Hour})
	syncer := NewSyncer(remote, config.CartConfig{SyncTimeout: time.Second, SyncQueue: 16}, logg, nil)
	return NewService(store, syncer, logg), syncer
}

func TestAddItemEnqueuesMergedQuantity(t *testing.T) {
	remote := newFakeRemote()
	svc, syncer := testService(remote)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", Line{ProductID: 7, Price: price("2.50"), Quantity: 2})
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, "s1", Line{ProductID: 7, Price: price("2.50"), Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Lines[0].Quantity)

	// Two jobs queued; the second carries the merged absolute quantity.
	first := <-syncer.queue
	second := <-syncer.queue
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, 5, second.Quantity)
	assert.Equal(t, OpSet, second.Op)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestReconcileClearsStaleLocalCart(t *testing.T) {
	remote := newFakeRemote() // upstream cart is empty
	svc, _ := testService(remote)
	ctx := context.Background()

	store := svc.store
	_, err := store.AddItem(ctx, "s1", Line{ProductID: 7, Price: price("2.50"), Quantity: 2})
	require.NoError(t, err)

	cart, err := svc.Reconcile(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines, "empty upstream cart means the local copy is stale")
}

func TestReconcileKeepsCartWhilePushesPending(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := testService(remote)
	ctx := context.Background()

	// AddItem via the service enqueues a push that no worker consumes,
	// so the session is not settled.
	cart, err := svc.AddItem(ctx, "s1", Line{ProductID: 7, Price: price("2.50"), Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)

	cart, err = svc.Reconcile(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1, "unsettled sessions must not be reconciled against upstream")
}

func TestReconcileKeepsCartWhenUpstreamUnreachable(t *testing.T) {
	remote := newFakeRemote()
	remote.failAll = true
	svc, _ := testService(remote)
	ctx := context.Background()

	_, err := svc.store.AddItem(ctx, "s1", Line{ProductID: 7, Price: price("2.50"), Quantity: 2})
	require.NoError(t, err)

	cart, err := svc.Reconcile(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1, "an unreachable upstream is no reason to drop the cart")
}

func TestReconcileKeepsMatchingCarts(t *testing.T) {
	remote := newFakeRemote()
	remote.items[7] = 2
	svc, _ := testService(remote)
	ctx := context.Background()

	_, err := svc.store.AddItem(ctx, "s1", Line{ProductID: 7, Price: price("2.50"), Quantity: 2})
	require.NoError(t, err)

	cart, err := svc.Reconcile(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
}

func TestClearIsLocalOnly(t *testing.T) {
	remote := newFakeRemote()
	svc, syncer := testService(remote)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", Line{ProductID: 7, Price: price("2.50"), Quantity: 2})
	require.NoError(t, err)
	cart, err := svc.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	<-syncer.queue // the add
	select {
	case job := <-syncer.queue:
		t.Fatalf("clear must not notify the upstream cart, got %+v", job)
	default:
	}
}

func TestReconcileRepairsDroppedPush(t *testing.T) {
	remote := newFakeRemote()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	store := NewStore(newMemoryKV(), config.CartConfig{SessionTTL: time.Hour})
	syncer := NewSyncer(remote, config.CartConfig{SyncTimeout: time.Second, SyncQueue: 1}, logg, nil)
	svc := NewService(store, syncer, logg)
	ctx := context.Background()

	// The first session's push fills the queue; the second session's
	// push is dropped on the floor.
	_, err := svc.AddItem(ctx, "session-a", Line{ProductID: 1, Price: price("1.00"), Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "session-b", Line{ProductID: 7, Price: price("2.50"), Quantity: 2})
	require.NoError(t, err)

	// The dropped push must never cost the shopper their cart, even
	// though the upstream cart is still empty.
	cart, err := svc.Reconcile(ctx, "session-b")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1, "reconcile must not clear a cart whose push was dropped")
	assert.False(t, syncer.Settled("session-b"))

	// Free the queue slot; the next fetch re-enqueues the full state.
	<-syncer.queue
	cart, err = svc.Reconcile(ctx, "session-b")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)

	repair := <-syncer.queue
	assert.Equal(t, int64(7), repair.ProductID)
	assert.Equal(t, 2, repair.Quantity)
	syncer.apply(repair)
	assert.True(t, syncer.Settled("session-b"))
	assert.Equal(t, 2, remote.quantity(7))
}
