package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groenvelt/storefront-bff/internal/upstream/woocommerce"
	"github.com/groenvelt/storefront-bff/pkg/config"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

// fakeRemote records the upstream calls the syncer makes.
type fakeRemote struct {
	mu      sync.Mutex
	items   map[int64]int // productID -> quantity in the remote cart
	calls   []string
	failAll bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{items: make(map[int64]int)}
}

func (f *fakeRemote) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) snapshot() *woocommerce.StoreCart {
	cart := &woocommerce.StoreCart{}
	for id, qty := range f.items {
		cart.Items = append(cart.Items, woocommerce.StoreCartItem{Key: itemKeyFor(id), ID: id, Quantity: qty})
		cart.ItemsCount += qty
	}
	return cart
}

func itemKeyFor(id int64) string {
	return "key-" + string(rune('a'+id%26))
}

func (f *fakeRemote) GetCart(context.Context, *woocommerce.CartSession) (*woocommerce.StoreCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, assert.AnError
	}
	f.record("get")
	return f.snapshot(), nil
}

func (f *fakeRemote) AddItem(_ context.Context, _ *woocommerce.CartSession, productID int64, quantity int) (*woocommerce.StoreCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, assert.AnError
	}
	f.record("add")
	f.items[productID] = quantity
	return f.snapshot(), nil
}

func (f *fakeRemote) UpdateItem(_ context.Context, _ *woocommerce.CartSession, itemKey string, quantity int) (*woocommerce.StoreCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, assert.AnError
	}
	f.record("update")
	for id := range f.items {
		if itemKeyFor(id) == itemKey {
			f.items[id] = quantity
		}
	}
	return f.snapshot(), nil
}

func (f *fakeRemote) RemoveItem(_ context.Context, _ *woocommerce.CartSession, itemKey string) (*woocommerce.StoreCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, assert.AnError
	}
	f.record("remove")
	for id := range f.items {
		if itemKeyFor(id) == itemKey {
			delete(f.items, id)
		}
	}
	return f.snapshot(), nil
}

func (f *fakeRemote) FindItemKey(_ context.Context, _ *woocommerce.CartSession, productID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", assert.AnError
	}
	if _, ok := f.items[productID]; ok {
		return itemKeyFor(productID), nil
	}
	return "", nil
}

func (f *fakeRemote) quantity(productID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[productID]
}

func (f *fakeRemote) mutationCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		if call != "get" {
			out = append(out, call)
		}
	}
	return out
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{outcomes: make(map[string]int)}
}

func (o *countingObserver) IncCartSync(op, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[op+"/"+outcome]++
}

func (o *countingObserver) count(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[key]
}

func testSyncer(remote remoteCart, queueSize int) *Syncer {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	return NewSyncer(remote, config.CartConfig{
		SyncTimeout: time.Second,
		SyncQueue:   queueSize,
	}, logg, newCountingObserver())
}

func TestCoalesceKeepsNewestJobPerProduct(t *testing.T) {
	syncer := testSyncer(newFakeRemote(), 16)
	ctx := context.Background()

	for seq := uint64(1); seq <= 5; seq++ {
		syncer.Enqueue(ctx, Job{SessionID: "s1", ProductID: 7, Quantity: int(seq), Op: OpSet, Seq: seq})
	}
	syncer.Enqueue(ctx, Job{SessionID: "s1", ProductID: 9, Quantity: 1, Op: OpSet, Seq: 6})

	batch := syncer.coalesce(<-syncer.queue)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(7), batch[0].ProductID)
	assert.Equal(t, 5, batch[0].Quantity, "only the newest quantity for a product survives")
	assert.Equal(t, uint64(5), batch[0].Seq)
	assert.Equal(t, int64(9), batch[1].ProductID)
}

func TestApplyAddsWhenProductAbsentUpstream(t *testing.T) {
	remote := newFakeRemote()
	syncer := testSyncer(remote, 16)

	syncer.apply(Job{SessionID: "s1", ProductID: 7, Quantity: 3, Op: OpSet, Seq: 1})

	assert.Equal(t, 3, remote.quantity(7))
	assert.Equal(t, []string{"add"}, remote.mutationCalls())
}

func TestApplyUpdatesWhenProductPresentUpstream(t *testing.T) {
	remote := newFakeRemote()
	remote.items[7] = 1
	syncer := testSyncer(remote, 16)

	syncer.apply(Job{SessionID: "s1", ProductID: 7, Quantity: 5, Op: OpSet, Seq: 1})

	assert.Equal(t, 5, remote.quantity(7))
	assert.Equal(t, []string{"update"}, remote.mutationCalls())
}

func TestApplyRemoveOfAbsentProductSucceeds(t *testing.T) {
	remote := newFakeRemote()
	syncer := testSyncer(remote, 16)

	syncer.apply(Job{SessionID: "s1", ProductID: 7, Op: OpRemove, Seq: 1})

	assert.Empty(t, remote.mutationCalls(), "nothing to remove upstream is already the desired state")
	assert.True(t, syncer.Settled("s1"))
}

func TestApplySkipsStaleSequence(t *testing.T) {
	remote := newFakeRemote()
	syncer := testSyncer(remote, 16)

	syncer.apply(Job{SessionID: "s1", ProductID: 7, Quantity: 5, Op: OpSet, Seq: 2})
	syncer.apply(Job{SessionID: "s1", ProductID: 7, Quantity: 1, Op: OpSet, Seq: 1})

	assert.Equal(t, 5, remote.quantity(7), "an older job must not overwrite a newer push")
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	obs := newCountingObserver()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	syncer := NewSyncer(newFakeRemote(), config.CartConfig{SyncTimeout: time.Second, SyncQueue: 1}, logg, obs)
	ctx := context.Background()

	syncer.Enqueue(ctx, Job{SessionID: "s1", ProductID: 1, Quantity: 1, Op: OpSet, Seq: 1})
	syncer.Enqueue(ctx, Job{SessionID: "s2", ProductID: 2, Quantity: 1, Op: OpSet, Seq: 1})

	assert.Equal(t, 1, obs.count("set/dropped"))
	assert.False(t, syncer.Settled("s2"), "a dropped push must leave the session unsettled")
	assert.True(t, syncer.ClaimRepair("s2"))
	assert.False(t, syncer.ClaimRepair("s2"), "claiming the repair clears the flag")
	assert.False(t, syncer.ClaimRepair("s1"), "only the dropped session needs repair")
}

func TestEnqueueRecordsSeqBeforeQueueing(t *testing.T) {
	syncer := testSyncer(newFakeRemote(), 16)

	syncer.Enqueue(context.Background(), Job{SessionID: "s1", ProductID: 7, Quantity: 2, Op: OpSet, Seq: 1})

	// No worker is running, so the push is still queued and the
	// session must already read as unsettled.
	assert.False(t, syncer.Settled("s1"))
}

func TestWorkerProcessesQueuedJobs(t *testing.T) {
	remote := newFakeRemote()
	syncer := testSyncer(remote, 16)
	syncer.Start()
	defer syncer.Close()

	syncer.Enqueue(context.Background(), Job{SessionID: "s1", ProductID: 7, Quantity: 2, Op: OpSet, Seq: 1})

	require.Eventually(t, func() bool {
		return remote.quantity(7) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, syncer.Settled("s1"))
}
