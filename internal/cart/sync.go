package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/groenvelt/storefront-bff/internal/upstream/woocommerce"
	"github.com/groenvelt/storefront-bff/pkg/config"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

// Op is a push to the upstream session cart.
type Op string

const (
	OpSet    Op = "set"    // upsert a product to an absolute quantity
	OpRemove Op = "remove" // drop a product
)

// Job is one pending push. Quantity is the desired final state, not a
// delta, so later jobs for the same product supersede earlier ones.
type Job struct {
	SessionID string
	ProductID int64
	Quantity  int
	Op        Op
	Seq       uint64
}

// SyncObserver records push outcomes. Satisfied by the Prometheus
// metrics registry.
type SyncObserver interface {
	IncCartSync(op, outcome string)
}

type noopObserver struct{}

func (noopObserver) IncCartSync(string, string) {}

// remoteCart is the slice of the WooCommerce client the syncer uses.
type remoteCart interface {
	GetCart(ctx context.Context, sess *woocommerce.CartSession) (*woocommerce.StoreCart, error)
	AddItem(ctx context.Context, sess *woocommerce.CartSession, productID int64, quantity int) (*woocommerce.StoreCart, error)
	UpdateItem(ctx context.Context, sess *woocommerce.CartSession, itemKey string, quantity int) (*woocommerce.StoreCart, error)
	RemoveItem(ctx context.Context, sess *woocommerce.CartSession, itemKey string) (*woocommerce.StoreCart, error)
	FindItemKey(ctx context.Context, sess *woocommerce.CartSession, productID int64) (string, error)
}

// Syncer pushes local cart mutations to the WooCommerce session cart
// from a single background worker. Enqueue never blocks the request
// path; when the queue is full the job is dropped, the session is
// flagged for repair and the next cart fetch re-enqueues its full
// state.
type Syncer struct {
	remote  remoteCart
	logg    *logger.Logger
	obs     SyncObserver
	timeout time.Duration

	queue chan Job
	done  chan struct{}

	mu       sync.Mutex
	sessions map[string]*woocommerce.CartSession
	applied  map[string]uint64
	enqueued map[string]uint64 // per session, highest seq accepted for pushing
	settled  map[string]uint64 // per session, highest seq applied or given up on
	dropped  map[string]bool   // sessions with a push lost to a full queue
}

func NewSyncer(remote remoteCart, cfg config.CartConfig, logg *logger.Logger, obs SyncObserver) *Syncer {
	if obs == nil {
		obs = noopObserver{}
	}
	size := cfg.SyncQueue
	if size <= 0 {
		size = 256
	}
	return &Syncer{
		remote:   remote,
		logg:     logg,
		obs:      obs,
		timeout:  cfg.SyncTimeout,
		queue:    make(chan Job, size),
		done:     make(chan struct{}),
		sessions: make(map[string]*woocommerce.CartSession),
		applied:  make(map[string]uint64),
		enqueued: make(map[string]uint64),
		settled:  make(map[string]uint64),
		dropped:  make(map[string]bool),
	}
}

// Start launches the worker. Close stops it; the job in flight
// finishes, anything still queued is abandoned.
func (s *Syncer) Start() {
	go s.run()
}

func (s *Syncer) Close() {
	close(s.done)
}

// Enqueue hands a job to the background worker without blocking. The
// seq is recorded before the send so a concurrent Settled read never
// mistakes a pending push for a settled session. A job lost to a full
// queue marks the session for repair and keeps it unsettled.
func (s *Syncer) Enqueue(ctx context.Context, job Job) {
	s.mu.Lock()
	if job.Seq > s.enqueued[job.SessionID] {
		s.enqueued[job.SessionID] = job.Seq
	}
	s.mu.Unlock()

	select {
	case s.queue <- job:
	default:
		s.mu.Lock()
		s.dropped[job.SessionID] = true
		s.mu.Unlock()
		s.obs.IncCartSync(string(job.Op), "dropped")
		s.logg.Warn(s.logg.WithCartSession(ctx, job.SessionID), "cart sync queue full, dropping job")
	}
}

// Settled reports whether every accepted push for the session has been
// attempted. While pushes are in flight or dropped the upstream cart
// lags the local one and must not be treated as authoritative.
func (s *Syncer) Settled(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled[sessionID] >= s.enqueued[sessionID]
}

// ClaimRepair reports whether a push for the session was dropped since
// the last claim, clearing the flag. The caller re-enqueues the
// session's full state; a drop during that re-enqueue raises the flag
// again.
func (s *Syncer) ClaimRepair(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dropped[sessionID] {
		return false
	}
	delete(s.dropped, sessionID)
	return true
}

// Session returns the upstream token pair for a storefront session,
// creating it on first use. Tokens live for the process lifetime; after
// a restart the first cart fetch establishes a fresh upstream cart and
// reconcile brings the local copy back in line.
func (s *Syncer) Session(sessionID string) *woocommerce.CartSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = woocommerce.NewCartSession("", "")
		s.sessions[sessionID] = sess
	}
	return sess
}

func (s *Syncer) run() {
	for {
		select {
		case <-s.done:
			return
		case job := <-s.queue:
			batch := s.coalesce(job)
			for _, j := range batch {
				s.apply(j)
			}
		}
	}
}

// coalesce drains everything already queued and keeps only the newest
// job per session/product pair.
func (s *Syncer) coalesce(first Job) []Job {
	pending := []Job{first}
	for {
		select {
		case job := <-s.queue:
			pending = append(pending, job)
		default:
			latest := make(map[string]Job, len(pending))
			order := make([]string, 0, len(pending))
			for _, job := range pending {
				key := jobKey(job)
				if kept, ok := latest[key]; ok {
					if job.Seq > kept.Seq {
						latest[key] = job
					}
					continue
				}
				latest[key] = job
				order = append(order, key)
			}

			out := make([]Job, 0, len(latest))
			for _, key := range order {
				if job, ok := latest[key]; ok {
					out = append(out, job)
				}
			}
			return out
		}
	}
}

func (s *Syncer) apply(job Job) {
	key := jobKey(job)
	s.mu.Lock()
	if job.Seq <= s.applied[key] {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ctx = s.logg.WithCartSession(ctx, job.SessionID)

	sess := s.Session(job.SessionID)

	var err error
	switch job.Op {
	case OpSet:
		err = s.applySet(ctx, sess, job)
	case OpRemove:
		err = s.applyRemove(ctx, sess, job)
	}

	s.mu.Lock()
	if job.Seq > s.settled[job.SessionID] {
		s.settled[job.SessionID] = job.Seq
	}
	if err == nil {
		s.applied[key] = job.Seq
	}
	s.mu.Unlock()

	if err != nil {
		s.obs.IncCartSync(string(job.Op), "error")
		s.logg.Error(ctx, "cart sync push failed", err)
		return
	}
	s.obs.IncCartSync(string(job.Op), "ok")
}

func (s *Syncer) applySet(ctx context.Context, sess *woocommerce.CartSession, job Job) error {
	itemKey, err := s.remote.FindItemKey(ctx, sess, job.ProductID)
	if err != nil {
		return err
	}
	if itemKey == "" {
		_, err = s.remote.AddItem(ctx, sess, job.ProductID, job.Quantity)
		return err
	}
	_, err = s.remote.UpdateItem(ctx, sess, itemKey, job.Quantity)
	return err
}

func (s *Syncer) applyRemove(ctx context.Context, sess *woocommerce.CartSession, job Job) error {
	itemKey, err := s.remote.FindItemKey(ctx, sess, job.ProductID)
	if err != nil {
		return err
	}
	// Already absent upstream counts as done.
	if itemKey == "" {
		return nil
	}
	_, err = s.remote.RemoveItem(ctx, sess, itemKey)
	return err
}

func jobKey(job Job) string {
	return fmt.Sprintf("%s/%d", job.SessionID, job.ProductID)
}
