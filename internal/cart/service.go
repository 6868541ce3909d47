package cart

import (
	"context"

	"github.com/groenvelt/storefront-bff/pkg/logger"
)

// Service is the cart facade the HTTP layer talks to. Every mutation
// lands in the local store first and returns immediately; the matching
// upstream push rides the sync queue.
type Service struct {
	store  *Store
	syncer *Syncer
	logg   *logger.Logger
}

func NewService(store *Store, syncer *Syncer, logg *logger.Logger) *Service {
	return &Service{store: store, syncer: syncer, logg: logg}
}

// Get returns the current cart, reconciling against the upstream
// session cart first.
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	return s.Reconcile(ctx, sessionID)
}

// AddItem merges a line into the cart and schedules an upstream push
// with the merged quantity.
func (s *Service) AddItem(ctx context.Context, sessionID string, line Line) (*Cart, error) {
	cart, err := s.store.AddItem(ctx, sessionID, line)
	if err != nil {
		return nil, err
	}
	if merged := cart.findLine(line.ProductID); merged != nil {
		s.syncer.Enqueue(ctx, Job{
			SessionID: sessionID,
			ProductID: line.ProductID,
			Quantity:  merged.Quantity,
			Op:        OpSet,
			Seq:       cart.Seq,
		})
	}
	return cart, nil
}

// UpdateQuantity sets an absolute quantity on an existing line.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*Cart, error) {
	cart, err := s.store.UpdateQuantity(ctx, sessionID, productID, quantity)
	if err != nil {
		return nil, err
	}
	s.syncer.Enqueue(ctx, Job{
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  quantity,
		Op:        OpSet,
		Seq:       cart.Seq,
	})
	return cart, nil
}

// RemoveItem drops a line and schedules the upstream removal.
func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID int64) (*Cart, error) {
	cart, err := s.store.RemoveItem(ctx, sessionID, productID)
	if err != nil {
		return nil, err
	}
	s.syncer.Enqueue(ctx, Job{
		SessionID: sessionID,
		ProductID: productID,
		Op:        OpRemove,
		Seq:       cart.Seq,
	})
	return cart, nil
}

// Clear empties the local cart only. The upstream session cart is not
// notified; an empty local cart is never reconciled against it, so
// leftover remote lines are harmless and expire with the session.
func (s *Service) Clear(ctx context.Context, sessionID string) (*Cart, error) {
	return s.store.Clear(ctx, sessionID)
}

// Reconcile compares the local cart against the upstream session cart.
// An empty upstream cart with local lines means the upstream session
// expired or the order completed elsewhere, so the stale local copy is
// dropped. Upstream being unreachable is not a reason to touch the
// local cart.
func (s *Service) Reconcile(ctx context.Context, sessionID string) (*Cart, error) {
	cart, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// A dropped push means the upstream cart is missing a mutation.
	// Re-enqueue the full local state and skip the comparison until
	// the repair settles.
	if s.syncer.ClaimRepair(sessionID) {
		for _, line := range cart.Lines {
			s.syncer.Enqueue(ctx, Job{
				SessionID: sessionID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Op:        OpSet,
				Seq:       cart.Seq,
			})
		}
		return cart, nil
	}
	if len(cart.Lines) == 0 {
		return cart, nil
	}
	// Pending pushes mean the upstream cart is behind on purpose.
	if !s.syncer.Settled(sessionID) {
		return cart, nil
	}

	remote, err := s.syncer.remote.GetCart(ctx, s.syncer.Session(sessionID))
	if err != nil {
		s.logg.Warn(s.logg.WithCartSession(ctx, sessionID), "cart reconcile skipped, upstream unreachable")
		return cart, nil
	}
	if len(remote.Items) == 0 {
		return s.store.Clear(ctx, sessionID)
	}
	return cart, nil
}
