package payment

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/relay"
)

// Tracker records the phase of every payment this process has seen and
// guards actions against the transition function. Phases only move forward:
// stale or conflicting observations are ignored.
type Tracker struct {
	mu    sync.Mutex
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewTracker(store Store, log *zap.Logger) *Tracker {
	return &Tracker{store: store, log: log, now: time.Now}
}

// Phase returns the tracked phase, PhaseNone when unknown.
func (t *Tracker) Phase(ctx context.Context, paymentID string) (Phase, error) {
	r, err := t.store.Get(ctx, paymentID)
	if err != nil || r == nil {
		return PhaseNone, err
	}
	return r.Phase, nil
}

// Known reports whether the payment has a record.
func (t *Tracker) Known(ctx context.Context, paymentID string) (bool, error) {
	r, err := t.store.Get(ctx, paymentID)
	return r != nil, err
}

// Check returns the phase action would lead to, or a ProtocolError when the
// action is illegal in the payment's current phase.
func (t *Tracker) Check(ctx context.Context, paymentID string, a Action, flag bool) (Phase, error) {
	cur, err := t.Phase(ctx, paymentID)
	if err != nil {
		return PhaseNone, err
	}
	return Next(cur, a, flag)
}

// Advance moves paymentID to p if p lies ahead of the current phase.
// It reports whether the record changed.
func (t *Tracker) Advance(ctx context.Context, paymentID, purchaseID string, p Phase, status int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, err := t.store.Get(ctx, paymentID)
	if err != nil {
		return false, err
	}
	if cur != nil {
		switch {
		case cur.Phase.Terminal() && p != cur.Phase:
			t.log.Debug("ignoring update of terminal payment",
				zap.String("payment", paymentID), zap.Stringer("phase", cur.Phase), zap.Stringer("update", p))
			return false, nil
		case p.rank() < cur.Phase.rank(), p.rank() == cur.Phase.rank() && p != cur.Phase:
			t.log.Debug("ignoring stale payment update",
				zap.String("payment", paymentID), zap.Stringer("phase", cur.Phase), zap.Stringer("update", p))
			return false, nil
		case p == cur.Phase && status == cur.Status:
			return false, nil
		}
		if purchaseID == "" {
			purchaseID = cur.PurchaseID
		}
	}

	r := Record{
		PaymentID:  paymentID,
		PurchaseID: purchaseID,
		Phase:      p,
		Status:     status,
		UpdatedAt:  t.now().Unix(),
	}
	if err := t.store.Put(ctx, r); err != nil {
		return false, err
	}
	return true, nil
}

// Observe applies a relay payment item. Unknown status codes are ignored.
func (t *Tracker) Observe(ctx context.Context, item *relay.PaymentTaskItem) (bool, error) {
	p, ok := PhaseOf(item.PaymentStatus)
	if !ok {
		t.log.Warn("unknown payment status",
			zap.String("payment", item.PaymentID), zap.Int("status", item.PaymentStatus))
		return false, nil
	}
	return t.Advance(ctx, item.PaymentID, item.PurchaseID, p, item.PaymentStatus)
}

// Records lists every tracked payment.
func (t *Tracker) Records(ctx context.Context) ([]Record, error) {
	return t.store.List(ctx)
}
