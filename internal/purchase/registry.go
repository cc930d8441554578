package purchase

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/0gfoundation/0g-points-relay/internal/errs"
)

// State is a purchase record's position in its lifecycle.
type State int

const (
	StateNone State = iota
	StateSaved
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSaved:
		return "saved"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Registry tracks the purchases submitted through one Client.
type Registry struct {
	mu     sync.Mutex
	states map[string]State
}

func NewRegistry() *Registry {
	return &Registry{states: make(map[string]State)}
}

// State returns StateNone for ids this registry has not seen.
func (r *Registry) State(purchaseID string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[purchaseID]
}

func (r *Registry) checkSave(purchaseID string) error {
	if s := r.State(purchaseID); s != StateNone {
		return errs.Protocol("saveNewPurchase", "purchase %s is already %s", purchaseID, s)
	}
	return nil
}

// Purchases saved by another process are unknown here, so only a second
// cancel is rejected.
func (r *Registry) checkCancel(purchaseID string) error {
	if s := r.State(purchaseID); s == StateCancelled {
		return errs.Protocol("saveCancelPurchase", "purchase %s is already cancelled", purchaseID)
	}
	return nil
}

func (r *Registry) set(purchaseID string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[purchaseID] = s
}

// IDGenerator issues purchase ids of the form P<10-digit counter><4-digit
// random suffix>. It is owned by the caller; there is no shared counter.
type IDGenerator struct {
	mu   sync.Mutex
	next uint64
	rnd  *rand.Rand
}

// NewIDGenerator starts counting at start. A nil rnd uses a randomly seeded
// source.
func NewIDGenerator(start uint64, rnd *rand.Rand) *IDGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &IDGenerator{next: start, rnd: rnd}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("P%010d%04d", g.next, g.rnd.IntN(10000))
	g.next++
	return id
}
