package payment

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/relay"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb)
}

// eachStore runs fn against both Store implementations.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisStore(t)) })
}

func TestTracker_ForwardOnly(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tr := NewTracker(s, zap.NewNop())

		if ok, err := tr.Advance(ctx, "0xp", "P1", PhaseUserApproved, StatusApprovedNew); err != nil || !ok {
			t.Fatalf("Advance: %v %t", err, ok)
		}
		// stale event: must not move back
		if ok, _ := tr.Advance(ctx, "0xp", "P1", PhaseOpened, StatusOpenedNew); ok {
			t.Error("regression to opened should be ignored")
		}
		// sibling of the current phase conflicts
		if ok, _ := tr.Advance(ctx, "0xp", "P1", PhaseUserDenied, StatusDeniedNew); ok {
			t.Error("sibling phase should be ignored")
		}
		p, err := tr.Phase(ctx, "0xp")
		if err != nil {
			t.Fatalf("Phase: %v", err)
		}
		if p != PhaseUserApproved {
			t.Errorf("phase: got %s want user_approved", p)
		}
	})
}

func TestTracker_TerminalIsFinal(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tr := NewTracker(s, zap.NewNop())
		tr.Advance(ctx, "0xp", "P1", PhaseClosedCancelled, StatusFailedNew)
		if ok, _ := tr.Advance(ctx, "0xp", "P1", PhaseCancelOpened, StatusOpenedCancel); ok {
			t.Error("terminal payment must not advance")
		}
		if _, err := tr.Check(ctx, "0xp", ActionOpenCancel, false); err == nil {
			t.Error("Check should reject actions on a terminal payment")
		}
	})
}

func TestTracker_SamePhaseNewStatus(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tr := NewTracker(s, zap.NewNop())
		tr.Advance(ctx, "0xp", "P1", PhaseOpened, StatusOpenedNew)
		ok, err := tr.Advance(ctx, "0xp", "", PhaseOpened, StatusFailedTxNew)
		if err != nil || !ok {
			t.Fatalf("status change within a phase should be recorded: %v %t", err, ok)
		}
		recs, _ := tr.Records(ctx)
		if len(recs) != 1 || recs[0].Status != StatusFailedTxNew || recs[0].PurchaseID != "P1" {
			t.Errorf("records: %+v", recs)
		}
	})
}

func TestTracker_Observe(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), zap.NewNop())

	ok, err := tr.Observe(ctx, &relay.PaymentTaskItem{PaymentID: "0xp", PurchaseID: "P1", PaymentStatus: StatusClosedNew})
	if err != nil || !ok {
		t.Fatalf("Observe: %v %t", err, ok)
	}
	if p, _ := tr.Phase(ctx, "0xp"); p != PhaseClosedConfirmed {
		t.Errorf("phase: got %s", p)
	}
	if ok, _ := tr.Observe(ctx, &relay.PaymentTaskItem{PaymentID: "0xp", PaymentStatus: 77}); ok {
		t.Error("unknown status should be ignored")
	}
}

func TestTracker_UnknownPaymentIsNone(t *testing.T) {
	tr := NewTracker(NewMemoryStore(), zap.NewNop())
	p, err := tr.Phase(context.Background(), "0xmissing")
	if err != nil || p != PhaseNone {
		t.Errorf("got %s %v", p, err)
	}
	known, _ := tr.Known(context.Background(), "0xmissing")
	if known {
		t.Error("missing payment should not be known")
	}
}

func TestRedisStore_List(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t)
	for _, id := range []string{"0xb", "0xa", "0xc"} {
		if err := s.Put(ctx, Record{PaymentID: id, Phase: PhaseOpened, Status: StatusOpenedNew, UpdatedAt: 1}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 || recs[0].PaymentID != "0xa" || recs[2].PaymentID != "0xc" {
		t.Errorf("List: %+v", recs)
	}
}
