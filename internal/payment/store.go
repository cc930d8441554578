package payment

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Record is the tracked state of one payment.
type Record struct {
	PaymentID  string
	PurchaseID string
	Phase      Phase
	Status     int
	UpdatedAt  int64
}

// Store persists payment records for a Tracker.
type Store interface {
	// Get returns nil, nil when the payment is unknown.
	Get(ctx context.Context, paymentID string) (*Record, error)
	Put(ctx context.Context, r Record) error
	List(ctx context.Context) ([]Record, error)
}

// ── Memory ────────────────────────────────────────────────────────────────────

// MemoryStore keeps records for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Get(_ context.Context, paymentID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[paymentID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) Put(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.PaymentID] = r
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentID < out[j].PaymentID })
	return out, nil
}

// ── Redis ─────────────────────────────────────────────────────────────────────

const recordKeyPrefix = "points:payment:"

// RedisStore keeps one hash per payment so several collectors can share
// lifecycle state.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func recordKey(paymentID string) string {
	return recordKeyPrefix + paymentID
}

func (s *RedisStore) Get(ctx context.Context, paymentID string) (*Record, error) {
	vals, err := s.rdb.HGetAll(ctx, recordKey(paymentID)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return recordFromMap(vals)
}

func (s *RedisStore) Put(ctx context.Context, r Record) error {
	return s.rdb.HSet(ctx, recordKey(r.PaymentID),
		"payment_id", r.PaymentID,
		"purchase_id", r.PurchaseID,
		"phase", int(r.Phase),
		"status", r.Status,
		"updated_at", r.UpdatedAt,
	).Err()
}

// List scans every tracked payment.
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	var records []Record
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, recordKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan payments: %w", err)
		}
		for _, key := range keys {
			vals, err := s.rdb.HGetAll(ctx, key).Result()
			if err != nil || len(vals) == 0 {
				continue
			}
			r, err := recordFromMap(vals)
			if err != nil {
				continue
			}
			records = append(records, *r)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PaymentID < records[j].PaymentID })
	return records, nil
}

func recordFromMap(m map[string]string) (*Record, error) {
	phase, err := strconv.Atoi(m["phase"])
	if err != nil {
		return nil, fmt.Errorf("parse phase: %w", err)
	}
	status, err := strconv.Atoi(m["status"])
	if err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	updatedAt, err := strconv.ParseInt(m["updated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &Record{
		PaymentID:  m["payment_id"],
		PurchaseID: m["purchase_id"],
		Phase:      Phase(phase),
		Status:     status,
		UpdatedAt:  updatedAt,
	}, nil
}
