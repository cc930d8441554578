package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// CheckpointPolicy selects the initial watermark of a collector.
type CheckpointPolicy string

const (
	// PolicyLatest starts at the relay's latest sequence: tasks emitted
	// before the collector started are never seen.
	PolicyLatest CheckpointPolicy = "latest"
	// PolicyResume starts at the stored checkpoint when there is one.
	PolicyResume CheckpointPolicy = "resume"
)

func ParsePolicy(s string) (CheckpointPolicy, error) {
	switch p := CheckpointPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyLatest, PolicyResume:
		return p, nil
	case "":
		return PolicyLatest, nil
	}
	return "", fmt.Errorf("unknown checkpoint policy %q", s)
}

// Checkpoint persists a collector's watermark.
type Checkpoint interface {
	// Load reports ok=false when nothing was stored yet.
	Load(ctx context.Context) (seq uint64, ok bool, err error)
	Save(ctx context.Context, seq uint64) error
}

// MemoryCheckpoint lives as long as the process.
type MemoryCheckpoint struct {
	mu  sync.Mutex
	seq uint64
	set bool
}

func (m *MemoryCheckpoint) Load(context.Context) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq, m.set, nil
}

func (m *MemoryCheckpoint) Save(_ context.Context, seq uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq, m.set = seq, true
	return nil
}

const checkpointKeyFmt = "points:collector:%s:watermark"

// RedisCheckpoint stores the watermark under a per-collector key.
type RedisCheckpoint struct {
	rdb *redis.Client
	key string
}

func NewRedisCheckpoint(rdb *redis.Client, collector string) *RedisCheckpoint {
	return &RedisCheckpoint{rdb: rdb, key: fmt.Sprintf(checkpointKeyFmt, collector)}
}

func (r *RedisCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	v, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load checkpoint: %w", err)
	}
	seq, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse checkpoint %q: %w", v, err)
	}
	return seq, true, nil
}

func (r *RedisCheckpoint) Save(ctx context.Context, seq uint64) error {
	return r.rdb.Set(ctx, r.key, strconv.FormatUint(seq, 10), 0).Err()
}
