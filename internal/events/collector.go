// Package events follows the relay's task list. A Collector keeps a
// watermark (the highest sequence seen), fetches tasks after it on every
// poll and dispatches them in ascending sequence order.
package events

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/relay"
)

// PaymentEvent is a pay_new or pay_cancel task.
type PaymentEvent struct {
	Type     string
	Code     int
	Message  string
	Sequence uint64
	Item     relay.PaymentTaskItem
}

// ShopEvent is any other task.
type ShopEvent struct {
	Type     string
	Code     int
	Message  string
	Sequence uint64
	Item     relay.ShopTaskItem
}

// Handler receives dispatched events. Errors are logged per event.
type Handler interface {
	OnPayment(ctx context.Context, ev PaymentEvent) error
	OnShop(ctx context.Context, ev ShopEvent) error
}

// HandlerFuncs adapts plain functions to Handler. Nil funcs ignore the event.
type HandlerFuncs struct {
	Payment func(ctx context.Context, ev PaymentEvent) error
	Shop    func(ctx context.Context, ev ShopEvent) error
}

func (h HandlerFuncs) OnPayment(ctx context.Context, ev PaymentEvent) error {
	if h.Payment == nil {
		return nil
	}
	return h.Payment(ctx, ev)
}

func (h HandlerFuncs) OnShop(ctx context.Context, ev ShopEvent) error {
	if h.Shop == nil {
		return nil
	}
	return h.Shop(ctx, ev)
}

// Collector is a scheduler.Task.
type Collector struct {
	src     relay.TaskSource
	handler Handler
	cp      Checkpoint
	policy  CheckpointPolicy
	log     *zap.Logger

	mu        sync.Mutex
	watermark uint64
	ready     bool
}

// NewCollector builds a collector. A nil checkpoint keeps the watermark in
// memory only.
func NewCollector(src relay.TaskSource, handler Handler, cp Checkpoint, policy CheckpointPolicy, log *zap.Logger) *Collector {
	if cp == nil {
		cp = &MemoryCheckpoint{}
	}
	if policy == "" {
		policy = PolicyLatest
	}
	return &Collector{src: src, handler: handler, cp: cp, policy: policy, log: log}
}

// Watermark is the highest sequence dispatched or adopted at start.
func (c *Collector) Watermark() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watermark
}

// Ready reports whether the initial watermark has been resolved.
func (c *Collector) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *Collector) OnStart(ctx context.Context) error {
	return c.init(ctx)
}

// init resolves the initial watermark. On failure Work retries it.
func (c *Collector) init(ctx context.Context) error {
	if c.policy == PolicyResume {
		seq, ok, err := c.cp.Load(ctx)
		if err != nil {
			return err
		}
		if ok {
			c.adopt(seq)
			c.log.Info("collector resumed", zap.Uint64("sequence", seq))
			return nil
		}
	}
	seq, err := c.src.LatestTaskSequence(ctx)
	if err != nil {
		return fmt.Errorf("latest task sequence: %w", err)
	}
	c.adopt(seq)
	if err := c.cp.Save(ctx, seq); err != nil {
		c.log.Warn("collector: save checkpoint", zap.Uint64("sequence", seq), zap.Error(err))
	}
	c.log.Info("collector starts at latest sequence", zap.Uint64("sequence", seq))
	return nil
}

func (c *Collector) adopt(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watermark = seq
	c.ready = true
}

// Work runs one poll: fetch, sort, skip what is at or below the watermark,
// advance, persist, dispatch.
func (c *Collector) Work(ctx context.Context) error {
	if !c.Ready() {
		if err := c.init(ctx); err != nil {
			return err
		}
	}

	wm := c.Watermark()
	tasks, err := c.src.Tasks(ctx, wm)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Error("collector: fetch tasks", zap.Uint64("sequence", wm), zap.Error(err))
		}
		return nil
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Sequence < tasks[j].Sequence })

	for _, t := range tasks {
		if ctx.Err() != nil {
			return nil
		}
		if t.Sequence <= wm {
			continue
		}
		wm = t.Sequence
		c.mu.Lock()
		c.watermark = wm
		c.mu.Unlock()
		if err := c.cp.Save(ctx, wm); err != nil {
			c.log.Error("collector: save checkpoint", zap.Uint64("sequence", wm), zap.Error(err))
		}
		c.log.Debug("watermark advanced", zap.Uint64("sequence", wm), zap.String("type", t.Type))
		c.dispatch(ctx, t)
	}
	return nil
}

func (c *Collector) dispatch(ctx context.Context, t relay.Task) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("collector: handler panic",
				zap.Uint64("sequence", t.Sequence), zap.String("type", t.Type), zap.Any("panic", r))
		}
	}()

	var err error
	switch {
	case t.Payment != nil:
		err = c.handler.OnPayment(ctx, PaymentEvent{
			Type: t.Type, Code: t.Code, Message: t.Message, Sequence: t.Sequence, Item: *t.Payment,
		})
	case t.Shop != nil:
		err = c.handler.OnShop(ctx, ShopEvent{
			Type: t.Type, Code: t.Code, Message: t.Message, Sequence: t.Sequence, Item: *t.Shop,
		})
	default:
		c.log.Warn("collector: task without payload", zap.Uint64("sequence", t.Sequence), zap.String("type", t.Type))
		return
	}
	if err != nil {
		c.log.Error("collector: handler", zap.Uint64("sequence", t.Sequence), zap.String("type", t.Type), zap.Error(err))
	}
}

func (c *Collector) OnStop() {
	c.log.Info("collector stopped", zap.Uint64("sequence", c.Watermark()))
}
