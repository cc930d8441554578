// Package scheduler hosts a background task: one goroutine that runs a setup
// step, then repeats a unit of work at a fixed interval until stopped.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the sleep between two units of work.
const DefaultInterval = 100 * time.Millisecond

// Task is the work a Scheduler runs. Errors are logged and never stop the loop.
type Task interface {
	OnStart(ctx context.Context) error
	Work(ctx context.Context) error
	OnStop()
}

// State is the lifecycle of a Scheduler.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Scheduler struct {
	name     string
	task     Task
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a scheduler. interval <= 0 selects DefaultInterval.
func New(name string, task Task, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{name: name, task: task, interval: interval, log: log}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches the loop. It does nothing unless the scheduler is idle.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.state = StateStarting
	go s.run(ctx)
}

// Stop cancels the loop and waits until OnStop has returned. Stopping a
// scheduler that never started only marks it stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.state = StateStopped
		s.mu.Unlock()
		return
	case StateStopped:
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Stop may already have moved us to Stopping.
	if s.state == StateStopping && st == StateRunning {
		return
	}
	s.state = st
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	log := s.log.With(zap.String("task", s.name))

	if err := s.task.OnStart(ctx); err != nil {
		log.Error("scheduler: start", zap.Error(err))
	}
	s.setState(StateRunning)
	log.Info("scheduler started", zap.Duration("interval", s.interval))

	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	for ctx.Err() == nil {
		if err := s.task.Work(ctx); err != nil && ctx.Err() == nil {
			log.Error("scheduler: work", zap.Error(err))
		}
		timer.Reset(s.interval)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}

	s.task.OnStop()
	s.setState(StateStopped)
	log.Info("scheduler stopped")
}
