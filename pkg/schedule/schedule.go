// Package schedule runs named maintenance tasks at fixed intervals.
//
//	s := schedule.New()
//	s.Every(time.Hour, "staging:sweep", sweepStaging)
//	s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
)

// Task is a scheduled unit of work. ctx ends when the scheduler stops.
type Task func(ctx context.Context)

type entry struct {
	name     string
	interval time.Duration
	task     Task

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler dispatches due tasks once per second. A task never overlaps
// with its own previous run.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

func New() *Scheduler { return &Scheduler{} }

// Every registers task to run every interval, starting on the first tick.
func (s *Scheduler) Every(interval time.Duration, name string, task Task) {
	if name == "" {
		name = fmt.Sprintf("task-%d", len(s.entries)+1)
	}
	s.mu.Lock()
	s.entries = append(s.entries, &entry{name: name, interval: interval, task: task})
	s.mu.Unlock()
}

// Start runs the dispatch loop in the background until ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		logger.Info("schedule: started", "tasks", len(s.List()))

		for {
			select {
			case <-ctx.Done():
				logger.Info("schedule: stopped")
				return
			case now := <-ticker.C:
				s.Tick(ctx, now)
			}
		}
	}()
}

// Tick dispatches every task that is due at now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	for _, e := range current {
		e.mu.Lock()
		due := !e.running && (e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval)
		if due {
			e.running = true
			e.lastRun = now
		}
		e.mu.Unlock()

		if due {
			s.wg.Add(1)
			go s.dispatch(ctx, e)
		}
	}
}

// Wait blocks until every dispatched task has returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) dispatch(ctx context.Context, e *entry) {
	defer s.wg.Done()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		if r := recover(); r != nil {
			logger.Error("schedule: task panicked", "task", e.name, "panic", fmt.Sprint(r))
		}
	}()

	logger.Debug("schedule: running task", "task", e.name)
	e.task(ctx)
}

// List returns "name [interval]" for each registered task.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, fmt.Sprintf("%s  [%s]", e.name, e.interval))
	}
	return out
}
