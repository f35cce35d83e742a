// Package queue runs background jobs with retries.
//
//	m := queue.Default()
//	jobs.Register(m, productService) // rebuilds UploadImage with its processor
//	m.Dispatch(ctx, &jobs.UploadImage{ProductID: 1, StagedPath: "staging/x.jpg"})
//	m.Work(ctx, 2)
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
	"github.com/shashiranjanraj/tagcatalog/pkg/metrics"
)

// Job is the interface every queued job must satisfy. Jobs are serialized as
// JSON, so all state Handle needs must be in exported fields.
type Job interface {
	// Type is the registry name used to rebuild the job on the worker side.
	Type() string
	// Handle executes the job. Return a non-nil error to signal failure.
	Handle(ctx context.Context) error
}

// FailedJob holds information about a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Payload  []byte
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is available. A nil payload with a nil
	// error means the wait timed out.
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver is implemented by drivers that can hold jobs until a
// point in time themselves.
type DelayedDriver interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

// ErrUnregistered is returned for payloads whose type has no factory.
var ErrUnregistered = errors.New("queue: unregistered job type")

// ------------------- Manager -------------------

// Manager is the central queue hub.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	maxRetry int
	backoff  func(attempt int) time.Duration
	db       *gorm.DB
}

// New returns a Manager on driver with three attempts and linear backoff.
func New(driver Driver) *Manager {
	return &Manager{
		driver:   driver,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
	}
}

var defaultManager = New(NewMemoryDriver())

// Default returns the process-wide Manager used by the package functions.
func Default() *Manager { return defaultManager }

// SetDriver swaps the underlying queue driver (e.g. Redis).
func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

// SetMaxRetry sets how many attempts a job gets before it is failed.
func (m *Manager) SetMaxRetry(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 {
		n = 1
	}
	m.maxRetry = n
}

// SetBackoff replaces the delay between attempts.
func (m *Manager) SetBackoff(fn func(attempt int) time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoff = fn
}

// UseDB persists exhausted jobs to the failed_jobs table.
func (m *Manager) UseDB(db *gorm.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = db
}

// Register makes a job type available for deserialization by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

func SetDriver(d Driver)                       { defaultManager.SetDriver(d) }
func SetMaxRetry(n int)                        { defaultManager.SetMaxRetry(n) }
func UseDB(db *gorm.DB)                        { defaultManager.UseDB(db) }
func Register(name string, factory func() Job) { defaultManager.Register(name, factory) }

// ------------------- Dispatch -------------------

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encode(job Job) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", job.Type(), err)
	}

	env, err := json.Marshal(envelope{Type: job.Type(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, nil
}

// Dispatch pushes job onto the queue immediately.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	env, err := encode(job)
	if err != nil {
		return err
	}

	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()

	return d.Push(ctx, env)
}

// DispatchAfter pushes job once delay has passed. Drivers without delayed
// support get a timer in this process.
func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	env, err := encode(job)
	if err != nil {
		return err
	}

	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()

	if dd, ok := d.(DelayedDriver); ok {
		return dd.PushDelayed(ctx, env, delay)
	}

	time.AfterFunc(delay, func() {
		if err := d.Push(context.Background(), env); err != nil {
			logger.Error("queue: delayed dispatch failed", "type", job.Type(), "error", err)
		}
	})
	return nil
}

func Dispatch(ctx context.Context, job Job) error { return defaultManager.Dispatch(ctx, job) }

func DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	return defaultManager.DispatchAfter(ctx, job, delay)
}

// ------------------- Worker -------------------

// Work runs n concurrent workers and blocks until ctx is cancelled and every
// in-flight job has returned.
func (m *Manager) Work(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	wg.Wait()
	logger.Info("queue: workers stopped")
}

func Work(ctx context.Context, n int) { defaultManager.Work(ctx, n) }

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		m.mu.RLock()
		d := m.driver
		m.mu.RUnlock()

		raw, err := d.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}

		if err := m.Process(ctx, raw); err != nil {
			logger.Error("queue: drop payload", "error", err)
		}
	}
}

// Drain runs buffered jobs on the calling goroutine until the driver is
// empty and returns how many it ran. Drivers that cannot count their jobs,
// like Redis, are left to the workers.
func (m *Manager) Drain(ctx context.Context) int {
	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()

	counted, ok := d.(interface{ Len() int })
	if !ok {
		return 0
	}

	n := 0
	for counted.Len() > 0 && ctx.Err() == nil {
		raw, err := d.Pop(ctx)
		if err != nil || raw == nil {
			break
		}
		if err := m.Process(ctx, raw); err != nil {
			logger.Error("queue: drop payload", "error", err)
		}
		n++
	}
	return n
}

// Process decodes one payload and runs it with retries. It returns an error
// only when the payload cannot be turned into a job.
func (m *Manager) Process(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("queue: bad envelope: %w", err)
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnregistered, env.Type)
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		return fmt.Errorf("queue: unmarshal %s payload: %w", env.Type, err)
	}

	m.runWithRetry(ctx, job, env.Payload)
	return nil
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, payload []byte) {
	m.mu.RLock()
	maxRetry, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		if err := job.Handle(ctx); err != nil {
			lastErr = err
			logger.Warn("queue: job failed",
				"type", job.Type(), "attempt", attempt, "error", err)
			if attempt < maxRetry && !sleep(ctx, backoff(attempt)) {
				break
			}
			continue
		}
		metrics.RecordQueueJob(job.Type(), "success", start)
		logger.Info("queue: job processed", "type", job.Type())
		return
	}

	metrics.RecordQueueJob(job.Type(), "failed", start)
	m.persistFailed(job.Type(), payload, lastErr, maxRetry)
	logger.Error("queue: job exhausted retries", "type", job.Type(), "error", lastErr)
}

// FailedJobs returns a snapshot of jobs failed by this process.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}

func FailedJobs() []FailedJob { return defaultManager.FailedJobs() }

// sleep waits d or until ctx ends; it reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
