package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"shopreviews/internal/core/domain"
)

// ManagerOptions bounds what callers may request.
type ManagerOptions struct {
	DefaultMaxPages int
	MaxPagesLimit   int
	InputRate       float64
	InputBurst      int
	InputBuffer     int
}

// DefaultManagerOptions returns the limits used when nothing is configured.
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{DefaultMaxPages: 50, MaxPagesLimit: 500, InputRate: 30, InputBurst: 60, InputBuffer: 64}
}

// Runner executes one job to completion.
type Runner interface {
	RunJob(ctx context.Context, job *domain.Job) (*domain.JobResult, error)
}

// Manager is the job lifecycle boundary used by the HTTP layer: it validates
// requests, registers jobs and runs each on its own goroutine.
type Manager struct {
	ctx      context.Context
	registry Registry
	runner   Runner
	opts     ManagerOptions
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

// NewManager creates a manager. Jobs run under ctx.
func NewManager(ctx context.Context, registry Registry, runner Runner, opts ManagerOptions, logger zerolog.Logger) *Manager {
	return &Manager{ctx: ctx, registry: registry, runner: runner, opts: opts, logger: logger}
}

// Start validates rawURL, registers a queued job and runs it in the background.
func (m *Manager) Start(rawURL string, maxPages int) (*domain.Job, error) {
	rawURL = strings.TrimSpace(rawURL)
	productID, err := ExtractProductID(rawURL)
	if err != nil {
		return nil, err
	}
	maxPages = m.clampPages(maxPages)

	id, err := NewJobID()
	if err != nil {
		return nil, err
	}
	var limiter *rate.Limiter
	if m.opts.InputRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(m.opts.InputRate), max(1, m.opts.InputBurst))
	}
	job := domain.NewJob(id, rawURL, productID, maxPages, m.opts.InputBuffer, limiter)
	m.registry.Put(job)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.runner.RunJob(m.ctx, job); err != nil {
			m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("job failed")
		}
	}()
	return job, nil
}

func (m *Manager) clampPages(n int) int {
	if n <= 0 {
		n = m.opts.DefaultMaxPages
	}
	if m.opts.MaxPagesLimit > 0 && n > m.opts.MaxPagesLimit {
		n = m.opts.MaxPagesLimit
	}
	return max(1, n)
}

// NewJobID returns an opaque, time-ordered job id.
func NewJobID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	return "job_" + u.String(), nil
}

// Get returns the job with the given id or domain.ErrJobNotFound.
func (m *Manager) Get(id string) (*domain.Job, error) {
	job, ok := m.registry.Get(id)
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// Status returns the job's current snapshot.
func (m *Manager) Status(id string) (domain.Snapshot, error) {
	job, err := m.Get(id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return job.Snapshot(), nil
}

// Input forwards an input event to the job's browser session.
func (m *Manager) Input(id string, ev domain.InputEvent) error {
	job, err := m.Get(id)
	if err != nil {
		return err
	}
	return job.EnqueueInput(ev)
}

// Wait blocks until every started job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}
