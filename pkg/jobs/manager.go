package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures the job manager.
type Config struct {
	// DataDir is the root for per-job directories (records, logs,
	// artifacts).
	DataDir string

	// Workers is the size of the bounded pool. Jobs submitted beyond pool
	// capacity stay pending until a slot frees, in submission order.
	// Default: 2
	Workers int

	// QueueDepth bounds the pending backlog. Default: 1024
	QueueDepth int

	// ExecTimeout is the ceiling for a single executor call. Exceeding it
	// is a timeout failure, not a cancellation. Default: 5m
	ExecTimeout time.Duration

	// LaunchRate limits batch member launches per second. Zero means
	// unlimited. Default: 0
	LaunchRate float64
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		Workers:     2,
		QueueDepth:  1024,
		ExecTimeout: 5 * time.Minute,
	}
}

// Manager is the orchestrator: it accepts submissions, assigns ids,
// schedules runners onto the bounded worker pool, and exposes the
// query/cancel/list surface.
//
// The manager owns the record store exclusively. Runners report transitions
// back through manager methods rather than writing shared state, keeping a
// single writer per record.
type Manager struct {
	cfg     Config
	store   *Store
	exec    Executor
	log     *zap.Logger
	limiter *rate.Limiter

	mu   sync.Mutex
	jobs map[string]*Record

	queue   chan string
	wg      sync.WaitGroup
	baseCtx context.Context
	stop    context.CancelFunc
	closed  bool

	// syncOnly managers serve RunSync exclusively; they never own the job
	// index. See NewSync.
	syncOnly bool
}

// New builds a manager, rebuilds the in-memory index from DataDir (jobs left
// in flight by a previous process are reconciled to failed/interrupted), and
// starts the worker pool.
func New(cfg Config, exec Executor, logger *zap.Logger) (*Manager, error) {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = def.QueueDepth
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = def.ExecTimeout
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("jobs: data dir is required")
	}
	if exec == nil {
		return nil, fmt.Errorf("jobs: executor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store := NewStore(filepath.Join(cfg.DataDir, "jobs"))
	recs, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("jobs: load store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:     cfg,
		store:   store,
		exec:    exec,
		log:     logger,
		jobs:    make(map[string]*Record, len(recs)),
		queue:   make(chan string, cfg.QueueDepth),
		baseCtx: ctx,
		stop:    cancel,
	}
	if cfg.LaunchRate > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(cfg.LaunchRate), 1)
	}
	for i := range recs {
		rec := recs[i]
		m.jobs[rec.ID] = &rec
	}

	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m, nil
}

// NewSync builds a manager that serves inline runs only. It does not load or
// reconcile the on-disk job index and starts no workers, so a CLI process can
// run alongside a server that owns the pool without touching the server's
// records. Submit is rejected on such a manager; use RunSync.
func NewSync(cfg Config, exec Executor, logger *zap.Logger) (*Manager, error) {
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = DefaultConfig().ExecTimeout
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("jobs: data dir is required")
	}
	if exec == nil {
		return nil, fmt.Errorf("jobs: executor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		store:    NewStore(filepath.Join(cfg.DataDir, "jobs")),
		exec:     exec,
		log:      logger,
		jobs:     make(map[string]*Record),
		queue:    make(chan string),
		baseCtx:  ctx,
		stop:     cancel,
		syncOnly: true,
	}
	if cfg.LaunchRate > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(cfg.LaunchRate), 1)
	}
	return m, nil
}

// Store exposes the record store for read-only inspection (CLI listings).
func (m *Manager) Store() *Store {
	return m.store
}

// Close stops accepting submissions, interrupts in-flight executor calls,
// and waits for the pool to drain.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.stop()
	m.wg.Wait()
}

// Submit validates the spec for the requested kind, creates a pending job,
// persists it, and enqueues it for the pool. It returns immediately and
// never blocks on execution.
func (m *Manager) Submit(kind Kind, spec InputSpec, name string) (string, error) {
	if m.syncOnly {
		return "", Errf(ErrConflict, "manager serves inline runs only")
	}
	if err := spec.Validate(kind); err != nil {
		return "", err
	}

	id := uuid.New().String()
	if name == "" {
		name = fmt.Sprintf("%s-%s", kind, id[:8])
	}
	rec := &Record{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Spec:      spec,
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", Errf(ErrConflict, "manager is shut down")
	}
	m.jobs[id] = rec
	m.mu.Unlock()

	if err := m.store.Write(rec); err != nil {
		m.mu.Lock()
		delete(m.jobs, id)
		m.mu.Unlock()
		return "", fmt.Errorf("persist job: %w", err)
	}

	select {
	case m.queue <- id:
	default:
		m.reportFailed(id, ErrInternalFault, "job queue is full")
		return "", Errf(ErrInternalFault, "job queue is full")
	}

	m.log.Info("job submitted",
		zap.String("job_id", id),
		zap.String("kind", string(kind)),
		zap.String("name", name))
	return id, nil
}

// Status returns a snapshot of one job.
func (m *Manager) Status(jobID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[jobID]
	if !ok {
		return Record{}, Errf(ErrNotFound, "unknown job %s", jobID)
	}
	return rec.clone(), nil
}

// Result returns artifact locations for a completed job. Any other state
// yields a not_ready error carrying the current state, so callers can
// decide to poll or inspect the job's error.
func (m *Manager) Result(jobID string) (*ResultRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[jobID]
	if !ok {
		return nil, Errf(ErrNotFound, "unknown job %s", jobID)
	}
	if rec.State != StateCompleted {
		return nil, &Error{Kind: ErrNotReady, Message: "job has not completed", State: rec.State}
	}
	return rec.Result.clone(), nil
}

// Log returns the last tail lines of the job's log plus the total line
// count. It works in any state: a running job returns its partial log.
func (m *Manager) Log(jobID string, tail int) ([]string, int, error) {
	m.mu.Lock()
	_, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return nil, 0, Errf(ErrNotFound, "unknown job %s", jobID)
	}
	return ReadTail(m.store.LogPath(jobID), tail)
}

// Cancel outcomes.
const (
	OutcomeCancelled       = "cancelled"
	OutcomeCancelRequested = "cancellation requested"
)

// Cancel requests cancellation. A pending job is moved straight to
// cancelled without ever running. For a running job the signal is advisory:
// the runner observes it at the next checkpoint, so the outcome is
// "cancellation requested" rather than a guaranteed stop. Cancelling a
// terminal job is a conflict.
func (m *Manager) Cancel(jobID string) (string, error) {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return "", Errf(ErrNotFound, "unknown job %s", jobID)
	}
	if rec.State.Terminal() {
		state := rec.State
		m.mu.Unlock()
		return "", Errf(ErrConflict, "job is already %s", state)
	}

	rec.CancelRequested = true
	outcome := OutcomeCancelRequested
	if rec.State == StatePending {
		now := time.Now().UTC()
		rec.State = StateCancelled
		rec.FinishedAt = &now
		outcome = OutcomeCancelled
	}
	snapshot := rec.clone()
	m.mu.Unlock()

	m.persist(&snapshot)
	m.log.Info("job cancel", zap.String("job_id", jobID), zap.String("outcome", outcome))
	return outcome, nil
}

// List returns snapshots of all jobs, ordered by creation time ascending.
// An empty filter selects every state.
func (m *Manager) List(filter State) ([]Record, error) {
	if filter != "" {
		if _, err := ParseState(string(filter)); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	out := make([]Record, 0, len(m.jobs))
	for _, rec := range m.jobs {
		if filter != "" && rec.State != filter {
			continue
		}
		out = append(out, rec.clone())
	}
	m.mu.Unlock()

	sortRecords(out)
	return out, nil
}

// worker pulls job ids off the queue in submission order.
func (m *Manager) worker() {
	defer m.wg.Done()
	for id := range m.queue {
		m.runJob(id)
	}
}

// runJob executes one job with per-job fault isolation: any panic while
// orchestrating surfaces as a failed job, never as a crashed worker.
func (m *Manager) runJob(jobID string) {
	defer func() {
		if p := recover(); p != nil {
			m.log.Error("runner panic", zap.String("job_id", jobID), zap.Any("panic", p))
			m.reportFailed(jobID, ErrInternalFault, fmt.Sprintf("internal fault: %v", p))
		}
	}()

	rec, ok := m.beginJob(jobID)
	if !ok {
		return
	}

	sink, err := OpenLogSink(m.store.LogPath(jobID))
	if err != nil {
		m.reportFailed(jobID, ErrInternalFault, err.Error())
		return
	}
	workDir := m.store.WorkDir(jobID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		_ = sink.Close()
		m.reportFailed(jobID, ErrInternalFault, fmt.Sprintf("create work dir: %v", err))
		return
	}

	r := &runner{
		m:           m,
		exec:        m.exec,
		jobID:       jobID,
		kind:        rec.Kind,
		spec:        rec.Spec,
		workDir:     workDir,
		sink:        sink,
		execTimeout: m.cfg.ExecTimeout,
	}
	r.run(m.baseCtx)
}

// beginJob transitions pending -> running under the lock. Jobs cancelled
// before a worker picked them up are skipped here, so the executor is never
// invoked for them.
func (m *Manager) beginJob(jobID string) (Record, bool) {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	if !ok || rec.State != StatePending {
		m.mu.Unlock()
		return Record{}, false
	}
	if rec.CancelRequested {
		now := time.Now().UTC()
		rec.State = StateCancelled
		rec.FinishedAt = &now
		snapshot := rec.clone()
		m.mu.Unlock()
		m.persist(&snapshot)
		return Record{}, false
	}
	now := time.Now().UTC()
	rec.State = StateRunning
	rec.StartedAt = &now
	snapshot := rec.clone()
	m.mu.Unlock()

	m.persist(&snapshot)
	m.log.Info("job started", zap.String("job_id", jobID), zap.String("kind", string(snapshot.Kind)))
	return snapshot, true
}

func (m *Manager) reportCompleted(jobID string, res *ResultRef) {
	m.finish(jobID, func(rec *Record, now time.Time) {
		rec.State = StateCompleted
		rec.Result = res
	})
	m.log.Info("job completed", zap.String("job_id", jobID))
}

func (m *Manager) reportFailed(jobID string, kind ErrorKind, msg string) {
	m.finish(jobID, func(rec *Record, now time.Time) {
		rec.State = StateFailed
		rec.Error = &ErrorInfo{Kind: kind, Message: msg}
	})
	m.log.Warn("job failed",
		zap.String("job_id", jobID),
		zap.String("error_kind", string(kind)),
		zap.String("error", msg))
}

func (m *Manager) reportCancelled(jobID string) {
	m.finish(jobID, func(rec *Record, now time.Time) {
		rec.State = StateCancelled
	})
	m.log.Info("job cancelled", zap.String("job_id", jobID))
}

// finish applies a terminal transition. It is a no-op if the job is already
// terminal, which keeps transitions monotonic even if a fault and a report
// race.
func (m *Manager) finish(jobID string, apply func(rec *Record, now time.Time)) {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	if !ok || rec.State.Terminal() {
		m.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	rec.FinishedAt = &now
	apply(rec, now)
	snapshot := rec.clone()
	m.mu.Unlock()

	m.persist(&snapshot)
}

func (m *Manager) persist(rec *Record) {
	if err := m.store.Write(rec); err != nil {
		m.log.Error("persist job record",
			zap.String("job_id", rec.ID),
			zap.Error(err))
	}
}

func (m *Manager) cancelRequested(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[jobID]
	return ok && rec.CancelRequested
}

// waitLaunch paces batch member launches when a launch rate is configured.
func (m *Manager) waitLaunch(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	return m.limiter.Wait(ctx)
}

func (rec *Record) clone() Record {
	out := *rec
	if rec.StartedAt != nil {
		t := *rec.StartedAt
		out.StartedAt = &t
	}
	if rec.FinishedAt != nil {
		t := *rec.FinishedAt
		out.FinishedAt = &t
	}
	if rec.Error != nil {
		e := *rec.Error
		out.Error = &e
	}
	out.Result = rec.Result.clone()
	if len(rec.Spec.Files) > 0 {
		out.Spec.Files = append([]string(nil), rec.Spec.Files...)
	}
	return out
}

// clone deep-copies a result so snapshots never alias the stored record's
// maps and member slices.
func (r *ResultRef) clone() *ResultRef {
	if r == nil {
		return nil
	}
	out := &ResultRef{}
	if r.Artifacts != nil {
		out.Artifacts = make(map[string]string, len(r.Artifacts))
		for k, v := range r.Artifacts {
			out.Artifacts[k] = v
		}
	}
	if r.Analysis != nil {
		out.Analysis = make(map[string]any, len(r.Analysis))
		for k, v := range r.Analysis {
			out.Analysis[k] = v
		}
	}
	if r.Members != nil {
		out.Members = make([]MemberResult, len(r.Members))
		for i, m := range r.Members {
			if m.Artifacts != nil {
				artifacts := make(map[string]string, len(m.Artifacts))
				for k, v := range m.Artifacts {
					artifacts[k] = v
				}
				m.Artifacts = artifacts
			}
			out.Members[i] = m
		}
	}
	return out
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}
