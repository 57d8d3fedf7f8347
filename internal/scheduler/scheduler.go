package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"subjectsort/internal/cascade"
	"subjectsort/internal/journal"
	"subjectsort/internal/logging"
	"subjectsort/internal/services"
)

// Decider resolves a subject for one path. *cascade.Cascade satisfies it.
type Decider interface {
	Decide(ctx context.Context, path string) (cascade.Result, error)
}

// FileMover relocates a classified file. *mover.Mover satisfies it.
type FileMover interface {
	Move(ctx context.Context, source, label string) (string, error)
}

// RunJournal persists run and per-file records. *journal.Store satisfies
// it; a nil journal disables persistence.
type RunJournal interface {
	StartRun(ctx context.Context, uuid, sourceDir string, total, workers int) (*journal.Run, error)
	RecordFile(ctx context.Context, record *journal.FileRecord) error
	FinishRun(ctx context.Context, id int64, status journal.RunStatus, processed, failed int, errorMessage string) error
}

// Summary reports one run.
type Summary struct {
	RunID       int64
	RunUUID     string
	Total       int
	Processed   int
	Failed      int
	Skipped     int
	Subjects    map[string]int
	BaseWorkers int
	PeakWorkers int
	Duration    time.Duration
	Aborted     bool
}

// Pool owns the worker pool, the path-keyed result cache, and the in-flight
// path set.
type Pool struct {
	decider   Decider
	fileMover FileMover
	runlog    RunJournal
	logger    *slog.Logger
	gate      *ContentGate

	configured int
	sourceDir  string

	mu       sync.Mutex
	state    *runState
	cache    map[string]cascade.Result
	inflight map[string]struct{}
}

// runState is the live accumulator for one Run call. All counters are
// touched under the pool mutex.
type runState struct {
	ctx    context.Context
	tasks  chan string
	wg     sync.WaitGroup
	logger *slog.Logger

	runID int64

	base    int
	live    int
	peak    int
	auto    bool
	blocked int

	processed int
	failed    int
	skipped   int
	subjects  map[string]int
}

// Option configures a Pool.
type Option func(*Pool)

// WithJournal attaches run persistence.
func WithJournal(runlog RunJournal) Option {
	return func(p *Pool) { p.runlog = runlog }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithWorkerCount fixes the pool size. Zero or below selects automatic
// sizing.
func WithWorkerCount(count int) Option {
	return func(p *Pool) { p.configured = count }
}

// WithSourceDir records the scanned directory in the journal.
func WithSourceDir(dir string) Option {
	return func(p *Pool) { p.sourceDir = dir }
}

// WithGate adopts a gate created before the pool. The decision chain and
// the pool reference each other through the gate, so callers that build the
// chain first hand the same gate to both sides.
func WithGate(gate *ContentGate) Option {
	return func(p *Pool) {
		if gate != nil {
			p.gate = gate
		}
	}
}

// New creates a Pool.
func New(decider Decider, fileMover FileMover, opts ...Option) *Pool {
	p := &Pool{
		decider:   decider,
		fileMover: fileMover,
		logger:    logging.NewNop(),
		cache:     make(map[string]cascade.Result),
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.gate == nil {
		p.gate = NewGate()
	}
	p.gate.bind(p)
	return p
}

// Gate returns the content-phase gate to wire into the cascade. Entering
// the gate is what lets an automatic pool grow.
func (p *Pool) Gate() *ContentGate {
	return p.gate
}

func (p *Pool) gateEnter() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return
	}
	p.state.blocked++
	p.maybeGrowLocked()
}

func (p *Pool) gateLeave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return
	}
	p.state.blocked--
}

// maybeGrowLocked adds one worker when every live worker is inside the
// content phase. Callers hold the pool mutex.
func (p *Pool) maybeGrowLocked() {
	state := p.state
	if !state.auto {
		return
	}
	if state.blocked < state.live || state.live >= state.base+growthHeadroom {
		return
	}
	state.live++
	if state.live > state.peak {
		state.peak = state.live
	}
	state.wg.Add(1)
	go p.worker(state)
	state.logger.Info("worker pool grew",
		logging.Int("live", state.live),
		logging.Int("blocked", state.blocked),
		logging.Int("base", state.base))
}

// Run processes paths and reports a summary. The returned error covers
// setup problems only; cancellation drains the queue and comes back as an
// aborted summary.
func (p *Pool) Run(ctx context.Context, paths []string) (Summary, error) {
	started := time.Now()

	unique, busy, err := p.admitPaths(paths)
	if err != nil {
		return Summary{}, err
	}
	if len(unique) == 0 && busy == 0 {
		return Summary{Subjects: map[string]int{}}, nil
	}

	base, auto := Workers(p.configured, len(unique))
	runUUID := uuid.NewString()

	var runID int64
	if p.runlog != nil {
		run, err := p.runlog.StartRun(ctx, runUUID, p.sourceDir, len(unique), base)
		if err != nil {
			p.releasePaths(unique)
			return Summary{}, services.Wrap(services.ErrConfiguration, "scheduler", "start run",
				"cannot open journal run", err)
		}
		runID = run.ID
	}

	state := &runState{
		ctx:      ctx,
		tasks:    make(chan string, len(unique)),
		logger:   p.logger.With(logging.String(logging.FieldRunID, runUUID)),
		runID:    runID,
		base:     base,
		live:     base,
		peak:     base,
		auto:     auto,
		skipped:  busy,
		subjects: make(map[string]int),
	}
	for _, path := range unique {
		state.tasks <- path
	}
	close(state.tasks)

	p.mu.Lock()
	p.state = state
	p.mu.Unlock()

	state.logger.Info("run started",
		logging.Int("files", len(unique)),
		logging.Int("workers", base),
		logging.Bool("auto_sized", auto))

	state.wg.Add(base)
	for i := 0; i < base; i++ {
		go p.worker(state)
	}
	state.wg.Wait()

	p.mu.Lock()
	p.state = nil
	summary := Summary{
		RunID:       runID,
		RunUUID:     runUUID,
		Total:       len(unique) + busy,
		Processed:   state.processed,
		Failed:      state.failed,
		Skipped:     state.skipped,
		Subjects:    state.subjects,
		BaseWorkers: base,
		PeakWorkers: state.peak,
		Duration:    time.Since(started),
		Aborted:     ctx.Err() != nil,
	}
	p.mu.Unlock()

	if p.runlog != nil {
		status := journal.RunCompleted
		message := ""
		if summary.Aborted {
			status = journal.RunAborted
			message = ctx.Err().Error()
		}
		// The journal write must survive the cancelled run context.
		if err := p.runlog.FinishRun(context.Background(), runID, status, summary.Processed, summary.Failed, message); err != nil {
			state.logger.Warn("journal run not closed", logging.Error(err))
		}
	}

	state.logger.Info("run finished",
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("peak_workers", summary.PeakWorkers),
		logging.Duration("elapsed", summary.Duration),
		logging.Bool("aborted", summary.Aborted))
	return summary, nil
}

// admitPaths dedupes the input and claims each path against concurrent
// runs. The busy count covers paths another run already holds.
func (p *Pool) admitPaths(paths []string) ([]string, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != nil {
		return nil, 0, services.Wrap(services.ErrValidation, "scheduler", "run",
			"a run is already active", nil)
	}

	seen := make(map[string]struct{}, len(paths))
	unique := make([]string, 0, len(paths))
	busy := 0
	for _, path := range paths {
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		if _, held := p.inflight[path]; held {
			busy++
			continue
		}
		p.inflight[path] = struct{}{}
		unique = append(unique, path)
	}
	return unique, busy, nil
}

func (p *Pool) releasePaths(paths []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, path := range paths {
		delete(p.inflight, path)
	}
}

func (p *Pool) worker(state *runState) {
	defer state.wg.Done()
	for path := range state.tasks {
		if state.ctx.Err() != nil {
			p.finishTask(state, path, taskOutcome{
				status: journal.FileSkipped,
				reason: "run_cancelled",
			})
			continue
		}
		p.process(state, path)
	}
}

// taskOutcome is everything one finished task reports.
type taskOutcome struct {
	status    journal.FileStatus
	subject   string
	reason    string
	finalPath string
	errKind   string
	errMsg    string
	duration  time.Duration
}

func (p *Pool) process(state *runState, path string) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			state.logger.Error("task panicked",
				logging.String(logging.FieldTaskPath, path),
				logging.Any("panic", r))
			p.finishTask(state, path, taskOutcome{
				status:   journal.FileFailed,
				reason:   "panic",
				errKind:  "panic",
				errMsg:   fmt.Sprint(r),
				duration: time.Since(started),
			})
		}
	}()

	result, hit := p.cachedResult(path)
	if !hit {
		var err error
		result, err = p.decider.Decide(state.ctx, path)
		if err != nil {
			p.finishTask(state, path, taskOutcome{
				status:   journal.FileSkipped,
				reason:   "run_cancelled",
				duration: time.Since(started),
			})
			return
		}
		p.storeResult(path, result)
	}

	outcome := taskOutcome{
		subject: result.Subject,
		reason:  result.Reason,
	}
	if result.Err != nil {
		outcome.errKind = services.Kind(result.Err)
		outcome.errMsg = result.Err.Error()
	}

	finalPath, err := p.fileMover.Move(state.ctx, path, result.Subject)
	outcome.duration = time.Since(started)
	switch {
	case err != nil && state.ctx.Err() != nil:
		outcome.status = journal.FileSkipped
		outcome.reason = "run_cancelled"
		outcome.errKind = ""
		outcome.errMsg = ""
	case err != nil:
		outcome.status = journal.FileFailed
		outcome.errKind = services.Kind(err)
		outcome.errMsg = err.Error()
		state.logger.Warn("file not moved",
			logging.String(logging.FieldTaskPath, path),
			logging.String(logging.FieldSubject, result.Subject),
			logging.String(logging.FieldImpact, "file stays in the source directory"),
			logging.Error(err))
	default:
		outcome.status = journal.FileMoved
		outcome.finalPath = finalPath
		state.logger.Debug("file sorted",
			logging.String(logging.FieldTaskPath, path),
			logging.String(logging.FieldSubject, result.Subject),
			logging.String(logging.FieldReason, result.Reason),
			logging.Duration("elapsed", outcome.duration))
	}

	p.finishTask(state, path, outcome)
}

func (p *Pool) cachedResult(path string) (cascade.Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	result, ok := p.cache[path]
	return result, ok
}

func (p *Pool) storeResult(path string, result cascade.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[path] = result
}

// finishTask updates counters, releases the in-flight claim, and writes the
// journal record.
func (p *Pool) finishTask(state *runState, path string, outcome taskOutcome) {
	p.mu.Lock()
	switch outcome.status {
	case journal.FileMoved:
		state.processed++
		state.subjects[outcome.subject]++
	case journal.FileFailed:
		state.failed++
	case journal.FileSkipped:
		state.skipped++
	}
	delete(p.inflight, path)
	p.mu.Unlock()

	if p.runlog == nil {
		return
	}
	record := &journal.FileRecord{
		RunID:        state.runID,
		Path:         path,
		Subject:      outcome.subject,
		Reason:       outcome.reason,
		Status:       outcome.status,
		FinalPath:    outcome.finalPath,
		ErrorMessage: outcome.errMsg,
		ErrorKind:    outcome.errKind,
		DurationMS:   outcome.duration.Milliseconds(),
	}
	// Journal writes survive the cancelled run context.
	if err := p.runlog.RecordFile(context.Background(), record); err != nil {
		state.logger.Warn("file record not written",
			logging.String(logging.FieldTaskPath, path),
			logging.Error(err))
	}
}
