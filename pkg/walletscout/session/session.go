// Package session coordinates scan lifecycles. A Manager owns at most one
// live scan at a time: it runs the collect and classify phases in a
// supervising goroutine, persists durable scan records around them, and
// answers status queries without ever blocking on scan I/O.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelsec/walletscout/pkg/walletscout/collector"
	"github.com/kestrelsec/walletscout/pkg/walletscout/detect"
	"github.com/kestrelsec/walletscout/pkg/walletscout/executor"
	"github.com/kestrelsec/walletscout/pkg/walletscout/history"
	"github.com/kestrelsec/walletscout/pkg/walletscout/logging"
	"github.com/kestrelsec/walletscout/pkg/walletscout/report"
	"github.com/kestrelsec/walletscout/pkg/walletscout/tuner"
	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// ErrScanActive indicates a start attempt while another scan is live.
var ErrScanActive = errors.New("a scan is already in progress")

// ErrNoActiveSession indicates a stop attempt with nothing running.
var ErrNoActiveSession = errors.New("no active scan session")

// State is the lifecycle state of the manager's current session.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateStopping  State = "stopping"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Phase names the active pipeline stage while a session runs.
type Phase string

const (
	PhaseCollecting  Phase = "collecting"
	PhaseClassifying Phase = "classifying"
)

// Event is delivered to observers on lifecycle transitions.
type Event struct {
	Type   EventType
	ScanID string
}

// EventType enumerates observer notifications.
type EventType string

const (
	EventStarted       EventType = "started"
	EventStopRequested EventType = "stop_requested"
	EventCompleted     EventType = "completed"
	EventStopped       EventType = "stopped"
	EventFailed        EventType = "failed"
)

// Observer receives lifecycle events. Observers are invoked synchronously;
// a panicking observer is isolated and does not affect the session or the
// remaining observers.
type Observer func(Event)

// Status is the snapshot returned by Status queries.
type Status struct {
	State      State           `json:"state"`
	ScanID     string          `json:"scan_id,omitempty"`
	TargetPath string          `json:"target_path,omitempty"`
	StartedAt  time.Time       `json:"started_at,omitzero"`
	Phase      Phase           `json:"phase,omitempty"`
	Progress   *types.Progress `json:"progress,omitempty"`
	Error      string          `json:"error,omitempty"`

	// LastScan summarizes the most recently finished session, retained
	// across the return to idle.
	LastScan *Summary `json:"last_scan,omitempty"`
}

// Summary is the terminal view of one finished session.
type Summary struct {
	ScanID     string        `json:"scan_id"`
	State      State         `json:"state"`
	TargetPath string        `json:"target_path"`
	Duration   time.Duration `json:"duration"`
	FilesSeen  int64         `json:"files_seen"`
	FilesFound int           `json:"files_found"`
	Error      string        `json:"error,omitempty"`
}

// session is the unit of exclusivity. One exists per live scan.
type session struct {
	id        string
	cfg       types.ScanConfig
	startedAt time.Time
	cancel    context.CancelFunc

	mu    sync.Mutex
	phase Phase
	coll  *collector.Collector
	exec  *executor.Executor
}

// estimateInflation pads the running file count during collection so the
// advisory total does not trail the walk.
const estimateInflation = 1.2

// Manager serializes all session-state transitions behind one lock. The
// running pipeline itself executes in a separate supervising goroutine.
type Manager struct {
	store     *history.Store
	detector  executor.Classifier
	retention int
	formats   []string
	logger    *logging.Logger

	mu        sync.Mutex
	state     State
	current   *session
	observers []Observer

	last         *Summary
	lastFindings []types.Finding
}

// Options configures a Manager.
type Options struct {
	// Store persists scan records and report artifacts. Required.
	Store *history.Store

	// Retention is the number of records kept in history.
	Retention int

	// Formats are the report formats rendered on natural completion.
	Formats []string

	// Classifier overrides the default detector chain.
	Classifier executor.Classifier
}

// NewManager creates an idle Manager.
func NewManager(opts Options) *Manager {
	if opts.Classifier == nil {
		opts.Classifier = detect.New()
	}
	return &Manager{
		store:     opts.Store,
		detector:  opts.Classifier,
		retention: opts.Retention,
		formats:   opts.Formats,
		logger:    logging.Get("session"),
		state:     StateIdle,
	}
}

// RegisterObserver adds a lifecycle observer. Not safe to call after
// sessions have started racing with notifications; register during setup.
func (m *Manager) RegisterObserver(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, obs)
}

// Start begins a new scan and returns its session id. It fails with
// ErrScanActive while another session is live, and with
// collector.ErrPathNotFound before any session is created when the root
// does not exist.
func (m *Manager) Start(cfg types.ScanConfig) (string, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", collector.ErrPathNotFound
		}
		return "", err
	}
	if !info.IsDir() {
		return "", collector.ErrNotDirectory
	}

	ctx, cancel := context.WithCancel(context.Background())

	// The running check and the session allocation are one atomic step.
	m.mu.Lock()
	if m.state == StateRunning || m.state == StateStopping {
		m.mu.Unlock()
		cancel()
		return "", ErrScanActive
	}

	sess := &session{
		id:        newScanID(),
		cfg:       cfg,
		startedAt: time.Now(),
		cancel:    cancel,
		phase:     PhaseCollecting,
	}
	m.state = StateRunning
	m.current = sess
	m.mu.Unlock()

	rec := types.ScanRecord{
		ID:         sess.id,
		Timestamp:  sess.startedAt,
		TargetName: filepath.Base(cfg.Root),
		TargetPath: cfg.Root,
		Status:     types.StatusRunning,
	}
	if err := m.store.Save(rec); err != nil {
		m.logger.Error("persist scan record", "scan", sess.id, "error", err)
	}

	m.notify(Event{Type: EventStarted, ScanID: sess.id})
	go m.run(ctx, sess, rec)

	return sess.id, nil
}

// Stop requests a cooperative halt of the live session. In-flight worker
// tasks run to completion; no further candidates are dispatched.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.state != StateRunning && m.state != StateStopping {
		m.mu.Unlock()
		return ErrNoActiveSession
	}
	sess := m.current
	m.state = StateStopping
	m.mu.Unlock()

	sess.mu.Lock()
	exec := sess.exec
	sess.mu.Unlock()
	if exec != nil {
		exec.Stop()
	}
	sess.cancel()

	m.notify(Event{Type: EventStopRequested, ScanID: sess.id})
	return nil
}

// Status returns a snapshot of the manager. It reads only in-memory
// counters and never blocks on scan I/O.
func (m *Manager) Status() Status {
	m.mu.Lock()
	state := m.state
	sess := m.current
	last := m.last
	m.mu.Unlock()

	st := Status{State: state, LastScan: last}
	if sess == nil {
		return st
	}

	st.ScanID = sess.id
	st.TargetPath = sess.cfg.Root
	st.StartedAt = sess.startedAt

	sess.mu.Lock()
	phase := sess.phase
	coll := sess.coll
	exec := sess.exec
	sess.mu.Unlock()

	if state == StateStopping {
		return st
	}

	st.Phase = phase
	switch phase {
	case PhaseCollecting:
		if coll != nil {
			seen := coll.Seen()
			st.Progress = &types.Progress{
				EstimatedTotalFiles: int64(float64(seen) * estimateInflation),
				Elapsed:             time.Since(sess.startedAt),
			}
		}
	case PhaseClassifying:
		if exec != nil {
			p := exec.Progress()
			st.Progress = &p
		}
	}
	return st
}

// Results returns the findings of the most recently finished session.
func (m *Manager) Results() []types.Finding {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Finding, len(m.lastFindings))
	copy(out, m.lastFindings)
	return out
}

// run supervises one scan pipeline from collection to the terminal record.
func (m *Manager) run(ctx context.Context, sess *session, rec types.ScanRecord) {
	var (
		findings []types.Finding
		stats    types.CollectionStats
		runErr   error
	)

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("scan pipeline panic: %v", r)
		}
		// Release happens regardless of outcome so a new scan can start.
		m.finish(sess, rec, findings, stats, runErr)
	}()

	coll := collector.New(collector.Options{
		Root:        sess.cfg.Root,
		MaxDepth:    sess.cfg.MaxDepth,
		MaxFileSize: sess.cfg.MaxFileSize,
	})
	sess.mu.Lock()
	sess.coll = coll
	sess.mu.Unlock()

	var candidates []string
	var err error
	candidates, stats, err = coll.Collect(ctx)
	if err != nil {
		runErr = err
		return
	}

	m.logger.Info("collection finished",
		"scan", sess.id, "candidates", len(candidates), "files_seen", stats.TotalFiles)

	// Stop requested during collection: skip classification entirely.
	if ctx.Err() != nil {
		return
	}

	pool := m.poolConfig(sess.cfg.Workers)
	exec := executor.New(executor.Options{
		Workers: pool.Workers,
		Total:   len(candidates),
		Buffer:  pool.TaskBuffer,
	}, m.detector)
	sess.mu.Lock()
	sess.phase = PhaseClassifying
	sess.exec = exec
	sess.mu.Unlock()

	findings = exec.Run(ctx, candidates)
}

// finish writes the terminal record, trims history, notifies observers and
// returns the manager to idle.
func (m *Manager) finish(sess *session, rec types.ScanRecord, findings []types.Finding, stats types.CollectionStats, runErr error) {
	duration := time.Since(sess.startedAt)

	var terminal State
	var status types.RecordStatus
	switch {
	case runErr != nil:
		terminal, status = StateError, types.StatusFailed
	case m.wasStopped(sess):
		terminal, status = StateStopped, types.StatusStopped
	default:
		terminal, status = StateCompleted, types.StatusCompleted
	}

	rec.TargetSize = stats.TotalBytes
	rec.FilesFound = int64(len(findings))
	rec.TotalFilesSeen = stats.TotalFiles
	rec.Duration = duration
	rec.Status = status

	// Reports are generated on natural completion only.
	if terminal == StateCompleted {
		rec.Reports = m.writeReports(sess, findings, stats, duration)
	}

	if err := m.store.Save(rec); err != nil {
		m.logger.Error("persist terminal record", "scan", sess.id, "error", err)
	}
	if m.retention > 0 {
		if _, err := m.store.Trim(m.retention); err != nil {
			m.logger.Warn("trim history", "error", err)
		}
	}

	summary := &Summary{
		ScanID:     sess.id,
		State:      terminal,
		TargetPath: sess.cfg.Root,
		Duration:   duration,
		FilesSeen:  stats.TotalFiles,
		FilesFound: len(findings),
	}
	if runErr != nil {
		summary.Error = runErr.Error()
		m.logger.Error("scan failed", "scan", sess.id, "error", runErr)
	} else {
		m.logger.Info("scan finished",
			"scan", sess.id, "state", terminal, "findings", len(findings), "duration", duration)
	}

	m.mu.Lock()
	m.state = StateIdle
	m.current = nil
	m.last = summary
	m.lastFindings = findings
	m.mu.Unlock()

	switch terminal {
	case StateCompleted:
		m.notify(Event{Type: EventCompleted, ScanID: sess.id})
	case StateStopped:
		m.notify(Event{Type: EventStopped, ScanID: sess.id})
	case StateError:
		m.notify(Event{Type: EventFailed, ScanID: sess.id})
	}
}

// poolConfig sizes the worker pool, detecting host resources when no
// explicit worker count was requested.
func (m *Manager) poolConfig(override int) tuner.OptimalConfig {
	resources, err := tuner.Detect()
	if err != nil {
		m.logger.Debug("resource detection failed", "error", err)
		return tuner.OptimalConfig{Workers: max(override, 1)}
	}
	return tuner.CalculateWithOverrides(resources, override)
}

// wasStopped reports whether the session observed a stop request.
func (m *Manager) wasStopped(sess *session) bool {
	sess.mu.Lock()
	exec := sess.exec
	sess.mu.Unlock()
	if exec != nil && exec.Stopped() {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateStopping
}

// writeReports renders report artifacts into the session's history
// subdirectory. Render failures degrade to an empty report map.
func (m *Manager) writeReports(sess *session, findings []types.Finding, stats types.CollectionStats, duration time.Duration) map[string]string {
	dir, err := m.store.SubDir(sess.id)
	if err != nil {
		m.logger.Error("create report dir", "scan", sess.id, "error", err)
		return nil
	}

	var scanned int64
	sess.mu.Lock()
	if sess.exec != nil {
		scanned = sess.exec.Progress().FilesScanned
	}
	sess.mu.Unlock()

	result := &report.Result{
		ScanID:         sess.id,
		Timestamp:      sess.startedAt,
		TargetName:     filepath.Base(sess.cfg.Root),
		TargetPath:     sess.cfg.Root,
		Duration:       duration,
		TotalFilesSeen: stats.TotalFiles,
		FilesScanned:   scanned,
		Findings:       findings,
	}

	formats := m.formats
	if len(sess.cfg.Formats) > 0 {
		formats = sess.cfg.Formats
	}

	written, err := report.WriteAll(dir, formats, result)
	if err != nil {
		m.logger.Error("write reports", "scan", sess.id, "error", err)
	}
	if len(written) == 0 {
		return nil
	}
	return written
}

// notify delivers an event to every observer, isolating panics.
func (m *Manager) notify(ev Event) {
	m.mu.Lock()
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, obs := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("observer panic", "event", ev.Type, "panic", r)
				}
			}()
			obs(ev)
		}()
	}
}

// newScanID builds a session id from the start time and a random suffix.
func newScanID() string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("scan_%s_%s", time.Now().Format("20060102_150405"), suffix)
}
