package manager

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rung-dev/rung/internal/config"
	"github.com/rung-dev/rung/internal/graph"
	"github.com/rung-dev/rung/internal/logging"
	"github.com/rung-dev/rung/internal/process"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProcessState is a point-in-time snapshot of one process's lifecycle state,
// per spec.md §4.8 constructor note ("every process to pending with
// exitCode=null, restartCount=0").
type ProcessState struct {
	Name         string
	Status       config.Status
	ExitCode     *int
	RestartCount int
	// RestartPending is true while a backoff timer is armed to bring this
	// process back up, even though Status currently reads "failed" — the
	// status only flips to "starting" once the timer fires.
	RestartPending bool
}

// Manager owns all runners, the resolved config, the computed tiers, the
// listener list, and backoff state, per spec.md §4.8. All state mutation
// happens inside closures drained by a single coordinator goroutine (the
// "mailbox" pattern, per spec.md §5's true-threads serialization
// requirement), grounded on the channel-coordinated design of
// cirello.io/runner's Runner.Start loop.
type Manager struct {
	cfg   *config.ResolvedConfig
	tiers [][]string
	order []string

	// runID correlates every event emitted by this manager instance, e.g.
	// for log aggregation or tracing spans (internal/tracing).
	runID string

	runners  map[string]*process.ProcessRunner
	states   map[string]*ProcessState
	backoffs map[string]*backoffState

	startedAt    map[string]time.Time
	startFutures map[string]chan struct{}
	cancelDelays chan struct{}

	logger *logging.Logger

	listeners    []Listener
	listenerIDs  []uint64
	nextListener uint64
	stopping  bool

	lastCols, lastRows int

	mailbox chan func()
}

// New builds a Manager from a resolved configuration: computes tiers
// (failing on a dependency cycle, per spec.md §4.3), and initializes every
// process to pending.
func New(cfg *config.ResolvedConfig) (*Manager, error) {
	nodes := graph.NodesFromConfig(cfg)
	tiers, err := graph.Tiers(nodes)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(cfg.Processes))
	for _, tier := range tiers {
		order = append(order, tier...)
	}

	m := &Manager{
		cfg:         cfg,
		runID:       uuid.NewString(),
		tiers:       tiers,
		order:       order,
		runners:     make(map[string]*process.ProcessRunner, len(order)),
		states:      make(map[string]*ProcessState, len(order)),
		backoffs:    make(map[string]*backoffState, len(order)),
		startedAt:   make(map[string]time.Time, len(order)),
		mailbox:     make(chan func(), 4096),
		logger:      logging.Default().WithFields(zap.String("component", "manager")),
	}

	for _, name := range order {
		m.states[name] = &ProcessState{Name: name, Status: config.StatusPending}
		m.backoffs[name] = &backoffState{}
		m.runners[name] = process.NewProcessRunner(cfg.Processes[name], m.callbacksFor(name))
	}

	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	for fn := range m.mailbox {
		fn()
	}
}

// do enqueues fn on the mailbox and blocks until the coordinator has run it.
func (m *Manager) do(fn func()) {
	done := make(chan struct{})
	m.mailbox <- func() {
		fn()
		close(done)
	}
	<-done
}

// post enqueues fn without waiting for it to run; used by runner callbacks,
// which must never block the runner's own goroutines.
func (m *Manager) post(fn func()) {
	m.mailbox <- fn
}

func (m *Manager) callbacksFor(name string) process.Callbacks {
	return process.Callbacks{
		OnStatus: func(status config.Status) {
			m.post(func() { m.handleStatus(name, status) })
		},
		OnOutput: func(chunk []byte) {
			m.post(func() { m.emit(Event{Kind: EventOutput, Name: name, Output: chunk}) })
		},
		OnExit: func(code *int) {
			m.post(func() { m.handleExit(name, code) })
		},
		OnReady: func(map[string]string) {
			m.post(func() { m.handleReady(name) })
		},
		OnError: func() {
			m.post(func() { m.emit(Event{Kind: EventError, Name: name}) })
		},
	}
}

func (m *Manager) handleStatus(name string, status config.Status) {
	st, ok := m.states[name]
	if !ok {
		return
	}
	st.Status = status
	m.logger.WithProcess(name).Debug("status changed", zap.String("status", string(status)))
	m.emit(Event{Kind: EventStatus, Name: name, Status: status})
}

func (m *Manager) handleReady(name string) {
	m.closeFutureLocked(name)
}

func (m *Manager) handleExit(name string, code *int) {
	st, ok := m.states[name]
	if !ok {
		return
	}
	st.ExitCode = code
	log := m.logger.WithProcess(name)
	if code != nil {
		log = log.WithFields(zap.Int("exit_code", *code))
	}
	log.Info("process exited")
	m.emit(Event{Kind: EventExit, Name: name, Code: code})
	m.closeFutureLocked(name)

	if m.stopping || code == nil {
		return
	}
	rec := m.cfg.Processes[name]
	if !rec.Persistent || st.Status != config.StatusFailed {
		return
	}
	m.scheduleRestartLocked(name)
}

func (m *Manager) scheduleRestartLocked(name string) {
	rec := m.cfg.Processes[name]
	b := m.backoffs[name]
	b.resetIfLongUptime(time.Since(m.startedAt[name]))

	if rec.MaxRestarts != nil && b.attempt >= *rec.MaxRestarts {
		m.logger.WithProcess(name).Warn("reached restart limit, giving up", zap.Int("max_restarts", *rec.MaxRestarts))
		m.emit(Event{Kind: EventOutput, Name: name, Output: []byte(fmt.Sprintf(
			"[rung] reached restart limit (%d/%d) — giving up\n", *rec.MaxRestarts, *rec.MaxRestarts))})
		return
	}

	delay, attemptNumber := b.nextDelay()
	label := fmt.Sprintf("%d", attemptNumber)
	if rec.MaxRestarts != nil {
		label = fmt.Sprintf("%d/%d", attemptNumber, *rec.MaxRestarts)
	}
	m.logger.WithProcess(name).Info("scheduling restart", zap.Duration("delay", delay), zap.Int("attempt", attemptNumber))
	m.emit(Event{Kind: EventOutput, Name: name, Output: []byte(fmt.Sprintf(
		"[rung] restarting in %ds (attempt %s)\n", int(delay.Seconds()), label))})

	b.timer = time.AfterFunc(delay, func() {
		m.post(func() {
			b.timer = nil
			if m.stopping {
				return
			}
			m.startRunnerLocked(name, m.lastCols, m.lastRows, nil)
		})
	})
}

func (m *Manager) setSkippedLocked(name string) {
	st, ok := m.states[name]
	if !ok || st.Status.IsTerminal() {
		return
	}
	st.Status = config.StatusSkipped
	m.emit(Event{Kind: EventStatus, Name: name, Status: config.StatusSkipped})
}

func (m *Manager) closeFutureLocked(name string) {
	ch, ok := m.startFutures[name]
	if !ok {
		return
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (m *Manager) closeFuture(name string) {
	m.do(func() { m.closeFutureLocked(name) })
}

func (m *Manager) startRunnerLocked(name string, cols, rows int, overrides *process.StartOverrides) {
	m.lastCols, m.lastRows = cols, rows
	m.startedAt[name] = time.Now()
	m.runners[name].Start(cols, rows, overrides)
}

func (m *Manager) emit(ev Event) {
	ev.RunID = m.runID
	for _, l := range m.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Warn("event listener panicked", zap.Any("panic", r))
				}
			}()
			l(ev)
		}()
	}
}

// On registers an event listener. Listeners are invoked synchronously from
// the coordinator and must not block (spec.md §5). The returned func
// unregisters the listener; safe to call more than once.
func (m *Manager) On(l Listener) func() {
	var id uint64
	m.do(func() {
		id = m.nextListener
		m.nextListener++
		m.listeners = append(m.listeners, l)
		m.listenerIDs = append(m.listenerIDs, id)
	})
	return func() {
		m.do(func() {
			for i, lid := range m.listenerIDs {
				if lid == id {
					m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
					m.listenerIDs = append(m.listenerIDs[:i], m.listenerIDs[i+1:]...)
					return
				}
			}
		})
	}
}

// GetState returns a snapshot of one process's state.
func (m *Manager) GetState(name string) (ProcessState, bool) {
	var st ProcessState
	var ok bool
	m.do(func() {
		s, found := m.states[name]
		if found {
			st = *s
			st.RestartPending = m.backoffs[name].timer != nil
			ok = true
		}
	})
	return st, ok
}

// GetAllStates returns a snapshot of every process's state.
func (m *Manager) GetAllStates() map[string]ProcessState {
	out := make(map[string]ProcessState)
	m.do(func() {
		for name, s := range m.states {
			snap := *s
			snap.RestartPending = m.backoffs[name].timer != nil
			out[name] = snap
		}
	})
	return out
}

// GetProcessNames returns process names in tiered topological order.
func (m *Manager) GetProcessNames() []string {
	return append([]string{}, m.order...)
}

// StartAll runs the tiered start protocol with early promotion (spec.md
// §4.8, Open Question 4): each process waits only on its own dependencies'
// ready-or-terminal futures rather than on a strict tier barrier.
func (m *Manager) StartAll(cols, rows int) {
	m.do(func() {
		m.stopping = false
		m.lastCols, m.lastRows = cols, rows
		m.startFutures = make(map[string]chan struct{}, len(m.order))
		for _, n := range m.order {
			m.startFutures[n] = make(chan struct{})
		}
		m.cancelDelays = make(chan struct{})
	})

	var g errgroup.Group
	for _, n := range m.order {
		name := n
		g.Go(func() error {
			m.runStartSequence(name, cols, rows)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager) runStartSequence(name string, cols, rows int) {
	rec := m.cfg.Processes[name]

	var deps []chan struct{}
	var cancel chan struct{}
	m.do(func() {
		cancel = m.cancelDelays
		for _, dep := range rec.DependsOn {
			if ch, ok := m.startFutures[dep]; ok {
				deps = append(deps, ch)
			}
		}
	})
	for _, d := range deps {
		<-d
	}

	var proceed bool
	var delay time.Duration
	var hasDelay bool
	m.do(func() {
		if m.stopping {
			return
		}
		for _, dep := range rec.DependsOn {
			st, ok := m.states[dep]
			if !ok {
				continue
			}
			switch st.Status {
			case config.StatusFailed, config.StatusSkipped, config.StatusStopped:
				m.setSkippedLocked(name)
				return
			}
		}
		if rec.Condition != "" && conditionFalsy(rec.Condition) {
			m.setSkippedLocked(name)
			return
		}
		if rec.Delay != nil {
			delay = time.Duration(*rec.Delay) * time.Millisecond
			hasDelay = true
		}
		proceed = true
	})

	if !proceed {
		m.closeFuture(name)
		return
	}

	if hasDelay {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-cancel:
			timer.Stop()
			m.closeFuture(name)
			return
		}
	}

	m.do(func() {
		if m.stopping {
			return
		}
		m.startRunnerLocked(name, cols, rows, nil)
	})
}

// Start starts a single process; only valid when it is stopped, finished, or
// failed. Cancels any pending auto-restart and resets its backoff counter.
func (m *Manager) Start(name string, cols, rows int) {
	m.do(func() {
		st, ok := m.states[name]
		if !ok {
			return
		}
		switch st.Status {
		case config.StatusStopped, config.StatusFinished, config.StatusFailed:
		default:
			return
		}
		m.backoffs[name].cancel()
		m.backoffs[name].attempt = 0
		m.startRunnerLocked(name, cols, rows, nil)
	})
}

// UpdateProcess replaces name's process record and rebuilds its runner, for
// the config-reload path (spec.md §4.9): only valid while the process is
// pending, stopped, finished, or failed, since a live runner can't have its command
// swapped out from under it.
func (m *Manager) UpdateProcess(name string, rec *config.ProcessRecord) error {
	var err error
	m.do(func() {
		st, ok := m.states[name]
		if !ok {
			err = fmt.Errorf("unknown process %q", name)
			return
		}
		switch st.Status {
		case config.StatusStopped, config.StatusFinished, config.StatusFailed, config.StatusPending:
		default:
			err = fmt.Errorf("process %q must be stopped before it can be updated", name)
			return
		}
		m.cfg.Processes[name] = rec
		m.runners[name] = process.NewProcessRunner(rec, m.callbacksFor(name))
	})
	return err
}

// Stop stops a single running process; only valid when running, ready, or
// starting. Cancels any pending auto-restart, whatever the status.
func (m *Manager) Stop(name string) {
	var runner *process.ProcessRunner
	m.do(func() {
		st, ok := m.states[name]
		if !ok {
			return
		}
		m.backoffs[name].cancel()
		switch st.Status {
		case config.StatusRunning, config.StatusReady, config.StatusStarting:
		default:
			return
		}
		runner = m.runners[name]
	})
	if runner != nil {
		runner.Stop(0)
	}
}

// Restart restarts a single stopped/failed process directly (no live child
// to gracefully stop first). Cancels any pending auto-restart and resets
// backoff.
func (m *Manager) Restart(name string, cols, rows int) {
	m.do(func() {
		st, ok := m.states[name]
		if !ok {
			return
		}
		switch st.Status {
		case config.StatusStopped, config.StatusFailed:
		default:
			return
		}
		m.backoffs[name].cancel()
		m.backoffs[name].attempt = 0
		m.startRunnerLocked(name, cols, rows, nil)
	})
}

// RestartAll restarts every process currently alive (running, ready, or
// starting) via the runner's own stop-then-start Restart sequence.
func (m *Manager) RestartAll(cols, rows int) {
	var runners []*process.ProcessRunner
	m.do(func() {
		for name, st := range m.states {
			switch st.Status {
			case config.StatusRunning, config.StatusReady, config.StatusStarting:
				m.backoffs[name].cancel()
				m.backoffs[name].attempt = 0
				runners = append(runners, m.runners[name])
			}
		}
	})
	var g errgroup.Group
	for _, r := range runners {
		rn := r
		g.Go(func() error {
			rn.Restart(cols, rows, nil)
			return nil
		})
	}
	_ = g.Wait()
}

// Resize forwards a terminal resize to one process's PTY.
func (m *Manager) Resize(name string, cols, rows uint16) error {
	var r *process.ProcessRunner
	var ok bool
	m.do(func() {
		r, ok = m.runners[name]
	})
	if !ok {
		return fmt.Errorf("process %q: not found", name)
	}
	return r.Resize(cols, rows)
}

// ResizeAll forwards a terminal resize to every process's PTY. Runner
// references are copied out under the mailbox so this never iterates
// m.runners concurrently with a map write (e.g. UpdateProcess).
func (m *Manager) ResizeAll(cols, rows uint16) {
	var runners []*process.ProcessRunner
	m.do(func() {
		runners = make([]*process.ProcessRunner, 0, len(m.runners))
		for _, r := range m.runners {
			runners = append(runners, r)
		}
	})
	for _, r := range runners {
		_ = r.Resize(cols, rows)
	}
}

// Write forwards keyboard input to a process; the runner enforces
// interactive-only delivery.
func (m *Manager) Write(name string, data []byte) (int, error) {
	var r *process.ProcessRunner
	var ok bool
	m.do(func() {
		r, ok = m.runners[name]
	})
	if !ok {
		return 0, fmt.Errorf("process %q: not found", name)
	}
	return r.Write(data)
}

// StopAll sets the stopping flag, cancels every pending auto-restart timer
// and delay timer, signals every runner to stop in reverse tier order, and
// finally marks any process that never started (its delay was cancelled
// before firing) as stopped.
func (m *Manager) StopAll() {
	m.do(func() {
		m.stopping = true
		for _, b := range m.backoffs {
			b.cancel()
		}
		if m.cancelDelays != nil {
			select {
			case <-m.cancelDelays:
			default:
				close(m.cancelDelays)
			}
		}
	})

	for i := len(m.tiers) - 1; i >= 0; i-- {
		tier := m.tiers[i]
		var runners []*process.ProcessRunner
		m.do(func() {
			for _, n := range tier {
				runners = append(runners, m.runners[n])
			}
		})
		var g errgroup.Group
		for _, r := range runners {
			rn := r
			g.Go(func() error {
				rn.Stop(0)
				return nil
			})
		}
		_ = g.Wait()
	}

	m.do(func() {
		for name, st := range m.states {
			if !st.Status.IsTerminal() {
				st.Status = config.StatusStopped
				m.emit(Event{Kind: EventStatus, Name: name, Status: config.StatusStopped})
			}
			m.closeFutureLocked(name)
		}
	})
}
