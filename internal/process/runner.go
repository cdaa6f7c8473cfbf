package process

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"github.com/rung-dev/rung/internal/config"
)

const (
	stopGraceDefault  = 5 * time.Second
	restartGracePeriod = 2 * time.Second
)

// Callbacks are the fixed set of event hooks a ProcessRunner invokes,
// per spec.md §4.7. Implementations must not block.
type Callbacks struct {
	OnStatus func(status config.Status)
	OnOutput func(chunk []byte)
	OnExit   func(code *int)
	OnReady  func(captures map[string]string)
	OnError  func()
}

// StartOverrides allows a caller (e.g. the manager, for a delayed/ad-hoc
// start) to override the command or environment for a single Start call.
type StartOverrides struct {
	Command string
	Env     map[string]string
}

// ProcessRunner is the supervisor for one process: it owns the child's PTY
// handle, its readiness checker, and its error checker exclusively, per
// spec.md §3 Ownership.
type ProcessRunner struct {
	rec *config.ProcessRecord
	cb  Callbacks

	mu          sync.Mutex
	generation  int
	stopping    bool
	restarting  bool
	readyTimedOut bool
	ready       bool

	cmd        *exec.Cmd
	pty        PtyHandle
	readiness  *ReadinessChecker
	errChecker *ErrorChecker
	readyTimer *time.Timer
	exited     chan struct{} // closed by waitLoop once the child has been reaped

	cols, rows int
}

// NewProcessRunner constructs a runner for rec. cb must be fully populated;
// nil callbacks are replaced with no-ops.
func NewProcessRunner(rec *config.ProcessRecord, cb Callbacks) *ProcessRunner {
	if cb.OnStatus == nil {
		cb.OnStatus = func(config.Status) {}
	}
	if cb.OnOutput == nil {
		cb.OnOutput = func([]byte) {}
	}
	if cb.OnExit == nil {
		cb.OnExit = func(*int) {}
	}
	if cb.OnReady == nil {
		cb.OnReady = func(map[string]string) {}
	}
	if cb.OnError == nil {
		cb.OnError = func() {}
	}
	return &ProcessRunner{rec: rec, cb: cb}
}

// Start spawns the process under a PTY of the given size. overrides may be
// nil. Per spec.md §4.7 Start.
func (r *ProcessRunner) Start(cols, rows int, overrides *StartOverrides) {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.stopping = false
	r.readyTimedOut = false
	r.ready = false
	r.cols, r.rows = cols, rows

	command := r.rec.Command
	env := r.rec.Env
	if overrides != nil {
		if overrides.Command != "" {
			command = overrides.Command
		}
		if overrides.Env != nil {
			env = overrides.Env
		}
	}

	r.readiness = NewReadinessChecker(r.rec.Persistent, patternRegex(r.rec.ReadyPattern), patternCompiled(r.rec.ReadyPattern))
	r.errChecker = newErrorCheckerFor(r.rec.ErrorMatcher)
	r.mu.Unlock()

	r.emitStatus(config.StatusStarting)

	childEnv, err := r.buildEnv(env)
	if err != nil {
		r.emitSpawnFailure(err)
		return
	}

	prog, args := shellExecArgs(command)
	cmd := exec.Command(prog, args...)
	cmd.Dir = r.rec.Cwd
	cmd.Env = childEnv
	setProcGroup(cmd)

	pty, err := startPTYWithSize(cmd, cols, rows)
	if err != nil {
		r.emitSpawnFailure(err)
		return
	}

	exited := make(chan struct{})
	r.mu.Lock()
	r.cmd = cmd
	r.pty = pty
	r.exited = exited
	r.mu.Unlock()

	if r.rec.ShowCommand {
		r.emitOutput(gen, []byte(dim(fmt.Sprintf("$ %s\n", command))))
	}

	if r.readiness.pattern != nil {
		r.emitStatus(config.StatusRunning)
	}
	if r.readiness.IsImmediatelyReady() {
		r.markReady(gen, nil)
	}

	r.armReadyTimeout(gen)

	go r.readLoop(gen, pty)
	go r.waitLoop(gen, cmd, pty, exited)
}

func (r *ProcessRunner) buildEnv(processEnv map[string]string) ([]string, error) {
	base := os.Environ()
	merged := make(map[string]string, len(base)+len(processEnv)+2)
	for _, kv := range base {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				merged[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	merged["TERM"] = "xterm-256color"
	if _, noColor := merged["NO_COLOR"]; !noColor {
		merged["FORCE_COLOR"] = "1"
	}

	if len(r.rec.EnvFiles) > 0 {
		fileVars, err := config.LoadEnvFiles(r.rec.EnvFiles)
		if err != nil {
			return nil, err
		}
		for k, v := range fileVars {
			merged[k] = v
		}
	}
	for k, v := range processEnv {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out, nil
}

func (r *ProcessRunner) emitSpawnFailure(err error) {
	r.cb.OnOutput([]byte(fmt.Sprintf("[rung] failed to start: %v\n", err)))
	r.cb.OnStatus(config.StatusFailed)
	r.cb.OnExit(nil)
}

func (r *ProcessRunner) readLoop(gen int, pty PtyHandle) {
	buf := make([]byte, 4096)
	for {
		n, err := pty.Read(buf)
		if n > 0 {
			chunk := append([]byte{}, buf[:n]...)
			r.emitOutput(gen, chunk)

			r.mu.Lock()
			readiness, errChecker := r.readiness, r.errChecker
			r.mu.Unlock()

			if readiness != nil && readiness.FeedOutput(chunk) {
				r.markReady(gen, readiness.Captures())
			}
			if errChecker != nil && errChecker.FeedOutput(chunk) {
				if r.currentGeneration() == gen {
					r.cb.OnError()
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (r *ProcessRunner) waitLoop(gen int, cmd *exec.Cmd, pty PtyHandle, exited chan struct{}) {
	code, _, _ := waitPtyProcess(cmd, pty)
	close(exited)
	_ = pty.Close()

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		return
	}
	stopping := r.stopping
	restarting := r.restarting
	readyTimedOut := r.readyTimedOut
	dependsOnExit := r.readiness != nil && r.readiness.DependsOnExit()
	r.cancelReadyTimerLocked()
	r.mu.Unlock()

	if dependsOnExit && code == 0 {
		r.markReady(gen, nil)
	}

	if code == 127 {
		r.emitOutput(gen, []byte("[rung] command not found\n"))
	} else if code == 126 {
		r.emitOutput(gen, []byte("[rung] permission denied\n"))
	}

	if readyTimedOut || restarting {
		return
	}

	status := config.StatusFinished
	switch {
	case stopping:
		status = config.StatusStopped
	case code == 0:
		status = config.StatusFinished
	default:
		status = config.StatusFailed
	}
	r.emitStatus(status)
	c := code
	r.cb.OnExit(&c)
}

// markReady is idempotent: it sets ready, cancels the ready-timeout timer,
// and emits status=ready plus onReady(captures).
func (r *ProcessRunner) markReady(gen int, captures map[string]string) {
	r.mu.Lock()
	if gen != r.generation || r.ready {
		r.mu.Unlock()
		return
	}
	r.ready = true
	r.cancelReadyTimerLocked()
	r.mu.Unlock()

	r.cb.OnStatus(config.StatusReady)
	r.cb.OnReady(captures)
}

func (r *ProcessRunner) armReadyTimeout(gen int) {
	if r.rec.ReadyPattern == nil || r.rec.ReadyTimeout == nil {
		return
	}
	d := time.Duration(*r.rec.ReadyTimeout) * time.Millisecond

	r.mu.Lock()
	r.readyTimer = time.AfterFunc(d, func() { r.fireReadyTimeout(gen, d) })
	r.mu.Unlock()
}

func (r *ProcessRunner) fireReadyTimeout(gen int, d time.Duration) {
	r.mu.Lock()
	if gen != r.generation || r.ready {
		r.mu.Unlock()
		return
	}
	r.readyTimedOut = true
	r.mu.Unlock()

	r.emitOutput(gen, []byte(fmt.Sprintf(
		"[rung] readyPattern not matched within %ds — marking as failed\n", int(d.Seconds()))))
	r.cb.OnStatus(config.StatusFailed)
	r.cb.OnReady(nil)
}

func (r *ProcessRunner) cancelReadyTimerLocked() {
	if r.readyTimer != nil {
		r.readyTimer.Stop()
		r.readyTimer = nil
	}
}

// Restart is idempotent while already restarting: stop the current child
// (grace period 2s) and call Start again.
func (r *ProcessRunner) Restart(cols, rows int, overrides *StartOverrides) {
	r.mu.Lock()
	if r.restarting {
		r.mu.Unlock()
		return
	}
	r.restarting = true
	r.stopping = true
	r.mu.Unlock()

	r.cb.OnStatus(config.StatusStopping)
	r.signalAndAwait(restartGracePeriod)

	r.mu.Lock()
	r.ready = false
	r.readyTimedOut = false
	r.restarting = false
	r.mu.Unlock()

	r.Start(cols, rows, overrides)
}

// Stop signals the child to terminate gracefully, escalating to SIGKILL
// after timeout (default 5s). No-op if there is no child or it has already
// exited. A child whose ready timeout already reported failed is signalled
// without a further status change.
func (r *ProcessRunner) Stop(timeout time.Duration) {
	r.mu.Lock()
	if r.cmd == nil || r.cmd.Process == nil {
		r.mu.Unlock()
		return
	}
	select {
	case <-r.exited:
		r.mu.Unlock()
		return
	default:
	}
	r.stopping = true
	timedOut := r.readyTimedOut
	r.mu.Unlock()

	if !timedOut {
		r.cb.OnStatus(config.StatusStopping)
	}
	if timeout <= 0 {
		timeout = stopGraceDefault
	}
	r.signalAndAwait(timeout)
}

// signalAndAwait signals the process group with the configured stop signal
// and waits for waitLoop to observe the exit, escalating to SIGKILL after
// grace elapses. Per spec.md §4.7 Kill-process-group: "already exited" errors
// are caught silently by signalProcessGroup itself.
func (r *ProcessRunner) signalAndAwait(grace time.Duration) {
	r.mu.Lock()
	cmd := r.cmd
	exited := r.exited
	sig := stopSignalOS(r.rec.StopSignal)
	r.mu.Unlock()
	if cmd == nil || cmd.Process == nil || exited == nil {
		return
	}

	_ = signalProcessGroup(cmd.Process.Pid, sig)

	select {
	case <-exited:
	case <-time.After(grace):
		_ = killProcessGroup(cmd.Process.Pid)
		<-exited
	}
}

// Resize forwards the new size to the PTY if the child is alive.
func (r *ProcessRunner) Resize(cols, rows uint16) error {
	r.mu.Lock()
	pty := r.pty
	r.cols, r.rows = int(cols), int(rows)
	r.mu.Unlock()
	if pty == nil {
		return nil
	}
	return pty.Resize(cols, rows)
}

// Write forwards data to the PTY only if the process is interactive.
func (r *ProcessRunner) Write(data []byte) (int, error) {
	if !r.rec.Interactive {
		return 0, nil
	}
	r.mu.Lock()
	pty := r.pty
	r.mu.Unlock()
	if pty == nil {
		return 0, fmt.Errorf("process %q: no active pty", r.rec.Name)
	}
	return pty.Write(data)
}

func (r *ProcessRunner) currentGeneration() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *ProcessRunner) emitStatus(status config.Status) {
	r.cb.OnStatus(status)
}

func (r *ProcessRunner) emitOutput(gen int, chunk []byte) {
	if r.currentGeneration() != gen {
		return
	}
	r.cb.OnOutput(chunk)
}

func patternRegex(p *config.Pattern) *regexp.Regexp {
	if p == nil {
		return nil
	}
	return p.Regex
}

func patternCompiled(p *config.Pattern) bool {
	return p != nil && p.Compiled
}

func newErrorCheckerFor(em *config.ErrorMatcher) *ErrorChecker {
	if em == nil {
		return NewErrorChecker(false, nil)
	}
	return NewErrorChecker(em.ANSIRed, em.Regex)
}

// dim wraps s in the ANSI "faint" SGR sequence, per spec.md §4.7.5's
// "dim $ <command> line" requirement.
func dim(s string) string {
	return "\x1b[2m" + s + "\x1b[0m"
}
