package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rung-dev/rung/internal/config"
	"github.com/rung-dev/rung/internal/logging"
	"github.com/rung-dev/rung/internal/manager"
	"go.uber.org/zap"
)

// reloadConfig re-runs the load/filter pipeline and diffs the result against
// the config the manager was built from (spec.md §4.9), then restarts every
// process whose record changed. Manager's process set is fixed at New() time
// (tiers are computed once), so added processes are only reported, and
// removed processes are reported and stopped but stay in the process set;
// only in-place restarts of modified processes are supported without a full
// rung restart.
func reloadConfig(mgr *manager.Manager, cfg *config.ResolvedConfig, sf *sharedFlags, log *logging.Logger) {
	next, err := loadAndFilter(sf)
	if err != nil {
		log.Error("config reload failed", zap.Error(err))
		return
	}

	diff := config.DiffConfigs(cfg, next)
	if len(diff.Added) == 0 && len(diff.Removed) == 0 && len(diff.Modified) == 0 {
		log.Info("config reload: no changes")
		return
	}
	if len(diff.Added) > 0 {
		fmt.Fprintf(os.Stderr, "rung: reload: %v added; start a new run to pick up new processes\n", diff.Added)
	}
	if len(diff.Removed) > 0 {
		fmt.Fprintf(os.Stderr, "rung: reload: %v removed; stopping them (they stay listed until the next run)\n", diff.Removed)
		for _, name := range diff.Removed {
			mgr.Stop(name)
		}
	}

	cols, rows := terminalSize()
	for _, name := range diff.Modified {
		rec, ok := next.Processes[name]
		if !ok {
			continue
		}
		mgr.Stop(name)
		waitStopped(mgr, name, 5*time.Second)
		if err := mgr.UpdateProcess(name, rec); err != nil {
			log.Error("config reload: could not update process", zap.String("process", name), zap.Error(err))
			continue
		}
		cfg.Processes[name] = rec
		mgr.Start(name, cols, rows)
	}
}

func waitStopped(mgr *manager.Manager, name string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st, ok := mgr.GetState(name)
		if !ok || st.Status.IsTerminal() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}
