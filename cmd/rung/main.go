// Command rung is a process orchestration engine: it loads a declarative
// runfile describing a dependency graph of long-running and one-shot
// processes, and starts, supervises, and tears them down as a unit.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rung-dev/rung/internal/apiserver"
	"github.com/rung-dev/rung/internal/appconfig"
	"github.com/rung-dev/rung/internal/config"
	"github.com/rung-dev/rung/internal/logging"
	"github.com/rung-dev/rung/internal/manager"
	"github.com/rung-dev/rung/internal/stringutil"
	"github.com/rung-dev/rung/internal/tracing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "up":
		err = runUp(os.Args[2:])
	case "exec":
		err = runExec(os.Args[2:])
	case "completions":
		err = runCompletions(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		if err != errProcessFailed {
			fmt.Fprintln(os.Stderr, "rung:", err)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: rung <validate|up|exec|completions> [flags]")
}

type sharedFlags struct {
	configPath string
	only       stringList
	exclude    stringList
	killOthers bool
	noWatch    bool
	maxRestart int
	debugAddr  string
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func registerSharedFlags(fs *flag.FlagSet) *sharedFlags {
	sf := &sharedFlags{}
	fs.StringVar(&sf.configPath, "config", "", "path to the runfile (config.yaml)")
	fs.Var(&sf.only, "only", "restrict to this process and its dependencies (repeatable)")
	fs.Var(&sf.exclude, "exclude", "remove this process and prune its dependents (repeatable)")
	fs.BoolVar(&sf.killOthers, "kill-others", false, "set killOthers in the resolved config (no process is stopped because of it)")
	fs.BoolVar(&sf.noWatch, "no-watch", false, "disable file-watch restarts")
	fs.IntVar(&sf.maxRestart, "max-restarts", -1, "override maxRestarts for every persistent process (-1 = leave as configured)")
	fs.StringVar(&sf.debugAddr, "debug-addr", os.Getenv("RUNG_DEBUG_ADDR"), "bind address for the optional debug event server (empty disables it)")
	return sf
}

// loadAndFilter runs the full load → interpolate → validate → filter
// pipeline shared by validate/up/exec.
func loadAndFilter(sf *sharedFlags) (*config.ResolvedConfig, error) {
	cfg, warnings, err := config.LoadResolved(sf.configPath)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "rung: warning:", w)
	}

	cfg, err = config.FilterByPlatform(cfg, runtime.GOOS)
	if err != nil {
		return nil, err
	}
	cfg, err = config.FilterOnly(cfg, sf.only)
	if err != nil {
		return nil, err
	}
	cfg, err = config.FilterExclude(cfg, sf.exclude)
	if err != nil {
		return nil, err
	}

	if sf.killOthers {
		cfg.KillOthers = true
	}
	if sf.noWatch {
		cfg.NoWatch = true
	}
	if sf.maxRestart >= 0 {
		limit := sf.maxRestart
		for _, rec := range cfg.Processes {
			rec.MaxRestarts = &limit
		}
	}

	return cfg, nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	sf := registerSharedFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAndFilter(sf)
	if err != nil {
		return err
	}
	fmt.Printf("config OK: %d process(es)\n", len(cfg.Processes))
	for _, name := range cfg.Order {
		rec := cfg.Processes[name]
		fmt.Printf(" - %-20s %s\n", name, stringutil.TruncateString(rec.Command, 60))
	}
	return nil
}

func runUp(args []string) error {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	sf := registerSharedFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAndFilter(sf)
	if err != nil {
		return err
	}

	return runManager(cfg, sf)
}

func runExec(args []string) error {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	sf := registerSharedFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 2 {
		return fmt.Errorf("usage: rung exec <name> -- <cmd>")
	}
	name := rest[0]
	rest = rest[1:]
	if rest[0] == "--" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return fmt.Errorf("rung exec: missing <cmd>")
	}
	cmd := strings.Join(rest, " ")

	cfg, err := loadAndFilter(sf)
	if err != nil {
		return err
	}
	if _, ok := cfg.Processes[name]; !ok {
		return fmt.Errorf("rung exec: unknown process %q", name)
	}

	cfg, err = config.FilterOnly(cfg, []string{name})
	if err != nil {
		return err
	}

	newName := adHocName(cfg, strings.Fields(cmd)[0])
	cfg.Processes[newName] = &config.ProcessRecord{
		Name:       newName,
		Command:    cmd,
		DependsOn:  []string{name},
		Persistent: false,
		StopSignal: config.SignalTERM,
	}
	cfg.Order = append(cfg.Order, newName)

	return runManager(cfg, sf)
}

func adHocName(cfg *config.ResolvedConfig, base string) string {
	if _, ok := cfg.Processes[base]; !ok {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, ok := cfg.Processes[candidate]; !ok {
			return candidate
		}
	}
}

func runCompletions(args []string) error {
	fmt.Fprintln(os.Stderr, "rung: shell completion generation is not part of the core engine; not implemented")
	return nil
}

func runManager(cfg *config.ResolvedConfig, sf *sharedFlags) error {
	appCfg, err := appconfig.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{
		Level:      appCfg.Logging.Level,
		Format:     appCfg.Logging.Format,
		OutputPath: appCfg.Logging.OutputPath,
	})
	if err != nil {
		return err
	}
	defer log.Sync()
	logging.SetDefault(log)

	tracing.Configure(tracing.Config{
		Enabled:     appCfg.Tracing.Enabled,
		Endpoint:    appCfg.Tracing.Endpoint,
		ServiceName: appCfg.Tracing.ServiceName,
	})

	mgr, err := manager.New(cfg)
	if err != nil {
		return err
	}

	cons := newConsole(cfg)
	mgr.On(cons.onEvent)

	var httpServer *http.Server
	if sf.debugAddr != "" {
		srv := apiserver.New(mgr, log)
		httpServer = &http.Server{
			Addr:         sf.debugAddr,
			Handler:      srv.Router(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			log.Info("debug server listening", zap.String("addr", sf.debugAddr))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("debug server error", zap.Error(err))
			}
		}()
	}

	cols, rows := terminalSize()
	mgr.StartAll(cols, rows)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	reloadCh := make(chan os.Signal, 1)
	notifyReload(reloadCh)

	resizeCh := make(chan os.Signal, 1)
	notifyResize(resizeCh)

	var g errgroup.Group
	shutdown := make(chan struct{})
	g.Go(func() error {
		select {
		case <-sigCh:
			log.Info("shutdown signal received")
		case <-shutdown:
		}
		mgr.StopAll()
		if httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(ctx)
		}
		_ = tracing.Shutdown(context.Background())
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-resizeCh:
				c, r := terminalSize()
				mgr.ResizeAll(uint16(c), uint16(r))
			case <-shutdown:
				return nil
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-reloadCh:
				log.Info("reload signal received")
				reloadConfig(mgr, cfg, sf, log)
			case <-shutdown:
				return nil
			}
		}
	})

	failed := waitForTerminal(mgr, cfg, shutdown)
	_ = g.Wait()

	if failed {
		return errProcessFailed
	}
	return nil
}

// errProcessFailed signals a clean, non-zero exit (some process ended
// `failed`) without printing an error message: main() checks for it
// specifically instead of printing "rung: <err>".
var errProcessFailed = fmt.Errorf("one or more processes failed")

// waitForTerminal polls until every process reaches a terminal status (or a
// shutdown signal fires first), then closes shutdown and reports whether any
// process ended failed.
func waitForTerminal(mgr *manager.Manager, cfg *config.ResolvedConfig, shutdown chan struct{}) bool {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		states := mgr.GetAllStates()
		allTerminal := true
		anyFailed := false
		for name := range cfg.Processes {
			st, ok := states[name]
			if !ok || !st.Status.IsTerminal() || st.RestartPending {
				allTerminal = false
				break
			}
			if st.Status == config.StatusFailed {
				anyFailed = true
			}
		}
		if allTerminal {
			close(shutdown)
			return anyFailed
		}
	}
	return false
}

func terminalSize() (int, int) {
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		return w, h
	}
	return 80, 24
}
