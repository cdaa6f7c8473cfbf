package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError is the single abort-class error the validator returns for
// any structural problem in a raw config (spec.md §7 "Config-structural").
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func fail(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var validPlatforms = map[string]bool{
	"aix": true, "darwin": true, "freebsd": true, "linux": true,
	"openbsd": true, "sunos": true, "win32": true,
}

var validStopSignals = map[string]StopSignal{
	"SIGTERM": SignalTERM, "SIGINT": SignalINT, "SIGHUP": SignalHUP,
}

// Validate normalizes a RawConfig into a ResolvedConfig, returning any
// non-fatal warnings alongside it. It fails fast (single message) on the
// structural problems spec.md §4.2 enumerates.
func Validate(raw *RawConfig) (*ResolvedConfig, []string, error) {
	if len(raw.Processes) == 0 {
		return nil, nil, fail("config must declare at least one process under \"processes\"")
	}

	var warnings []string
	resolved := &ResolvedConfig{
		KillOthers:       boolOr(raw.KillOthers, false),
		KillOthersOnFail: boolOr(raw.KillOthersOnFail, false),
		NoWatch:          boolOr(raw.NoWatch, false),
		Sort:             raw.Sort,
		Prefix:           raw.Prefix,
		Timestamps:       boolOr(raw.Timestamps, false),
		LogDir:           raw.LogDir,
		Processes:        make(map[string]*ProcessRecord, len(raw.Processes)),
	}

	globalStopSignal := SignalTERM
	if raw.StopSignal != "" {
		sig, ok := validStopSignals[raw.StopSignal]
		if !ok {
			return nil, nil, fail("stopSignal %q is not one of SIGTERM, SIGINT, SIGHUP", raw.StopSignal)
		}
		globalStopSignal = sig
	}

	names := make([]string, 0, len(raw.Processes))
	for name := range raw.Processes {
		names = append(names, name)
	}

	for _, name := range names {
		spec := raw.Processes[name]
		rec, recWarnings, err := validateProcess(name, spec, raw, globalStopSignal)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, recWarnings...)
		resolved.Processes[name] = rec
		resolved.Order = append(resolved.Order, name)
	}

	// dependsOn must resolve within the same config; no self-dependency.
	for name, rec := range resolved.Processes {
		for _, dep := range rec.DependsOn {
			if dep == name {
				return nil, nil, fail("process %q cannot depend on itself", name)
			}
			if _, ok := resolved.Processes[dep]; !ok {
				return nil, nil, fail("process %q depends on unknown process %q", name, dep)
			}
		}
	}

	return resolved, warnings, nil
}

func validateProcess(name string, spec RawProcessSpec, raw *RawConfig, globalStopSignal StopSignal) (*ProcessRecord, []string, error) {
	var warnings []string
	var src RawProcessRecord
	if spec.IsString {
		src = RawProcessRecord{Command: spec.Command}
	} else {
		src = spec.Record
	}

	command := strings.TrimSpace(src.Command)
	if command == "" {
		return nil, nil, fail("process %q: command must be a non-empty string", name)
	}

	rec := &ProcessRecord{
		Name:        name,
		Command:     src.Command,
		ShowCommand: true,
		Persistent:  true,
		StopSignal:  globalStopSignal,
	}

	// cwd: process overrides global.
	rec.Cwd = firstNonEmpty(src.Cwd, raw.Cwd)

	// env: global merged in first, process wins per key.
	rec.Env = make(map[string]string, len(raw.Env)+len(src.Env))
	for k, v := range raw.Env {
		rec.Env[k] = v
	}
	for k, v := range src.Env {
		rec.Env[k] = v
	}

	// envFile: inherited unless explicitly false at process level.
	if src.EnvFile != nil {
		if src.EnvFile.Disabled {
			rec.EnvFiles = nil
		} else {
			rec.EnvFiles = src.EnvFile.Paths
		}
	} else if raw.EnvFile != nil && !raw.EnvFile.Disabled {
		rec.EnvFiles = raw.EnvFile.Paths
	}

	// dependsOn: string or list, normalized to a list.
	if src.DependsOn != nil {
		rec.DependsOn = src.DependsOn.Values
	}

	// persistent: default true.
	if src.Persistent != nil {
		rec.Persistent = *src.Persistent
	}

	// readyPattern.
	if src.ReadyPattern != nil && src.ReadyPattern.Source != "" {
		re, err := regexp.Compile(src.ReadyPattern.Source)
		if err != nil {
			return nil, nil, fail("process %q: invalid readyPattern: %v", name, err)
		}
		rec.ReadyPattern = &Pattern{Regex: re, Compiled: src.ReadyPattern.Compiled}
		if !rec.Persistent {
			warnings = append(warnings, fmt.Sprintf(
				"process %q: readyPattern ignored — readiness is determined by exit code", name))
		}
	}

	// maxRestarts: non-negative integer; global inherited unless overridden.
	if src.MaxRestarts != nil {
		if *src.MaxRestarts < 0 {
			// silently dropped to unset, per spec.md §4.2.
		} else {
			rec.MaxRestarts = src.MaxRestarts
		}
	} else if raw.MaxRestarts != nil && *raw.MaxRestarts >= 0 {
		rec.MaxRestarts = raw.MaxRestarts
	}

	// readyTimeout: positive milliseconds; global inherited unless overridden.
	if src.ReadyTimeout != nil {
		if *src.ReadyTimeout > 0 {
			rec.ReadyTimeout = src.ReadyTimeout
		}
	} else if raw.ReadyTimeout != nil && *raw.ReadyTimeout > 0 {
		rec.ReadyTimeout = raw.ReadyTimeout
	}

	// delay: positive milliseconds.
	if src.Delay != nil && *src.Delay > 0 {
		rec.Delay = src.Delay
	}

	rec.Condition = src.Condition

	// platform: validated set.
	if src.Platform != nil {
		for _, p := range src.Platform.Values {
			if !validPlatforms[p] {
				return nil, nil, fail("process %q: platform %q is not a recognized platform", name, p)
			}
		}
		rec.Platform = src.Platform.Values
	}

	// stopSignal: process override.
	if src.StopSignal != "" {
		sig, ok := validStopSignals[src.StopSignal]
		if !ok {
			return nil, nil, fail("process %q: stopSignal %q is not one of SIGTERM, SIGINT, SIGHUP", name, src.StopSignal)
		}
		rec.StopSignal = sig
	}

	// color.
	if src.Color != nil {
		for _, c := range src.Color.Values {
			if !isValidColor(c) {
				return nil, nil, fail("process %q: invalid color %q", name, c)
			}
		}
		rec.Color = src.Color.Values
	}

	if src.Watch != nil {
		rec.Watch = src.Watch.Values
	} else if raw.Watch != nil {
		rec.Watch = raw.Watch.Values
	}

	if src.Interactive != nil {
		rec.Interactive = *src.Interactive
	}

	// errorMatcher: process override, else global inheritance.
	matcher := src.ErrorMatcher
	if matcher == nil {
		matcher = raw.ErrorMatcher
	}
	if matcher != nil && matcher.Enabled {
		em := &ErrorMatcher{}
		if matcher.Regex == "" {
			em.ANSIRed = true
		} else {
			re, err := regexp.Compile(matcher.Regex)
			if err != nil {
				return nil, nil, fail("process %q: invalid errorMatcher: %v", name, err)
			}
			em.Regex = re
		}
		rec.ErrorMatcher = em
	}

	if src.ShowCommand != nil {
		rec.ShowCommand = *src.ShowCommand
	} else if raw.ShowCommand != nil {
		rec.ShowCommand = *raw.ShowCommand
	}

	return rec, warnings, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func isValidColor(c string) bool {
	lower := strings.ToLower(strings.TrimSpace(c))
	switch lower {
	case "black", "red", "green", "yellow", "blue", "magenta", "cyan", "white", "gray", "grey", "orange", "purple":
		return true
	}
	if len(lower) == 7 && lower[0] == '#' {
		for _, r := range lower[1:] {
			if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
				return false
			}
		}
		return true
	}
	return false
}
