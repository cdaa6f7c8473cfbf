// Package config implements the raw-to-resolved configuration pipeline:
// decoding, variable interpolation, validation, filtering, and diffing.
package config

import "regexp"

// Status is one of the nine process lifecycle states a ProcessState can hold.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStarting  Status = "starting"
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusStopping  Status = "stopping"
	StatusStopped   Status = "stopped"
	StatusFinished  Status = "finished"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// IsTerminal reports whether s is one of the four terminal statuses.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusStopped, StatusFinished, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// StopSignal is one of the three signals a process may be asked to stop with.
type StopSignal string

const (
	SignalTERM StopSignal = "SIGTERM"
	SignalINT  StopSignal = "SIGINT"
	SignalHUP  StopSignal = "SIGHUP"
)

// RawProcessSpec is one of: a plain command string, a full process record, or
// a wildcard pattern record. Wildcard expansion happens upstream of this
// package (an external expander, per spec.md §3); by the time a RawProcessSpec
// reaches the validator it is either a string or a record.
type RawProcessSpec struct {
	IsString bool
	Command  string // set when IsString
	Record   RawProcessRecord
}

// UnmarshalYAML implements the scalar-or-mapping union RawProcessSpec
// represents: a bare string shorthand, or a full record.
func (r *RawProcessSpec) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		r.IsString = true
		r.Command = s
		return nil
	}
	var rec RawProcessRecord
	if err := unmarshal(&rec); err != nil {
		return err
	}
	r.Record = rec
	return nil
}

// RawProcessRecord mirrors ProcessRecord from spec.md §3 before validation:
// every field is optional and untyped where the source format allows
// ambiguity (dependsOn as string-or-list, platform as string-or-list, color as
// string-or-list).
type RawProcessRecord struct {
	Command      string            `yaml:"command"`
	Cwd          string            `yaml:"cwd"`
	Env          map[string]string `yaml:"env"`
	EnvFile      *RawEnvFile       `yaml:"envFile"`
	DependsOn    *StringOrList     `yaml:"dependsOn"`
	ReadyPattern *RawPattern       `yaml:"readyPattern"`
	Persistent   *bool             `yaml:"persistent"`
	MaxRestarts  *int              `yaml:"maxRestarts"`
	ReadyTimeout *int              `yaml:"readyTimeout"`
	Delay        *int              `yaml:"delay"`
	Condition    string            `yaml:"condition"`
	Platform     *StringOrList     `yaml:"platform"`
	StopSignal   string            `yaml:"stopSignal"`
	Color        *StringOrList     `yaml:"color"`
	Watch        *StringOrList     `yaml:"watch"`
	Interactive  *bool             `yaml:"interactive"`
	ErrorMatcher *RawErrorMatcher  `yaml:"errorMatcher"`
	ShowCommand  *bool             `yaml:"showCommand"`
}

// RawEnvFile represents the envFile field: a path, a list of paths, or the
// sentinel `false` disabling inheritance.
type RawEnvFile struct {
	Disabled bool
	Paths    []string
}

func (e *RawEnvFile) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var b bool
	if err := unmarshal(&b); err == nil {
		// Only `false` is a meaningful scalar for envFile (disables
		// inheritance); `true` is not part of the grammar but is harmless.
		e.Disabled = !b
		return nil
	}
	var single string
	if err := unmarshal(&single); err == nil {
		e.Paths = []string{single}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	e.Paths = list
	return nil
}

// RawPattern represents readyPattern: a plain regex string, or a mapping with
// a "pattern" key representing a "compiled" regex whose capture groups are
// preserved after a match (spec.md §9's StringPattern/CompiledPattern split).
type RawPattern struct {
	Compiled bool
	Source   string
}

func (p *RawPattern) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		p.Source = s
		return nil
	}
	var m struct {
		Pattern string `yaml:"pattern"`
	}
	if err := unmarshal(&m); err != nil {
		return err
	}
	p.Compiled = true
	p.Source = m.Pattern
	return nil
}

// RawErrorMatcher represents errorMatcher: true (ANSI-red detection), a regex
// string, or false/unset (disabled).
type RawErrorMatcher struct {
	Enabled bool
	Regex   string
}

func (e *RawErrorMatcher) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var b bool
	if err := unmarshal(&b); err == nil {
		e.Enabled = b
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	e.Enabled = s != ""
	e.Regex = s
	return nil
}

// StringOrList represents any field the source format allows as either a
// bare scalar or a list of scalars.
type StringOrList struct {
	Values []string
}

func (s *StringOrList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		s.Values = []string{single}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	s.Values = list
	return nil
}

// RawConfig is the top-level user-authored record: optional globals plus a
// required processes mapping.
type RawConfig struct {
	Cwd              string                     `yaml:"cwd"`
	Env              map[string]string          `yaml:"env"`
	EnvFile          *RawEnvFile                `yaml:"envFile"`
	ShowCommand      *bool                      `yaml:"showCommand"`
	MaxRestarts      *int                       `yaml:"maxRestarts"`
	ReadyTimeout     *int                       `yaml:"readyTimeout"`
	Persistent       *bool                      `yaml:"persistent"`
	StopSignal       string                     `yaml:"stopSignal"`
	ErrorMatcher     *RawErrorMatcher           `yaml:"errorMatcher"`
	Watch            *StringOrList              `yaml:"watch"`
	Sort             string                     `yaml:"sort"`
	Prefix           string                     `yaml:"prefix"`
	Timestamps       *bool                      `yaml:"timestamps"`
	KillOthers       *bool                      `yaml:"killOthers"`
	KillOthersOnFail *bool                      `yaml:"killOthersOnFail"`
	NoWatch          *bool                      `yaml:"noWatch"`
	LogDir           string                     `yaml:"logDir"`
	Processes        map[string]RawProcessSpec  `yaml:"processes"`
}

// ProcessRecord is the fully resolved, strongly typed shape of one process:
// every optional field has been normalized or defaulted by the validator.
type ProcessRecord struct {
	Name         string
	Command      string
	Cwd          string
	Env          map[string]string
	EnvFiles     []string // nil/empty means no env file inheritance
	DependsOn    []string
	ReadyPattern *Pattern // nil means no pattern configured
	Persistent   bool
	MaxRestarts  *int // nil means unbounded
	ReadyTimeout *int // milliseconds; nil means unset
	Delay        *int // milliseconds; nil means unset
	Condition    string
	Platform     []string // empty means all platforms
	StopSignal   StopSignal
	Color        []string
	Watch        []string
	Interactive  bool
	ErrorMatcher *ErrorMatcher // nil means disabled
	ShowCommand  bool
}

// Pattern is a compiled readyPattern plus whether the source distinguished it
// as a "compiled" pattern (capture groups preserved) vs. textual (not).
type Pattern struct {
	Regex    *regexp.Regexp
	Compiled bool
}

// ErrorMatcher is the resolved errorMatcher: either ANSI-red detection or a
// compiled regex over stripped output.
type ErrorMatcher struct {
	ANSIRed bool
	Regex   *regexp.Regexp
}

// ResolvedConfig is RawConfig after interpolation, validation, and default
// materialization: every process record is fully normalized and globals have
// already been folded in per-field.
type ResolvedConfig struct {
	KillOthers       bool
	KillOthersOnFail bool
	NoWatch          bool
	Sort             string
	Prefix           string
	Timestamps       bool
	LogDir           string
	Processes        map[string]*ProcessRecord
	Order            []string // process names in map iteration order of the raw config; declaration order is not kept
}

// Clone returns a deep-enough copy of c suitable for filters to mutate
// (DependsOn slices and the Processes map are copied; ProcessRecord pointers
// that are unmodified by a given filter may be shared).
func (c *ResolvedConfig) Clone() *ResolvedConfig {
	clone := &ResolvedConfig{
		KillOthers:       c.KillOthers,
		KillOthersOnFail: c.KillOthersOnFail,
		NoWatch:          c.NoWatch,
		Sort:             c.Sort,
		Prefix:           c.Prefix,
		Timestamps:       c.Timestamps,
		LogDir:           c.LogDir,
		Processes:        make(map[string]*ProcessRecord, len(c.Processes)),
		Order:            append([]string{}, c.Order...),
	}
	for name, rec := range c.Processes {
		r := *rec
		r.DependsOn = append([]string{}, rec.DependsOn...)
		clone.Processes[name] = &r
	}
	return clone
}
