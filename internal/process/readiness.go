package process

import (
	"regexp"
	"strconv"

	"github.com/rung-dev/rung/internal/ansiutil"
)

// ReadinessChecker is a per-process, per-generation state machine deciding
// when a process has become ready, per spec.md §4.5. Parametrized by
// persistent and an optional readyPattern.
type ReadinessChecker struct {
	persistent bool
	pattern    *regexp.Regexp
	compiled   bool

	buf     *tailBuffer
	matched bool
	named   []string

	captures map[string]string
}

// NewReadinessChecker constructs a checker for one runner generation.
// pattern may be nil (no readyPattern configured).
func NewReadinessChecker(persistent bool, pattern *regexp.Regexp, compiled bool) *ReadinessChecker {
	var named []string
	if pattern != nil {
		named = pattern.SubexpNames()
	}
	return &ReadinessChecker{
		persistent: persistent,
		pattern:    pattern,
		compiled:   compiled,
		buf:        newTailBuffer(),
		named:      named,
	}
}

// IsImmediatelyReady reports whether this process is ready the instant it
// starts: persistent with no readyPattern configured.
func (r *ReadinessChecker) IsImmediatelyReady() bool {
	return r.persistent && r.pattern == nil
}

// DependsOnExit reports whether readiness is determined by a clean exit
// (non-persistent / one-shot processes).
func (r *ReadinessChecker) DependsOnExit() bool {
	return !r.persistent
}

// FeedOutput appends chunk to the internal 64 KiB tail-retaining buffer,
// strips ANSI escapes for matching, and returns true the first time the
// pattern matches. Once matched, the checker is latched and will keep
// returning true without re-scanning.
func (r *ReadinessChecker) FeedOutput(chunk []byte) bool {
	if r.matched {
		return true
	}
	if r.pattern == nil {
		return false
	}
	raw := r.buf.Write(chunk)
	stripped := ansiutil.Strip(string(raw))

	loc := r.pattern.FindStringSubmatchIndex(stripped)
	if loc == nil {
		return false
	}
	r.matched = true
	if r.compiled {
		r.captures = extractCaptures(r.pattern, r.named, stripped, loc)
	}
	return true
}

// Captures returns the named-and-positional capture groups from the first
// match, keyed by name for named groups and by 1-based index (as a string)
// for positional groups. Only populated when the pattern was supplied as a
// "compiled" pattern (spec.md §9).
func (r *ReadinessChecker) Captures() map[string]string {
	return r.captures
}

func extractCaptures(re *regexp.Regexp, names []string, s string, loc []int) map[string]string {
	captures := make(map[string]string)
	for i := 1; i*2 < len(loc); i++ {
		start, end := loc[i*2], loc[i*2+1]
		var value string
		if start >= 0 && end >= 0 {
			value = s[start:end]
		}
		if i < len(names) && names[i] != "" {
			captures[names[i]] = value
		}
		captures[strconv.Itoa(i)] = value
	}
	return captures
}
