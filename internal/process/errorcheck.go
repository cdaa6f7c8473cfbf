package process

import (
	"regexp"

	"github.com/rung-dev/rung/internal/ansiutil"
)

// ErrorChecker is a per-process, per-generation one-shot scanner for error
// output, per spec.md §4.6. Off when neither ansiRed nor pattern is set.
type ErrorChecker struct {
	ansiRed bool
	pattern *regexp.Regexp

	rawBuf     *tailBuffer // unstripped, for ANSI-red SGR scanning
	strippedBuf *tailBuffer // raw, ANSI-stripped before regex scanning

	fired bool
}

// NewErrorChecker constructs a checker for one runner generation. Pass
// ansiRed=true for errorMatcher===true semantics, or a non-nil pattern for
// errorMatcher:"<regex>" semantics. Both false/nil disables the checker.
func NewErrorChecker(ansiRed bool, pattern *regexp.Regexp) *ErrorChecker {
	return &ErrorChecker{
		ansiRed:     ansiRed,
		pattern:     pattern,
		rawBuf:      newTailBuffer(),
		strippedBuf: newTailBuffer(),
	}
}

// Enabled reports whether this checker does anything at all.
func (e *ErrorChecker) Enabled() bool {
	return e.ansiRed || e.pattern != nil
}

// FeedOutput scans chunk and returns true the first time an error condition
// fires. One-shot: returns false on every call after the first true.
func (e *ErrorChecker) FeedOutput(chunk []byte) bool {
	if e.fired || !e.Enabled() {
		return false
	}

	if e.ansiRed {
		raw := e.rawBuf.Write(chunk)
		if ansiutil.ContainsRed(string(raw)) {
			e.fired = true
			return true
		}
		return false
	}

	stripped := ansiutil.Strip(string(e.strippedBuf.Write(chunk)))
	if e.pattern.MatchString(stripped) {
		e.fired = true
		return true
	}
	return false
}
