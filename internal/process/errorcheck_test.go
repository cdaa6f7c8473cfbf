package process

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCheckerDisabledWhenNeitherConfigured(t *testing.T) {
	e := NewErrorChecker(false, nil)
	assert.False(t, e.Enabled())
	assert.False(t, e.FeedOutput([]byte("\x1b[31mboom\x1b[0m")))
}

func TestErrorCheckerANSIRedFiresOnPlainRed(t *testing.T) {
	e := NewErrorChecker(true, nil)
	assert.True(t, e.FeedOutput([]byte("\x1b[31merror\x1b[0m")))
}

func TestErrorCheckerANSIRedFiresOnBoldRed(t *testing.T) {
	e := NewErrorChecker(true, nil)
	assert.True(t, e.FeedOutput([]byte("\x1b[1;31merror\x1b[0m")))
}

func TestErrorCheckerANSIRedFiresOnRedWithBackground(t *testing.T) {
	e := NewErrorChecker(true, nil)
	assert.True(t, e.FeedOutput([]byte("\x1b[0;31;42merror\x1b[0m")))
}

func TestErrorCheckerANSIRedFiresOnBrightRed(t *testing.T) {
	e := NewErrorChecker(true, nil)
	assert.True(t, e.FeedOutput([]byte("\x1b[91merror\x1b[0m")))
}

func TestErrorCheckerANSIRedDoesNotFireOnGreen(t *testing.T) {
	e := NewErrorChecker(true, nil)
	assert.False(t, e.FeedOutput([]byte("\x1b[32mok\x1b[0m")))
}

func TestErrorCheckerANSIRedDoesNotFireOnCode131(t *testing.T) {
	e := NewErrorChecker(true, nil)
	assert.False(t, e.FeedOutput([]byte("\x1b[131msomething\x1b[0m")))
}

func TestErrorCheckerANSIRedIsOneShot(t *testing.T) {
	e := NewErrorChecker(true, nil)
	assert.True(t, e.FeedOutput([]byte("\x1b[31merror\x1b[0m")))
	assert.False(t, e.FeedOutput([]byte("\x1b[31mmore error\x1b[0m")))
}

func TestErrorCheckerRegexModeFiresOnMatch(t *testing.T) {
	e := NewErrorChecker(false, regexp.MustCompile(`(?i)fatal`))
	assert.False(t, e.FeedOutput([]byte("starting up\n")))
	assert.True(t, e.FeedOutput([]byte("Fatal: connection refused\n")))
}

func TestErrorCheckerRegexModeStripsANSIBeforeMatching(t *testing.T) {
	e := NewErrorChecker(false, regexp.MustCompile(`^panic`))
	assert.True(t, e.FeedOutput([]byte("\x1b[31mpanic\x1b[0m: runtime error")))
}

func TestErrorCheckerRegexModeIgnoresColorEntirely(t *testing.T) {
	e := NewErrorChecker(false, regexp.MustCompile(`fatal`))
	assert.False(t, e.FeedOutput([]byte("\x1b[31mall good here\x1b[0m")))
}
