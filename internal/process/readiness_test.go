package process

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadinessImmediateWithoutPattern(t *testing.T) {
	r := NewReadinessChecker(true, nil, false)
	assert.True(t, r.IsImmediatelyReady())
	assert.False(t, r.DependsOnExit())
}

func TestReadinessDependsOnExitForOneShot(t *testing.T) {
	r := NewReadinessChecker(false, nil, false)
	assert.False(t, r.IsImmediatelyReady())
	assert.True(t, r.DependsOnExit())
}

func TestReadinessMatchesAcrossChunkBoundary(t *testing.T) {
	pattern := regexp.MustCompile(`listening on \d+`)
	r := NewReadinessChecker(true, pattern, false)

	assert.False(t, r.FeedOutput([]byte("server listen")))
	assert.True(t, r.FeedOutput([]byte("ing on 8080\n")))
}

func TestReadiness64KiBCapStillMatchesTail(t *testing.T) {
	pattern := regexp.MustCompile(`READY`)
	r := NewReadinessChecker(true, pattern, false)

	filler := bytes.Repeat([]byte("x"), 100*1024)
	assert.False(t, r.FeedOutput(filler))
	assert.True(t, r.FeedOutput([]byte("READY")))
}

func TestReadinessCompiledPatternPreservesCaptures(t *testing.T) {
	pattern := regexp.MustCompile(`listening on (?P<port>\d+)`)
	r := NewReadinessChecker(true, pattern, true)

	require.True(t, r.FeedOutput([]byte("listening on 9090")))
	captures := r.Captures()
	require.NotNil(t, captures)
	assert.Equal(t, "9090", captures["port"])
	assert.Equal(t, "9090", captures["1"])
}

func TestReadinessTextualPatternHasNoCaptures(t *testing.T) {
	pattern := regexp.MustCompile(`listening on (\d+)`)
	r := NewReadinessChecker(true, pattern, false)

	require.True(t, r.FeedOutput([]byte("listening on 9090")))
	assert.Nil(t, r.Captures())
}

func TestReadinessStripsANSIBeforeMatching(t *testing.T) {
	pattern := regexp.MustCompile(`^ready$`)
	r := NewReadinessChecker(true, pattern, false)
	assert.True(t, r.FeedOutput([]byte("\x1b[32mready\x1b[0m")))
}
