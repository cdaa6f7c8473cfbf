package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, vars map[string]string, fn func()) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
	defer func() { lookupEnv = orig }()
	fn()
}

func TestInterpolateStringIdentityWithoutTokens(t *testing.T) {
	s, err := InterpolateString("plain command --flag value")
	require.NoError(t, err)
	assert.Equal(t, "plain command --flag value", s)
}

func TestInterpolateStringDefault(t *testing.T) {
	withEnv(t, map[string]string{}, func() {
		s, err := InterpolateString("${PORT:-3000}")
		require.NoError(t, err)
		assert.Equal(t, "3000", s)
	})
}

func TestInterpolateStringSet(t *testing.T) {
	withEnv(t, map[string]string{"PORT": "8080"}, func() {
		s, err := InterpolateString("${PORT:-3000}")
		require.NoError(t, err)
		assert.Equal(t, "8080", s)
	})
}

func TestInterpolateStringRequiredMissing(t *testing.T) {
	withEnv(t, map[string]string{}, func() {
		_, err := InterpolateString("${NOPE:?must be set}")
		require.Error(t, err)
		assert.Equal(t, "must be set", err.Error())
	})
}

func TestInterpolateStringRequiredPresent(t *testing.T) {
	withEnv(t, map[string]string{"NOPE": "1"}, func() {
		s, err := InterpolateString("${NOPE:?must be set}")
		require.NoError(t, err)
		assert.Equal(t, "1", s)
	})
}

func TestInterpolateStringBareDollarUntouched(t *testing.T) {
	s, err := InterpolateString("echo $HOME and ${HOME}")
	require.NoError(t, err)
	assert.Contains(t, s, "$HOME")
}

func TestInterpolateIdempotent(t *testing.T) {
	withEnv(t, map[string]string{"PORT": "8080"}, func() {
		once, err := InterpolateString("${PORT:-3000}")
		require.NoError(t, err)
		twice, err := InterpolateString(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})
}

// TestScenarioS6 covers spec.md §8 S6 directly.
func TestScenarioS6(t *testing.T) {
	withEnv(t, map[string]string{}, func() {
		raw := &RawConfig{Processes: map[string]RawProcessSpec{
			"p": {Record: RawProcessRecord{
				Command: "${PORT:-3000}",
				Env:     map[string]string{"X": "${NOPE:?must be set}"},
			}},
		}}
		err := InterpolateRaw(raw)
		require.Error(t, err)
		assert.Equal(t, "must be set", err.Error())
	})

	withEnv(t, map[string]string{"NOPE": "1"}, func() {
		raw := &RawConfig{Processes: map[string]RawProcessSpec{
			"p": {Record: RawProcessRecord{
				Command: "${PORT:-3000}",
				Env:     map[string]string{"X": "${NOPE:?must be set}"},
			}},
		}}
		require.NoError(t, InterpolateRaw(raw))
		assert.Equal(t, "3000", raw.Processes["p"].Record.Command)
	})
}
