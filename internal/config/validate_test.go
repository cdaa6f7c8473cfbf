package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequiresProcesses(t *testing.T) {
	_, _, err := Validate(&RawConfig{})
	require.Error(t, err)
}

func TestValidateStringShorthand(t *testing.T) {
	raw := &RawConfig{Processes: map[string]RawProcessSpec{
		"db": {IsString: true, Command: "true"},
	}}
	resolved, _, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "true", resolved.Processes["db"].Command)
	assert.True(t, resolved.Processes["db"].Persistent)
	assert.True(t, resolved.Processes["db"].ShowCommand)
}

func TestValidateRejectsEmptyCommand(t *testing.T) {
	raw := &RawConfig{Processes: map[string]RawProcessSpec{
		"db": {IsString: true, Command: "   "},
	}}
	_, _, err := Validate(raw)
	require.Error(t, err)
}

func TestValidateRejectsSelfDependency(t *testing.T) {
	raw := &RawConfig{Processes: map[string]RawProcessSpec{
		"a": {Record: RawProcessRecord{Command: "true", DependsOn: &StringOrList{Values: []string{"a"}}}},
	}}
	_, _, err := Validate(raw)
	require.Error(t, err)
}

func TestValidateRejectsUnknownDependency(t *testing.T) {
	raw := &RawConfig{Processes: map[string]RawProcessSpec{
		"a": {Record: RawProcessRecord{Command: "true", DependsOn: &StringOrList{Values: []string{"ghost"}}}},
	}}
	_, _, err := Validate(raw)
	require.Error(t, err)
}

func TestValidateReadyPatternWithNonPersistentWarns(t *testing.T) {
	falseVal := false
	raw := &RawConfig{Processes: map[string]RawProcessSpec{
		"a": {Record: RawProcessRecord{
			Command:      "true",
			Persistent:   &falseVal,
			ReadyPattern: &RawPattern{Source: "ready"},
		}},
	}}
	_, warnings, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
}

func TestValidateGlobalEnvMergedProcessWins(t *testing.T) {
	raw := &RawConfig{
		Env: map[string]string{"A": "global", "B": "global"},
		Processes: map[string]RawProcessSpec{
			"a": {Record: RawProcessRecord{Command: "true", Env: map[string]string{"A": "local"}}},
		},
	}
	resolved, _, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "local", resolved.Processes["a"].Env["A"])
	assert.Equal(t, "global", resolved.Processes["a"].Env["B"])
}

func TestValidateInvalidStopSignal(t *testing.T) {
	raw := &RawConfig{Processes: map[string]RawProcessSpec{
		"a": {Record: RawProcessRecord{Command: "true", StopSignal: "SIGKILL"}},
	}}
	_, _, err := Validate(raw)
	require.Error(t, err)
}

func TestValidateIdempotentUpToWarnings(t *testing.T) {
	raw := &RawConfig{Processes: map[string]RawProcessSpec{
		"a": {IsString: true, Command: "true"},
	}}
	first, _, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, first.Processes["a"].Command, "true")

	again, _, err := Validate(&RawConfig{Processes: map[string]RawProcessSpec{
		"a": {IsString: true, Command: first.Processes["a"].Command},
	}})
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
