package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func diffRec(name, command string) *ProcessRecord {
	return &ProcessRecord{Name: name, Command: command}
}

func TestDiffConfigsDetectsAddedRemovedModified(t *testing.T) {
	before := &ResolvedConfig{Processes: map[string]*ProcessRecord{
		"db":  diffRec("db", "postgres"),
		"api": diffRec("api", "serve --port 8080"),
	}}
	after := &ResolvedConfig{Processes: map[string]*ProcessRecord{
		"db":  diffRec("db", "postgres"),
		"api": diffRec("api", "serve --port 9090"),
		"web": diffRec("web", "vite"),
	}}

	d := DiffConfigs(before, after)
	assert.ElementsMatch(t, []string{"web"}, d.Added)
	assert.Empty(t, d.Removed)
	assert.ElementsMatch(t, []string{"api"}, d.Modified)
}

func TestDiffConfigsDetectsRemoved(t *testing.T) {
	before := &ResolvedConfig{Processes: map[string]*ProcessRecord{
		"db":  diffRec("db", "postgres"),
		"api": diffRec("api", "serve"),
	}}
	after := &ResolvedConfig{Processes: map[string]*ProcessRecord{
		"db": diffRec("db", "postgres"),
	}}

	d := DiffConfigs(before, after)
	assert.Empty(t, d.Added)
	assert.ElementsMatch(t, []string{"api"}, d.Removed)
	assert.Empty(t, d.Modified)
}

func TestDiffConfigsNoChanges(t *testing.T) {
	before := &ResolvedConfig{Processes: map[string]*ProcessRecord{
		"db": diffRec("db", "postgres"),
	}}
	after := &ResolvedConfig{Processes: map[string]*ProcessRecord{
		"db": diffRec("db", "postgres"),
	}}

	d := DiffConfigs(before, after)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Removed)
	assert.Empty(t, d.Modified)
}
