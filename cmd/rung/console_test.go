package main

import (
	"testing"

	"github.com/rung-dev/rung/internal/config"
	"github.com/rung-dev/rung/internal/manager"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.ResolvedConfig {
	return &config.ResolvedConfig{
		Processes: map[string]*config.ProcessRecord{
			"db":  {Name: "db"},
			"api": {Name: "api"},
		},
		Order: []string{"db", "api"},
	}
}

func TestConsolePrefixPaddedToLongestName(t *testing.T) {
	c := newConsole(testConfig())
	assert.Equal(t, 3, c.width)
}

func TestConsoleFeedBuffersPartialLines(t *testing.T) {
	c := newConsole(testConfig())

	c.feed("db", []byte("hello "))
	assert.Equal(t, []byte("hello "), c.buffers["db"])

	c.feed("db", []byte("world\n"))
	assert.Equal(t, []byte{}, c.buffers["db"])
}

func TestConsoleOnEventHandlesAllKinds(t *testing.T) {
	c := newConsole(testConfig())
	code := 0

	assert.NotPanics(t, func() {
		c.onEvent(manager.Event{Kind: manager.EventStatus, Name: "db", Status: config.StatusReady})
		c.onEvent(manager.Event{Kind: manager.EventOutput, Name: "db", Output: []byte("line\n")})
		c.onEvent(manager.Event{Kind: manager.EventExit, Name: "db", Code: &code})
		c.onEvent(manager.Event{Kind: manager.EventError, Name: "db"})
	})
}
