package ansiutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	assert.Equal(t, "hello world", Strip("\x1b[31mhello\x1b[0m world"))
	assert.Equal(t, "no escapes here", Strip("no escapes here"))
}

func TestContainsRed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain red", "\x1b[31merror\x1b[0m", true},
		{"bright red", "\x1b[91merror\x1b[0m", true},
		{"bold red", "\x1b[1;31merror\x1b[0m", true},
		{"red with bg", "\x1b[0;31;42merror\x1b[0m", true},
		{"green not red", "\x1b[32mok\x1b[0m", false},
		{"131 is not red", "\x1b[131mtext\x1b[0m", false},
		{"no color", "plain text", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsRed(tt.in))
		})
	}
}
