package process

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTailBufferRetainsTailPastCap(t *testing.T) {
	b := newTailBuffer()
	filler := bytes.Repeat([]byte("x"), 100*1024)
	b.Write(filler)
	b.Write([]byte("NEEDLE"))

	got := b.Bytes()
	assert.LessOrEqual(t, len(got), bufferCap)
	assert.Contains(t, string(got), "NEEDLE")
}

func TestTailBufferReset(t *testing.T) {
	b := newTailBuffer()
	b.Write([]byte("hello"))
	b.Reset()
	assert.Empty(t, b.Bytes())
}
