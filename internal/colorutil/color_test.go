package colorutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNamed(t *testing.T) {
	hex, err := Resolve([]string{"red"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", hex)
}

func TestResolveHex(t *testing.T) {
	hex, err := Resolve([]string{"#abcdef"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "#abcdef", hex)
}

func TestResolveInvalid(t *testing.T) {
	_, err := Resolve([]string{"not-a-color"}, 0)
	assert.Error(t, err)
}

func TestResolveRoundRobin(t *testing.T) {
	list := []string{"red", "green", "blue"}
	hex0, _ := Resolve(list, 0)
	hex1, _ := Resolve(list, 1)
	hex3, _ := Resolve(list, 3)
	assert.Equal(t, "#ff0000", hex0)
	assert.Equal(t, "#00ff00", hex1)
	assert.Equal(t, hex0, hex3)
}

func TestAssignDefaultPalette(t *testing.T) {
	hex, err := Assign(nil, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, hex)
}
