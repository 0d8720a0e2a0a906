package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCategories(t *testing.T) {
	assert.Nil(t, splitCategories(""))
	assert.Nil(t, splitCategories("  "))
	assert.Equal(t, []string{"grocery"}, splitCategories("grocery"))
	assert.Equal(t, []string{"grocery", "pharmacy"}, splitCategories("grocery, pharmacy"))
	assert.Equal(t, []string{"grocery", "bank"}, splitCategories("grocery,,bank,"))
}

func TestResolveOrigin_Coordinates(t *testing.T) {
	coord, label, err := resolveOrigin(context.Background(), 51.9606649, 7.6261347, "", "")
	require.NoError(t, err)
	assert.Empty(t, label)
	assert.InDelta(t, 7.6261347, coord.X(), 1e-9)
	assert.InDelta(t, 51.9606649, coord.Y(), 1e-9)
}

func TestResolveOrigin_OutOfRange(t *testing.T) {
	_, _, err := resolveOrigin(context.Background(), 95.0, 7.6, "", "")
	assert.Error(t, err)

	_, _, err = resolveOrigin(context.Background(), 51.9, 200.0, "", "")
	assert.Error(t, err)
}

func TestResolveOrigin_NoInput(t *testing.T) {
	_, _, err := resolveOrigin(context.Background(), 0, 0, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestResolveOrigin_MutuallyExclusive(t *testing.T) {
	_, _, err := resolveOrigin(context.Background(), 51.9, 7.6, "Centrum", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	_, _, err = resolveOrigin(context.Background(), 0, 0, "Centrum", "Prinzipalmarkt 1")
	assert.Error(t, err)
}
