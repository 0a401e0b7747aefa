package reservation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFolio(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		f, err := NewFolio()
		require.NoError(t, err)
		assert.True(t, ValidFolio(f), f)
		seen[f] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestValidFolio(t *testing.T) {
	assert.True(t, ValidFolio("0000-9999"))
	assert.False(t, ValidFolio("ABCD-1234"))
	assert.False(t, ValidFolio("1234567"))
	assert.False(t, ValidFolio("12345-678"))
}
