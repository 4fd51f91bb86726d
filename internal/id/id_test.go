package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID(t *testing.T) {
	a := UUID()
	b := UUID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestShort(t *testing.T) {
	s := Short()
	assert.Len(t, s, 16)
	assert.NotEqual(t, s, Short())
}
