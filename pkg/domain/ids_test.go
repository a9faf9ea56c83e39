package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionID(t *testing.T) {
	t.Run("valid UUID parses", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseConnectionID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, raw.String(), id.String())
	})

	t.Run("empty string rejected", func(t *testing.T) {
		_, err := ParseConnectionID("")
		assert.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := ParseConnectionID("not-a-uuid")
		assert.Error(t, err)
	})

	t.Run("nil UUID parses but IsNil", func(t *testing.T) {
		id, err := ParseConnectionID(uuid.Nil.String())
		require.NoError(t, err)
		assert.True(t, id.IsNil())
	})
}

func TestParseTenantID(t *testing.T) {
	id, err := ParseTenantID("k7x2qa")
	require.NoError(t, err)
	assert.Equal(t, "k7x2qa", id.String())
	assert.False(t, id.IsNil())

	_, err = ParseTenantID("")
	assert.Error(t, err)
}
