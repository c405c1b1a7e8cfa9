package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := uuid.Parse(New())
	require.NoError(t, err)
	assert.NotEqual(t, New(), New())

	restore := Sequence("task")
	assert.Equal(t, "task-1", New())
	assert.Equal(t, "task-2", New())
	restore()
	_, err = uuid.Parse(New())
	assert.NoError(t, err)
}
