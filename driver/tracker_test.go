package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_RegisterCompleteCounts(t *testing.T) {
	tr := newTracker()

	id1, err := tr.register()
	require.NoError(t, err)
	id2, err := tr.register()
	require.NoError(t, err)

	assert.Equal(t, 2, tr.activeCount())

	tr.complete(id1)
	assert.Equal(t, 1, tr.activeCount())

	completed, cancelled := tr.snapshot()
	assert.Equal(t, int64(1), completed)
	assert.Equal(t, int64(0), cancelled)

	tr.cancel(id2)
	completed, cancelled = tr.snapshot()
	assert.Equal(t, int64(1), completed)
	assert.Equal(t, int64(1), cancelled)
	assert.Equal(t, 0, tr.activeCount())
}

func TestTracker_RejectsRegisterWhileDraining(t *testing.T) {
	tr := newTracker()
	tr.startDraining()

	_, err := tr.register()
	require.Error(t, err)
	assert.True(t, tr.isDraining())
}
