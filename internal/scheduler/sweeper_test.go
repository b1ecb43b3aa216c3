package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSweeper struct {
	calls     int
	olderThan time.Duration
	removed   int
	err       error
}

func (f *fakeSweeper) Sweep(olderThan time.Duration) (int, error) {
	f.calls++
	f.olderThan = olderThan
	return f.removed, f.err
}

func TestRunOnceLogsRemovals(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	store := &fakeSweeper{removed: 2}

	NewRetentionSweeper(store, time.Hour, "@every 1h", zap.New(core)).RunOnce()

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, time.Hour, store.olderThan)
	require.Equal(t, 1, logs.FilterMessage("retention sweep completed").Len())
}

func TestRunOnceLogsErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	store := &fakeSweeper{err: errors.New("permission denied")}

	NewRetentionSweeper(store, time.Hour, "@every 1h", zap.New(core)).RunOnce()

	assert.Equal(t, 1, logs.FilterMessage("retention sweep incomplete").Len())
}

func TestStartValidatesSchedule(t *testing.T) {
	s := NewRetentionSweeper(&fakeSweeper{}, time.Hour, "not a schedule", nil)
	assert.Error(t, s.Start())

	s = NewRetentionSweeper(&fakeSweeper{}, time.Hour, "@every 1h", nil)
	require.NoError(t, s.Start())
	<-s.Stop().Done()
}

func TestStartDisabledRetention(t *testing.T) {
	store := &fakeSweeper{}
	s := NewRetentionSweeper(store, 0, "@every 1h", nil)
	require.NoError(t, s.Start())
	assert.Equal(t, 0, store.calls)
}
