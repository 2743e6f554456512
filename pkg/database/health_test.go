package database

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (f *fakePinger) PingContext(context.Context) error {
	f.calls.Add(1)
	if f.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestHealthMonitorRecordsFailuresAndRecovery(t *testing.T) {
	p := &fakePinger{}
	p.fail.Store(true)
	m := NewHealthMonitor(p, time.Hour, nil)

	st := m.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.Equal(t, 1, st.Failures)
	assert.Equal(t, "connection refused", st.Error)

	st = m.Check(context.Background())
	assert.Equal(t, 2, st.Failures)

	p.fail.Store(false)
	st = m.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.Zero(t, st.Failures)
	assert.Equal(t, st, m.Status())
}

func TestHealthMonitorLoopStops(t *testing.T) {
	p := &fakePinger{}
	m := NewHealthMonitor(p, 10*time.Millisecond, nil)
	m.Start(context.Background())

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	m.Stop()
	calls := p.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, p.calls.Load())
	assert.True(t, m.Status().Healthy)
}
