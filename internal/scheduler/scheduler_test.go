package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualRunsAtNextRefresh(t *testing.T) {
	m := NewManual(epoch)
	var got []int
	m.Schedule(0, func() { got = append(got, 1) })
	m.Schedule(0, func() { got = append(got, 2) })
	assert.Empty(t, got)
	assert.Equal(t, 2, m.Pending())

	assert.Equal(t, 2, m.Refresh())
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 0, m.Pending())
}

func TestManualDelay(t *testing.T) {
	m := NewManual(epoch)
	ran := false
	m.Schedule(50*time.Millisecond, func() { ran = true })

	m.Advance(epoch.Add(49 * time.Millisecond))
	assert.False(t, ran)
	m.Advance(epoch.Add(50 * time.Millisecond))
	assert.True(t, ran)
}

func TestManualCancel(t *testing.T) {
	m := NewManual(epoch)
	ran := false
	cancel := m.Schedule(0, func() { ran = true })
	cancel()
	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, 0, m.Refresh())
	assert.False(t, ran)
	cancel()
}

func TestManualRescheduleWaitsForNextRefresh(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	var frame func()
	frame = func() {
		count++
		m.Schedule(0, frame)
	}
	m.Schedule(0, frame)

	for i := 1; i <= 3; i++ {
		m.Refresh()
		assert.Equal(t, i, count)
	}
}

func TestManualOrdersByDueTime(t *testing.T) {
	m := NewManual(epoch)
	var got []string
	m.Schedule(20*time.Millisecond, func() { got = append(got, "late") })
	m.Schedule(10*time.Millisecond, func() { got = append(got, "early") })
	m.Advance(epoch.Add(time.Second))
	assert.Equal(t, []string{"early", "late"}, got)
}

func TestManualClockNeverGoesBack(t *testing.T) {
	m := NewManual(epoch)
	m.Advance(epoch.Add(time.Second))
	m.Advance(epoch)
	assert.Equal(t, epoch.Add(time.Second), m.Now())
}

func TestLoopRunsScheduledAndPosted(t *testing.T) {
	l := NewLoop(200)
	assert.Equal(t, 5*time.Millisecond, l.Refresh())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	l.Post(func() {
		l.Schedule(0, func() { close(done) })
	})

	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("scheduled callback never ran")
	}
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
}
