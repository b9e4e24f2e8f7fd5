package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNamedTimer(t *testing.T) {
	timer := NewNamedTimer("detection")
	assert.Equal(t, "detection", timer.Name())
	assert.Zero(t, timer.Duration())

	time.Sleep(5 * time.Millisecond)
	d := timer.Stop()
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.Equal(t, d, timer.Duration())
	assert.Contains(t, timer.String(), "detection: ")
}

func TestTimer_StopIsSticky(t *testing.T) {
	timer := NewTimer()
	first := timer.Stop()
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, first, timer.Stop())
	assert.Equal(t, first, timer.Elapsed())
	assert.Equal(t, first.String(), timer.String())
}

func TestTimer_ElapsedRunning(t *testing.T) {
	timer := NewTimer()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Elapsed(), 2*time.Millisecond)
	assert.Zero(t, timer.Duration())
}

func TestGetMemoryStats(t *testing.T) {
	s := GetMemoryStats()
	assert.Positive(t, s.SysBytes)
	assert.Positive(t, s.AllocBytes)
	assert.GreaterOrEqual(t, s.Goroutines, 1)
}
