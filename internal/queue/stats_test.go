package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Percent(t *testing.T) {
	assert.Zero(t, Stats{}.Percent())
	assert.InDelta(t, 50.0, Stats{Total: 10, Processed: 5}.Percent(), 1e-9)
	assert.InDelta(t, 100.0, Stats{Total: 4, Processed: 4}.Percent(), 1e-9)
}

func TestStats_ETA_NoEstimateBeforeFirstResult(t *testing.T) {
	s := Stats{Total: 10, StartedAt: time.Now()}
	_, ok := s.ETA(time.Now())
	assert.False(t, ok)
}

func TestStats_ETA_ZeroStart(t *testing.T) {
	s := Stats{Total: 10, Processed: 5}
	_, ok := s.ETA(time.Now())
	assert.False(t, ok)
}

func TestStats_ETA_ProjectsAverage(t *testing.T) {
	start := time.Now()
	s := Stats{Total: 10, Processed: 5, StartedAt: start}

	eta, ok := s.ETA(start.Add(50 * time.Second))
	require.True(t, ok)
	// 10s per photo observed, 5 photos remaining.
	assert.Equal(t, 50*time.Second, eta)
}

func TestStats_ETA_Done(t *testing.T) {
	start := time.Now()
	s := Stats{Total: 10, Processed: 10, StartedAt: start}

	eta, ok := s.ETA(start.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), eta)
}
