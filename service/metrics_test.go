package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector()
	mc.StartVotingPhase()
	mc.RecordVote(20*time.Millisecond, 10)
	mc.RecordVote(30*time.Millisecond, 30)
	mc.RecordVoteFailure()
	mc.RecordValidation(true)
	mc.RecordValidation(false)
	mc.RecordCountingStart()
	mc.RecordCountingEnd()
	mc.EndVotingPhase()

	m := mc.GetMetrics()
	assert.Equal(t, 2, m.Voting.Count)
	assert.Equal(t, 1, m.Voting.Failures)
	assert.Equal(t, int64(50), m.Voting.ProcessingTime)
	assert.Equal(t, 40, m.MiningAttempts)
	assert.InDelta(t, 20.0, m.AvgAttempts, 1e-9)
	assert.Equal(t, 2, m.Validation.Count)
	assert.Equal(t, 1, m.Validation.Failures)
	assert.False(t, m.Counting.EndTime.IsZero())
	assert.False(t, m.PhaseEndTime.Before(m.PhaseStartTime))

	mc.Reset()
	m = mc.GetMetrics()
	assert.Zero(t, m.Voting.Count)
	assert.Zero(t, m.MiningAttempts)
	assert.Zero(t, m.AvgAttempts)
}
