package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks counts and timings of ledger operations.
type MetricsCollector struct {
	mu sync.RWMutex

	votingStartTime time.Time
	votingEndTime   time.Time
	votingCount     int
	votingTotalTime time.Duration
	miningAttempts  int
	votingFailures  int

	validationCount    int
	validationFailures int

	votingPhaseStarted   bool
	votingPhaseStartTime time.Time
	votingPhaseEndTime   time.Time

	countingStartTime      time.Time
	countingEndTime        time.Time
	countingProcessingTime time.Duration
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Count          int       `json:"count"`
	Failures       int       `json:"failures"`
	ProcessingTime int64     `json:"processing_time_ms"`
}

type MetricsResponse struct {
	Voting         OperationMetrics `json:"voting"`
	MiningAttempts int              `json:"mining_attempts"`
	AvgAttempts    float64          `json:"avg_attempts_per_block"`
	Validation     OperationMetrics `json:"validation"`
	Counting       OperationMetrics `json:"counting"`
	PhaseStartTime time.Time        `json:"phase_start_time,omitempty"`
	PhaseEndTime   time.Time        `json:"phase_end_time,omitempty"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (mc *MetricsCollector) StartVotingPhase() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingPhaseStarted = true
	mc.votingPhaseStartTime = time.Now()
}

func (mc *MetricsCollector) EndVotingPhase() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.votingPhaseStarted && mc.votingPhaseEndTime.IsZero() {
		mc.votingPhaseEndTime = time.Now()
	}
}

// RecordVote records one sealed block and the search that produced it.
func (mc *MetricsCollector) RecordVote(duration time.Duration, attempts int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	if mc.votingCount == 0 {
		mc.votingStartTime = now
	}
	mc.votingEndTime = now
	mc.votingCount++
	mc.votingTotalTime += duration
	mc.miningAttempts += attempts
}

// RecordVoteFailure records a vote that was rejected or could not be sealed.
func (mc *MetricsCollector) RecordVoteFailure() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.votingFailures++
}

func (mc *MetricsCollector) RecordValidation(valid bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.validationCount++
	if !valid {
		mc.validationFailures++
	}
}

func (mc *MetricsCollector) RecordCountingStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.countingStartTime = time.Now()
}

func (mc *MetricsCollector) RecordCountingEnd() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.countingEndTime = time.Now()
	mc.countingProcessingTime = mc.countingEndTime.Sub(mc.countingStartTime)
}

// GetMetrics returns current metrics for all operations
func (mc *MetricsCollector) GetMetrics() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	var avg float64
	if mc.votingCount > 0 {
		avg = float64(mc.miningAttempts) / float64(mc.votingCount)
	}

	return MetricsResponse{
		Voting: OperationMetrics{
			StartTime:      mc.votingStartTime,
			EndTime:        mc.votingEndTime,
			Count:          mc.votingCount,
			Failures:       mc.votingFailures,
			ProcessingTime: mc.votingTotalTime.Milliseconds(),
		},
		MiningAttempts: mc.miningAttempts,
		AvgAttempts:    avg,
		Validation: OperationMetrics{
			Count:    mc.validationCount,
			Failures: mc.validationFailures,
		},
		Counting: OperationMetrics{
			StartTime:      mc.countingStartTime,
			EndTime:        mc.countingEndTime,
			ProcessingTime: mc.countingProcessingTime.Milliseconds(),
		},
		PhaseStartTime: mc.votingPhaseStartTime,
		PhaseEndTime:   mc.votingPhaseEndTime,
	}
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingStartTime = time.Time{}
	mc.votingEndTime = time.Time{}
	mc.votingCount = 0
	mc.votingTotalTime = 0
	mc.miningAttempts = 0
	mc.votingFailures = 0

	mc.validationCount = 0
	mc.validationFailures = 0

	mc.countingStartTime = time.Time{}
	mc.countingEndTime = time.Time{}
	mc.countingProcessingTime = 0
}
