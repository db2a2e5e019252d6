package service

import (
	"sync"
	"time"
)

// VotingSession gates vote acceptance. It closes when its duration runs out,
// when it is ended, or when the ledger fails validation.
type VotingSession struct {
	startTime  time.Time
	endTime    time.Time
	isActive   bool
	haltReason string
	now        func() time.Time
	mu         sync.RWMutex
}

// SessionStatus is a point-in-time view of the session.
type SessionStatus struct {
	Active     bool      `json:"active"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Halted     bool      `json:"halted"`
	HaltReason string    `json:"halt_reason,omitempty"`
}

func NewVotingSession(duration time.Duration) *VotingSession {
	return newVotingSession(duration, time.Now)
}

func newVotingSession(duration time.Duration, now func() time.Time) *VotingSession {
	start := now()
	return &VotingSession{
		startTime: start,
		endTime:   start.Add(duration),
		isActive:  true,
		now:       now,
	}
}

func (vs *VotingSession) IsActive() bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.isActive && vs.now().Before(vs.endTime)
}

func (vs *VotingSession) End() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.isActive = false
}

// Halt ends the session because the ledger can no longer be trusted. The
// first reason sticks.
func (vs *VotingSession) Halt(reason string) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.isActive = false
	if vs.haltReason == "" {
		vs.haltReason = reason
	}
}

func (vs *VotingSession) HaltReason() string {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.haltReason
}

func (vs *VotingSession) Status() SessionStatus {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return SessionStatus{
		Active:     vs.isActive && vs.now().Before(vs.endTime),
		StartTime:  vs.startTime,
		EndTime:    vs.endTime,
		Halted:     vs.haltReason != "",
		HaltReason: vs.haltReason,
	}
}
