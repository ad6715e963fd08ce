package buywatch

import (
	"sync"
	"time"
)

// RunningStats tracks lifetime and daily counters for the watcher. The daily
// shadow copy resets when the wall-clock date changes; it is also reset after
// each daily summary dispatch. All state is in-memory only and lost on
// restart.
type RunningStats struct {
	now func() time.Time

	mu               sync.Mutex
	totalBuys        int64
	totalVolume      float64
	totalDistributed float64
	totalAirdrops    int64

	dailyBuys        int64
	dailyVolume      float64
	dailyDistributed float64
	dailyAirdrops    int64
	lastResetDate    time.Time
}

// StatsSnapshot is a consistent read-only copy of the counters.
type StatsSnapshot struct {
	TotalBuys        int64
	TotalVolume      float64
	TotalDistributed float64
	TotalAirdrops    int64
	DailyBuys        int64
	DailyVolume      float64
	DailyDistributed float64
	DailyAirdrops    int64
}

// NewRunningStats constructs stats using the provided clock; a nil clock
// defaults to time.Now.
func NewRunningStats(now func() time.Time) *RunningStats {
	if now == nil {
		now = time.Now
	}
	s := &RunningStats{now: now}
	s.lastResetDate = dateOf(now())
	return s
}

// RecordBuy registers one classified purchase.
func (s *RunningStats) RecordBuy(solAmount float64, tokensDistributed int64, airdropSent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDateLocked()

	s.totalBuys++
	s.totalVolume += solAmount
	s.totalDistributed += float64(tokensDistributed)
	s.dailyBuys++
	s.dailyVolume += solAmount
	s.dailyDistributed += float64(tokensDistributed)

	if airdropSent {
		s.totalAirdrops++
		s.dailyAirdrops++
	}
}

// ResetDaily clears the daily counters, typically after a summary dispatch.
func (s *RunningStats) ResetDaily() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetDailyLocked()
	s.lastResetDate = dateOf(s.now())
}

// Snapshot returns a consistent copy for read-only consumers.
func (s *RunningStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDateLocked()

	return StatsSnapshot{
		TotalBuys:        s.totalBuys,
		TotalVolume:      s.totalVolume,
		TotalDistributed: s.totalDistributed,
		TotalAirdrops:    s.totalAirdrops,
		DailyBuys:        s.dailyBuys,
		DailyVolume:      s.dailyVolume,
		DailyDistributed: s.dailyDistributed,
		DailyAirdrops:    s.dailyAirdrops,
	}
}

func (s *RunningStats) rollDateLocked() {
	today := dateOf(s.now())
	if today.Equal(s.lastResetDate) {
		return
	}
	s.resetDailyLocked()
	s.lastResetDate = today
}

func (s *RunningStats) resetDailyLocked() {
	s.dailyBuys = 0
	s.dailyVolume = 0
	s.dailyDistributed = 0
	s.dailyAirdrops = 0
}

func dateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
