package stats

import (
	"sync/atomic"
)

// Stats holds live aggregated metrics for one run.
type Stats struct {
	Attempts  uint64
	Completed uint64
	Failed    uint64
	Refreshes uint64

	// Request latency in microseconds
	Latency *SafeHistogram
}

func NewStats() *Stats {
	return &Stats{
		Latency: NewSafeHistogram(),
	}
}

// AddAttempt records one finished request attempt.
func (s *Stats) AddAttempt(failed bool, latencyUs int64) {
	atomic.AddUint64(&s.Attempts, 1)
	if failed {
		atomic.AddUint64(&s.Failed, 1)
	} else {
		atomic.AddUint64(&s.Completed, 1)
	}
	s.Latency.RecordValue(latencyUs)
}

// AddRefresh records one token refresh call.
func (s *Stats) AddRefresh() {
	atomic.AddUint64(&s.Refreshes, 1)
}

func (s *Stats) ErrorRate() float64 {
	attempts := atomic.LoadUint64(&s.Attempts)
	if attempts == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&s.Failed)
	return (float64(fails) / float64(attempts)) * 100
}

func (s *Stats) GetP50() float64 { return float64(s.Latency.ValueAtQuantile(50)) / 1000.0 }
func (s *Stats) GetP90() float64 { return float64(s.Latency.ValueAtQuantile(90)) / 1000.0 }
func (s *Stats) GetP95() float64 { return float64(s.Latency.ValueAtQuantile(95)) / 1000.0 }
func (s *Stats) GetP99() float64 { return float64(s.Latency.ValueAtQuantile(99)) / 1000.0 }

// AvgMs returns mean latency in milliseconds.
func (s *Stats) AvgMs() float64 { return s.Latency.Mean() / 1000.0 }
