package usecase

import (
	"sync"
	"time"
)

// StatsSummary represents aggregated describe outcomes since process start.
type StatsSummary struct {
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	SuccessRate        float64          `json:"success_rate"`
	FailuresByKind     map[string]int64 `json:"failures_by_kind"`
	AverageLatencyMs   float64          `json:"average_latency_ms"`
}

// Stats counts describe outcomes in memory.
type Stats struct {
	mu       sync.Mutex
	total    int64
	success  int64
	failures map[Kind]int64
	latency  time.Duration
}

func NewStats() *Stats {
	return &Stats{failures: make(map[Kind]int64)}
}

// Record adds one finished request.
func (s *Stats) Record(kind Kind, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.latency += elapsed
	if kind == KindNone {
		s.success++
		return
	}
	s.failures[kind]++
}

// Summary aggregates the recorded outcomes.
func (s *Stats) Summary() StatsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := StatsSummary{
		TotalRequests:      s.total,
		SuccessfulRequests: s.success,
		FailuresByKind:     make(map[string]int64, len(s.failures)),
	}
	for kind, n := range s.failures {
		summary.FailuresByKind[kind.String()] = n
	}
	if s.total > 0 {
		summary.SuccessRate = float64(s.success) / float64(s.total)
		summary.AverageLatencyMs = float64(s.latency.Milliseconds()) / float64(s.total)
	}
	return summary
}
