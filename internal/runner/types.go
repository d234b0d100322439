package runner

import (
	"time"

	"volley/internal/rules"
	"volley/internal/token"
)

// Config is the immutable snapshot of one run. It is created once at
// construction and never mutated while the run is in flight.
type Config struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  map[string]string

	// Payloads are sent one per inner iteration. An empty list means a
	// single implicit empty payload per loop.
	Payloads []any

	Token       *token.Spec
	AuthRetries int // refresh+retry budget per attempt on a 401-class signal

	SaveOutput bool
	OutputFile string
	Conditions []rules.Rule

	SleepTime  time.Duration
	VerifySSL  bool
	Loops      int
	AppendLogs bool
	TimeoutSec int
}

// Summary is what a finished run reports. Every failure lands in a counter;
// nothing is silently dropped.
type Summary struct {
	Attempts  int
	Completed int
	Failed    int

	TransportErrors int
	AuthFailures    int
	RefreshFailures int
	OutputErrors    int
	Refreshes       int

	Elapsed time.Duration
}
