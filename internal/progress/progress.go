package progress

import (
	"fmt"
	"io"
	"strings"
)

// State is a read-only view of loop progress, published after every attempt.
type State struct {
	Done      int // attempts finished so far (success or failure)
	Total     int // planned attempts: loops x payloads
	Completed int
	Failed    int
}

// Percent is 0-100, exactly 100 once every planned attempt has finished.
func (s State) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// Reporter receives progress updates. Implementations must tolerate being
// called once per attempt.
type Reporter interface {
	Report(State)
}

// Nop discards all updates.
type Nop struct{}

func (Nop) Report(State) {}

// Printer rewrites a single progress line on each update.
type Printer struct {
	Out   io.Writer
	Width int
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{Out: out, Width: 20}
}

func (p *Printer) Report(s State) {
	pct := s.Percent()
	fmt.Fprintf(p.Out, "\r%s %3.0f%% | %d/%d | OK: %d | Err: %d",
		Bar(pct/100, p.Width), pct, s.Done, s.Total, s.Completed, s.Failed)
}

// Channel forwards snapshots to a consumer without ever blocking the engine.
// A slow consumer just misses intermediate states.
type Channel struct {
	C chan State
}

func NewChannel(buf int) *Channel {
	return &Channel{C: make(chan State, buf)}
}

func (c *Channel) Report(s State) {
	select {
	case c.C <- s:
	default:
	}
}

// Multi fans one update out to several reporters.
type Multi []Reporter

func (m Multi) Report(s State) {
	for _, r := range m {
		r.Report(s)
	}
}

// Bar renders a fixed-width text progress bar for pct in [0,1].
func Bar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}
