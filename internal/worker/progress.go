package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Progress renders a single-line progress bar for a pool run.
type Progress struct {
	startTime time.Time
	output    io.Writer
	unit      string
	total     int
	completed int
	failed    int
	mu        sync.Mutex
	enabled   bool
}

// NewProgress creates a progress bar counting total items of the given unit
// ("files", "tiles"). A disabled bar only tracks counts.
func NewProgress(total int, unit string, enabled bool) *Progress {
	if unit == "" {
		unit = "items"
	}
	return &Progress{
		total:     total,
		unit:      unit,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records the current counts and redraws the bar.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed = completed
	p.total = total
	p.failed = failed
	if p.enabled {
		fmt.Fprint(p.output, p.line())
	}
}

// Callback returns p.Update as a ProgressFunc.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// line formats the bar. Callers hold p.mu.
func (p *Progress) line() string {
	elapsed := time.Since(p.startTime)

	var rate float64
	var eta time.Duration
	if p.completed > 0 && elapsed > 0 {
		rate = float64(p.completed) / elapsed.Seconds()
		eta = time.Duration(float64(p.total-p.completed)/rate) * time.Second
	}

	filled := 0
	if p.total > 0 {
		filled = min(barWidth, p.completed*barWidth/p.total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\r[%s%s] %d/%d %s",
		strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled),
		p.completed, p.total, p.unit)
	if p.failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", p.failed)
	}
	fmt.Fprintf(&b, " - %.1f %s/sec", rate, p.unit)
	switch {
	case p.completed >= p.total:
		fmt.Fprintf(&b, " - Done in %s", formatDuration(elapsed))
	case eta > 0:
		fmt.Fprintf(&b, " - ETA: %s", formatDuration(eta))
	}
	b.WriteString("          ")
	return b.String()
}

// Done draws the final state and ends the line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enabled {
		fmt.Fprintln(p.output, p.line())
	}
}

// Summary describes the finished run.
func (p *Progress) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	var rate float64
	if elapsed > 0 {
		rate = float64(p.completed) / elapsed.Seconds()
	}

	return fmt.Sprintf("Graded %d/%d %s (%d failed) in %s (%.1f %s/sec)",
		p.completed-p.failed, p.total, p.unit, p.failed, formatDuration(elapsed), rate, p.unit)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
