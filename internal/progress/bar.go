package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 40

// Bar draws a single-line progress bar for the duration probes of a scan.
type Bar struct {
	out       io.Writer
	label     string
	total     int
	current   int
	mu        sync.Mutex
	startTime time.Time
	lastPrint time.Time
	done      bool
}

// New creates a progress bar writing to stdout
func New(label string, total int) *Bar {
	return NewWithWriter(os.Stdout, label, total)
}

// NewWithWriter creates a progress bar writing to out
func NewWithWriter(out io.Writer, label string, total int) *Bar {
	now := time.Now()
	return &Bar{
		out:       out,
		label:     label,
		total:     total,
		startTime: now,
		lastPrint: now,
	}
}

// Increment advances the bar by one, redrawing at most every 500ms
func (b *Bar) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current < b.total {
		b.current++
	}

	now := time.Now()
	if now.Sub(b.lastPrint) > 500*time.Millisecond || b.current >= b.total {
		b.render()
		b.lastPrint = now
	}
}

// Finish draws the completed bar and ends the line
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.done {
		b.current = b.total
		b.render()
		fmt.Fprintln(b.out)
		b.done = true
	}
}

func (b *Bar) render() {
	if b.done {
		return
	}

	ratio := 1.0
	if b.total > 0 {
		ratio = float64(b.current) / float64(b.total)
	}
	filled := int(float64(barWidth) * ratio)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(b.out, "\r%s [%s] %d/%d (%.1f%%) - %s   ",
		b.label,
		bar,
		b.current,
		b.total,
		ratio*100,
		formatDuration(time.Since(b.startTime)),
	)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
