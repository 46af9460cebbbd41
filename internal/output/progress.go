package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/loadline/barrage/internal/metrics"
)

// CountsSource provides live totals; *metrics.Collector implements it.
type CountsSource interface {
	Counts() metrics.Counts
}

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	source   CountsSource
	interval time.Duration
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(source CountsSource, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		source:   source,
		interval: interval,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	p.start = time.Now()
	go p.run()
}

// Stop halts progress updates and clears the line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 2) {
		close(p.done)
		<-p.finished
		fmt.Fprint(p.writer, "\r\033[K")
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(p.writer, progressLine(p.source.Counts(), time.Since(p.start)))
		case <-p.done:
			return
		}
	}
}

func progressLine(c metrics.Counts, elapsed time.Duration) string {
	rps := 0.0
	if elapsed > 0 {
		rps = float64(c.Total) / elapsed.Seconds()
	}
	return fmt.Sprintf("\rRequests: %d | Successes: %d | Failures: %d | RPS: %.1f | Elapsed: %s",
		c.Total, c.Successes, c.Failures, rps, elapsed.Truncate(time.Second))
}
