package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/loadline/barrage/internal/histogram"
)

// DefaultBufferSize is the capacity of the outcome channel between workers
// and the aggregator.
const DefaultBufferSize = 4096

// Options configure a Collector.
type Options struct {
	BufferSize int              // outcome channel capacity (0 means DefaultBufferSize)
	Histogram  histogram.Config // latency histogram bounds (zero value means defaults)
}

// Snapshot is a point-in-time copy of the aggregate. Latency holds successes only.
type Snapshot struct {
	Total           int64
	Successes       int64
	Timeouts        int64
	TransportErrors int64
	TotalBytes      int64
	StatusCodes     map[int]int64
	Errors          map[string]int64
	Latency         *histogram.Histogram
	// Dropped counts outcomes offered after Close; they are not part of Total.
	Dropped int64
}

// Failures returns the number of failed attempts.
func (s Snapshot) Failures() int64 {
	return s.Timeouts + s.TransportErrors
}

// Counts is the cheap live view used by progress reporting.
type Counts struct {
	Total     int64
	Successes int64
	Failures  int64
	Bytes     int64
}

// Collector aggregates outcomes from many workers. Record is safe for
// concurrent use; a single aggregator goroutine owns the aggregate state.
type Collector struct {
	in   chan Outcome
	done chan struct{}

	// sendMu lets Close wait out in-flight sends before closing the channel.
	sendMu sync.RWMutex
	closed bool

	mu          sync.RWMutex
	statusCodes map[int]int64
	errors      map[string]int64
	timeouts    int64
	transport   int64
	totalBytes  int64
	latency     *histogram.Histogram

	total     atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	bytes     atomic.Int64
	dropped   atomic.Int64

	closeOnce sync.Once
	final     Snapshot
}

// NewCollector starts the aggregator goroutine. Call Close to stop it.
func NewCollector(opts Options) *Collector {
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	c := &Collector{
		in:          make(chan Outcome, size),
		done:        make(chan struct{}),
		statusCodes: make(map[int]int64),
		errors:      make(map[string]int64),
		latency:     histogram.New(opts.Histogram),
	}
	go c.aggregate()
	return c
}

// Record queues one outcome. It blocks while the buffer is full and never
// drops an outcome offered before Close; outcomes offered after Close are
// counted in Snapshot.Dropped.
func (c *Collector) Record(o Outcome) {
	c.sendMu.RLock()
	if c.closed {
		c.sendMu.RUnlock()
		c.dropped.Add(1)
		return
	}
	c.in <- o
	c.sendMu.RUnlock()
}

func (c *Collector) aggregate() {
	defer close(c.done)
	for o := range c.in {
		c.apply(o)
	}
}

func (c *Collector) apply(o Outcome) {
	c.mu.Lock()
	switch o.Kind {
	case KindSuccess:
		c.statusCodes[o.StatusCode]++
		c.totalBytes += o.ContentLength
		c.latency.Record(o.Latency)
	case KindTimeout:
		c.timeouts++
		c.errors[o.Message]++
	default:
		c.transport++
		c.errors[o.Message]++
	}
	c.mu.Unlock()

	if o.Kind == KindSuccess {
		c.successes.Add(1)
		c.bytes.Add(o.ContentLength)
	} else {
		c.failures.Add(1)
	}
	c.total.Add(1)
}

// Counts returns live totals without touching the aggregate lock.
func (c *Collector) Counts() Counts {
	return Counts{
		Total:     c.total.Load(),
		Successes: c.successes.Load(),
		Failures:  c.failures.Load(),
		Bytes:     c.bytes.Load(),
	}
}

// Snapshot deep-copies the current aggregate. Outcomes still buffered in the
// channel are not included; use Close for the final, fully drained view.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Collector) snapshotLocked() Snapshot {
	s := Snapshot{
		Timeouts:        c.timeouts,
		TransportErrors: c.transport,
		TotalBytes:      c.totalBytes,
		StatusCodes:     make(map[int]int64, len(c.statusCodes)),
		Errors:          make(map[string]int64, len(c.errors)),
		Latency:         c.latency.Copy(),
		Dropped:         c.dropped.Load(),
	}
	var success int64
	for code, n := range c.statusCodes {
		s.StatusCodes[code] = n
		success += n
	}
	var failed int64
	for msg, n := range c.errors {
		s.Errors[msg] = n
		failed += n
	}
	// Derived from the maps under the lock so Total always equals their sum,
	// even while the atomics are mid-update.
	s.Successes = success
	s.Total = success + failed
	return s
}

// Close stops accepting outcomes, waits until every queued outcome has been
// aggregated and returns the final snapshot. Later calls return the same
// snapshot, with Dropped refreshed.
func (c *Collector) Close() Snapshot {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed = true
		close(c.in)
		c.sendMu.Unlock()

		<-c.done
		c.final = c.Snapshot()
	})
	s := c.final
	s.Dropped = c.dropped.Load()
	return s
}
