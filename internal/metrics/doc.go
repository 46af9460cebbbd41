// Package metrics turns request attempts into outcomes and aggregates them.
//
// # Outcomes
//
// Every attempt becomes exactly one [Outcome]: [Success] for any HTTP
// response regardless of status, or [Failure] for an error, which [Classify]
// splits into timeouts and transport errors:
//
//	o := metrics.Failure(elapsed, err) // KindTimeout, "request timeout"
//
// # Collector
//
// [Collector] is a single-consumer aggregator. Workers call
// [Collector.Record] concurrently; one goroutine owns the status-code map,
// the error map and the latency histogram. [Collector.Close] drains the
// buffer and returns the final [Snapshot]:
//
//	c := metrics.NewCollector(metrics.Options{})
//	go worker(c) // c.Record(o) per attempt
//	...
//	snap := c.Close()
//	// snap.Total == sum(snap.StatusCodes) + sum(snap.Errors)
//
// [Collector.Counts] is lock-free and meant for progress output while the
// run is still going.
package metrics
