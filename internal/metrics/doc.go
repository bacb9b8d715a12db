// Package metrics provides real-time metrics collection for the asset worker.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Request counts per HTTP method
//   - Response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution
//   - Failed asset fetches
//   - Origin health status
//
// The collector runs in a dedicated goroutine and never blocks the request
// path: Emit drops events when the buffer is full.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Duration:   15 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot("dir")
//
// Pending events are drained when the context is cancelled.
package metrics
