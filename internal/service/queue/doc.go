// Package queue implements the durable delivery queue processor.
//
// ProcessBatch claims due entries with a single conditional update, so two
// overlapping invocations never send the same entry. Each claimed entry is
// rendered and sent once. Failures are recorded on the entry and surfaced
// through Stats; they are never re-queued automatically. The synchronous
// retry used for order confirmations lives in internal/pkg/retry and is a
// separate strategy.
package queue
