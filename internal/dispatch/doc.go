// Package dispatch routes inference jobs from the HTTP gateway to a fixed
// pool of heterogeneous workers and streams their output back. It is
// structured into small files by concern:
//
//   - types.go: Job, Call, OutputChunk, Frame, ResponseMode.
//   - config.go: PoolConfig, WorkerSpec, package defaults.
//   - job.go: JobSpec validation and Job construction (NewJob).
//   - adapter.go: the Adapter capability and the producer-shape constructors
//     (AdaptUnary, AdaptTextUnary, AdaptStream, AdaptTextStream).
//   - routing.go: RoutingTable; selector resolution to worker/group queues.
//   - worker.go: WorkerHandle, the per-worker execution loop, fault supervision.
//   - pool.go: Pool construction, Dispatch, per-job relay, Close.
//   - encoder.go: per-job stream encoder (unary / sse-stream / binary-stream).
//   - errors.go: error types and predicates (IsRoutingError, IsTooBusy, ...).
//   - metrics.go: prometheus collectors for queues, jobs, chunks, restarts.
//   - events.go / eventpub_memory.go: lifecycle event publishing.
//   - status.go: status/worker reporting for the HTTP layer.
//
// A job's selector resolves to exactly one queue before enqueue: an explicit
// index addresses that worker's own queue, a tag addresses the queue shared
// by the tag's replica group, and "any" addresses a pool-wide queue every
// worker services — so a request for one model can never be picked up by
// another, and replicas pull work as they come free instead of having jobs
// pinned behind a busy sibling. A single goroutine services each worker,
// giving at most one concurrent execution per slot. External packages should
// treat this package as the dispatch core and use public methods only
// (NewPool, NewJob, Dispatch, Workers, Status, Close).
package dispatch
