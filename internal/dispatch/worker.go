package dispatch

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"
)

// WorkerHandle is one pool slot: an adapter, the queues it services, and the
// counters status reporting reads. Exactly one loop goroutine services a
// handle at a time, so a worker never runs two jobs concurrently.
type WorkerHandle struct {
	Index int
	Tag   string
	Kind  string

	adapter Adapter
	// queue carries jobs addressed to this worker by explicit index.
	queue chan *envelope
	// group is the queue shared by this worker's replica group (workers
	// with the same tag); nil when the worker is untagged.
	group chan *envelope

	// load counts jobs executing on this worker (0 or 1); incremented when
	// a job is taken, decremented when it finishes.
	load     atomic.Int64
	served   atomic.Uint64
	failed   atomic.Uint64
	restarts atomic.Uint64

	// current is the envelope being executed. Touched only by the loop
	// goroutine; the supervisor reads it after a fault.
	current *envelope
}

// envelope carries one job through a worker queue together with its caller
// context and output channel.
type envelope struct {
	job Job
	ctx context.Context
	out chan OutputChunk

	// claimed settles which side owns the envelope when the queues are torn
	// down: the executing worker, the shutdown drain, or the dispatcher
	// abandoning an enqueue that raced Close. Exactly one claimer touches out.
	claimed atomic.Bool
}

func (e *envelope) claim() bool { return e.claimed.CompareAndSwap(false, true) }

func (h *WorkerHandle) name() string {
	if h.Tag != "" {
		return h.Tag + "/" + strconv.Itoa(h.Index)
	}
	return strconv.Itoa(h.Index)
}

// run is the worker execution loop: block on the worker's queues, execute,
// repeat. A panic escaping execute is a worker fault; the deferred supervisor
// fails the in-flight job, restarts the loop, and leaves sibling workers
// untouched.
func (p *Pool) run(h *WorkerHandle) {
	defer p.workerWG.Done()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if env := h.current; env != nil {
			// execute's deferred load decrement already ran during
			// unwinding; only the job outcome is left to settle.
			h.current = nil
			env.fail(workerFaultError{worker: h.name()})
			h.failed.Add(1)
			jobsTotal.WithLabelValues(h.name(), "fault").Inc()
		}
		h.restarts.Add(1)
		workerRestarts.WithLabelValues(h.name()).Inc()
		p.events.Publish(Event{Name: "worker_restart", Worker: h.name(), Fields: map[string]any{"cause": r}})
		if !p.closed.Load() {
			p.workerWG.Add(1)
			go p.run(h)
		}
	}()
	for {
		var env *envelope
		select {
		case <-p.done:
			return
		case env = <-h.queue:
			queueDepth.WithLabelValues(h.name()).Set(float64(len(h.queue)))
		case env = <-h.group:
			queueDepth.WithLabelValues(h.Tag).Set(float64(len(h.group)))
		case env = <-p.anyq:
			queueDepth.WithLabelValues(anyQueueName).Set(float64(len(p.anyq)))
		}
		h.current = env
		p.execute(h, env)
		h.current = nil
	}
}

// execute runs one job to completion on h. Producer failures arrive as
// terminal error chunks from the adapter and are contained to this job.
func (p *Pool) execute(h *WorkerHandle, env *envelope) {
	if !env.claim() {
		return
	}
	h.load.Add(1)
	defer h.load.Add(-1)

	// Caller gone while queued: free the slot without touching the adapter.
	if env.ctx.Err() != nil {
		close(env.out)
		return
	}

	// Pool shutdown cancels in-flight work too.
	ctx, cancel := joinDone(env.ctx, p.done)
	defer cancel()

	failed := false
	forward := func(c OutputChunk) error {
		if c.Err != nil {
			failed = true
		}
		select {
		case env.out <- c:
			chunksEmitted.WithLabelValues(h.name()).Inc()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	start := time.Now()
	err := h.adapter.Invoke(ctx, &env.job, forward)
	close(env.out)

	switch {
	case err != nil:
		h.failed.Add(1)
		jobsTotal.WithLabelValues(h.name(), "canceled").Inc()
	case failed:
		h.failed.Add(1)
		jobsTotal.WithLabelValues(h.name(), "failed").Inc()
	default:
		h.served.Add(1)
		jobsTotal.WithLabelValues(h.name(), "ok").Inc()
	}
	jobDuration.WithLabelValues(h.name()).Observe(time.Since(start).Seconds())
	p.events.Publish(Event{Name: "job_done", Worker: h.name(), JobID: env.job.ID})
}

// fail delivers a terminal error chunk (best effort) and closes the output.
func (e *envelope) fail(err error) {
	select {
	case e.out <- OutputChunk{JobID: e.job.ID, Terminal: true, Err: err}:
	case <-e.ctx.Done():
	}
	close(e.out)
}

// joinDone derives a context canceled when either ctx ends or done closes.
func joinDone(ctx context.Context, done <-chan struct{}) (context.Context, context.CancelFunc) {
	joined, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-done:
			cancel()
		case <-joined.Done():
		}
	}()
	return joined, cancel
}
