package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrInterrupted marks a stream that ended without its producer delivering a
// terminal chunk (cancellation or teardown mid-job). Callers never see silent
// truncation: the final frame carries this error instead.
var ErrInterrupted = errors.New("stream interrupted before completion")

// Pool owns the worker handles, their queues, and the routing table. It is
// constructed once at server start and lives for the process lifetime;
// workers are not hot-swappable.
type Pool struct {
	cfg     PoolConfig
	handles []*WorkerHandle
	groups  map[string]chan *envelope
	anyq    chan *envelope
	table   *RoutingTable
	events  EventPublisher

	done      chan struct{}
	closed    atomic.Bool
	workerWG  sync.WaitGroup
	relayWG   sync.WaitGroup
	startTime time.Time
}

// NewPool builds the handles, queues, and routing table from the ordered
// worker list and starts one execution loop per handle. Workers sharing a tag
// form a replica group and service one shared queue; capacities scale with
// the number of workers behind each queue.
func NewPool(cfg PoolConfig) (*Pool, error) {
	cfg.applyDefaults()
	if len(cfg.Workers) == 0 {
		return nil, errors.New("pool: no workers configured")
	}
	p := &Pool{
		cfg:       cfg,
		events:    cfg.Events,
		groups:    make(map[string]chan *envelope),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	replicas := make(map[string]int)
	for i, spec := range cfg.Workers {
		if spec.Adapter == nil {
			return nil, errors.New("pool: worker " + spec.Tag + " has no adapter")
		}
		if spec.Tag == anyQueueName {
			return nil, errors.New(`pool: worker tag "any" is reserved`)
		}
		if spec.Tag != "" {
			replicas[spec.Tag]++
		}
		p.handles = append(p.handles, &WorkerHandle{
			Index:   i,
			Tag:     spec.Tag,
			Kind:    spec.Kind,
			adapter: spec.Adapter,
			queue:   make(chan *envelope, cfg.QueueCapacity),
		})
	}
	for tag, n := range replicas {
		p.groups[tag] = make(chan *envelope, cfg.QueueCapacity*n)
	}
	for _, h := range p.handles {
		if h.Tag != "" {
			h.group = p.groups[h.Tag]
		}
	}
	p.anyq = make(chan *envelope, cfg.QueueCapacity*len(p.handles))
	p.table = buildRoutingTable(p.handles, p.groups, p.anyq)
	for _, h := range p.handles {
		p.workerWG.Add(1)
		go p.run(h)
	}
	return p, nil
}

// JobStream is the caller-facing side of one dispatched job: a sequence of
// encoded frames ending with exactly one terminal frame.
type JobStream struct {
	job    Job
	frames chan Frame
}

// Frames returns the channel the gateway drains. It is closed after the
// terminal frame.
func (s *JobStream) Frames() <-chan Frame { return s.frames }

// Job returns the dispatched job (media type, mode) for wire negotiation.
func (s *JobStream) Job() Job { return s.job }

// Dispatch routes the job onto its queue and starts the per-job relay that
// feeds the encoder. Routing and backpressure errors surface synchronously;
// anything after enqueue arrives as an error frame.
func (p *Pool) Dispatch(ctx context.Context, job Job) (*JobStream, error) {
	if p.closed.Load() {
		return nil, poolClosedError{}
	}
	rt, err := p.table.Resolve(job.Target)
	if err != nil {
		return nil, err
	}

	env := &envelope{job: job, ctx: ctx, out: make(chan OutputChunk)}
	timer := time.NewTimer(p.cfg.MaxWait)
	defer timer.Stop()
	select {
	case rt.queue <- env:
		queueDepth.WithLabelValues(rt.name).Set(float64(len(rt.queue)))
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, poolClosedError{}
	case <-timer.C:
		return nil, tooBusyError{worker: rt.name}
	}

	// The enqueue can win its select against an already-closed done channel,
	// landing the envelope on a queue Close has drained or is draining. If
	// the claim succeeds here, no worker and no drain will ever service it;
	// abandon it instead of handing the caller a stream that never ends.
	if p.closed.Load() && env.claim() {
		return nil, poolClosedError{}
	}

	p.events.Publish(Event{Name: "job_enqueued", Worker: rt.name, JobID: job.ID})

	s := &JobStream{job: job, frames: make(chan Frame, 1)}
	p.relayWG.Add(1)
	go p.relay(env, s)
	return s, nil
}

// relay drives one job's chunks through its encoder and hands frames to the
// consumer. It exits when the worker closes the output channel or the caller
// stops listening.
func (p *Pool) relay(env *envelope, s *JobStream) {
	defer p.relayWG.Done()
	defer close(s.frames)
	enc := NewEncoder(env.job.Mode, env.job.ChunkSize)
	for c := range env.out {
		frames, err := enc.Push(c)
		if err != nil {
			s.deliver(env.ctx, Frame{Terminal: true, Err: err})
			return
		}
		for _, f := range frames {
			if !s.deliver(env.ctx, f) {
				return
			}
		}
	}
	if !enc.Done() {
		s.deliver(env.ctx, Frame{Terminal: true, Err: ErrInterrupted})
	}
}

func (s *JobStream) deliver(ctx context.Context, f Frame) bool {
	select {
	case s.frames <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// Ready reports whether the pool accepts work.
func (p *Pool) Ready() bool { return !p.closed.Load() }

// Close stops accepting jobs, cancels in-flight work, fails anything still
// queued, and waits for worker loops and relays to exit.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.done)
	p.workerWG.Wait()
	for _, h := range p.handles {
		drainQueue(h.queue, h)
	}
	for _, q := range p.groups {
		drainQueue(q, nil)
	}
	drainQueue(p.anyq, nil)
	p.relayWG.Wait()
	p.events.Publish(Event{Name: "pool_closed"})
}

// drainQueue fails every unclaimed envelope left on q after the worker loops
// have exited. Envelopes abandoned by a racing Dispatch are already claimed
// and are simply discarded.
func drainQueue(q chan *envelope, h *WorkerHandle) {
	for {
		select {
		case env := <-q:
			if !env.claim() {
				continue
			}
			env.fail(poolClosedError{})
			if h != nil {
				h.failed.Add(1)
			}
		default:
			return
		}
	}
}
