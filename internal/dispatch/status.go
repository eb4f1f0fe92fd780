package dispatch

import (
	"time"

	"dispatchd/pkg/types"
)

// Workers returns the pool slots in construction order with their current
// counters.
func (p *Pool) Workers() []types.WorkerInfo {
	out := make([]types.WorkerInfo, 0, len(p.handles))
	for _, h := range p.handles {
		out = append(out, types.WorkerInfo{
			Index:         h.Index,
			Tag:           h.Tag,
			Kind:          h.Kind,
			QueueLen:      len(h.queue),
			Inflight:      int(h.load.Load()),
			QueueCapacity: cap(h.queue),
			JobsServed:    h.served.Load(),
			JobsFailed:    h.failed.Load(),
			Restarts:      h.restarts.Load(),
		})
	}
	return out
}

// Status builds the detailed status response for /status.
func (p *Pool) Status() types.StatusResponse {
	state := "ready"
	if p.closed.Load() {
		state = "closed"
	}
	now := time.Now()
	return types.StatusResponse{
		Workers:        p.Workers(),
		State:          state,
		UptimeSeconds:  int64(now.Sub(p.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}
