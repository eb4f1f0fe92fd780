package dispatch

import (
	"strconv"

	"dispatchd/pkg/types"
)

// anyQueueName labels the pool-wide queue carrying jobs with no selector.
const anyQueueName = "any"

// route is the resolved destination for one job: the queue it must be
// enqueued on and the name used for metrics and events.
type route struct {
	name  string
	queue chan *envelope
}

// RoutingTable maps a job's selector to the queue that must carry it. Built
// once at pool construction from the ordered worker list and never mutated
// after.
type RoutingTable struct {
	byIndex []*WorkerHandle
	byTag   map[string]chan *envelope
	anyq    chan *envelope
}

func buildRoutingTable(handles []*WorkerHandle, groups map[string]chan *envelope, anyq chan *envelope) *RoutingTable {
	return &RoutingTable{byIndex: handles, byTag: groups, anyq: anyq}
}

// Resolve picks the queue a job's selector names. An explicit index addresses
// that worker's own queue. A tag addresses the queue shared by its replica
// group, so the first replica to come free takes the next job and work never
// piles up behind a busy sibling. "any" addresses the pool-wide queue every
// worker services. Unresolvable selectors fail here, before anything is
// enqueued.
func (t *RoutingTable) Resolve(target types.Target) (route, error) {
	if target.ByIndex {
		if target.Index < 0 || target.Index >= len(t.byIndex) {
			return route{}, ErrNoWorker(strconv.Itoa(target.Index))
		}
		h := t.byIndex[target.Index]
		return route{name: h.name(), queue: h.queue}, nil
	}
	if target.Any() {
		return route{name: anyQueueName, queue: t.anyq}, nil
	}
	q, ok := t.byTag[target.Tag]
	if !ok {
		return route{}, ErrNoWorker(target.Tag)
	}
	return route{name: target.Tag, queue: q}, nil
}
