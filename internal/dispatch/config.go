package dispatch

import "time"

// Defaults applied when corresponding PoolConfig fields are unset.
const (
	defaultQueueCapacity = 32
	defaultMaxWait       = 30 * time.Second
	defaultChunkSize     = 4096
)

// WorkerSpec declares one pool slot. Position in PoolConfig.Workers becomes
// the worker's stable index and its default routing key.
type WorkerSpec struct {
	// Tag is an optional routing name. Several workers may share a tag to
	// form a replica group. The name "any" is reserved.
	Tag string
	// Kind labels the producer backing this worker (informational).
	Kind string
	// Adapter executes jobs routed to this worker.
	Adapter Adapter
}

// PoolConfig encapsulates all tunables for Pool construction.
type PoolConfig struct {
	Workers          []WorkerSpec
	QueueCapacity    int
	MaxWait          time.Duration
	DefaultChunkSize int
	// Events receives pool lifecycle events; nil means drop them.
	Events EventPublisher
}

func (c *PoolConfig) applyDefaults() {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = defaultQueueCapacity
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.DefaultChunkSize <= 0 {
		c.DefaultChunkSize = defaultChunkSize
	}
	if c.Events == nil {
		c.Events = noopPublisher{}
	}
}
