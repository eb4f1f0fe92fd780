package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Target names the worker a request must run on. On the wire it is either a
// JSON number (worker index), a string (worker tag), or absent/"any" meaning
// any worker may take it.
type Target struct {
	// Index of the worker, valid when ByIndex is true.
	Index int
	// Tag of the worker class, valid when non-empty and ByIndex is false.
	Tag string
	// ByIndex distinguishes index 0 from "unset".
	ByIndex bool
}

// Any reports whether the target leaves worker selection to the dispatcher.
func (t Target) Any() bool { return !t.ByIndex && (t.Tag == "" || t.Tag == "any") }

func (t Target) String() string {
	if t.ByIndex {
		return strconv.Itoa(t.Index)
	}
	if t.Any() {
		return "any"
	}
	return t.Tag
}

// UnmarshalJSON accepts a number (index) or a string (tag).
func (t *Target) UnmarshalJSON(b []byte) error {
	var idx int
	if err := json.Unmarshal(b, &idx); err == nil {
		t.Index = idx
		t.ByIndex = true
		t.Tag = ""
		return nil
	}
	var tag string
	if err := json.Unmarshal(b, &tag); err == nil {
		t.Tag = tag
		t.ByIndex = false
		return nil
	}
	return fmt.Errorf("target must be a worker index or tag")
}

// MarshalJSON emits the index as a number and the tag as a string.
func (t Target) MarshalJSON() ([]byte, error) {
	if t.ByIndex {
		return json.Marshal(t.Index)
	}
	if t.Any() {
		return json.Marshal("any")
	}
	return json.Marshal(t.Tag)
}

// InferRequest represents an inference request payload.
type InferRequest struct {
	// Positional arguments passed to the model, in order.
	// example: ["Hello"]
	Args []any `json:"args,omitempty"`
	// Keyword arguments passed to the model.
	// example: {"steps": 5}
	Kwargs map[string]any `json:"kwargs,omitempty"`
	// If true, stream results incrementally (SSE for text, raw chunks for binary).
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
	// Optional media type for the response body, forwarded unmodified.
	// example: audio/wav
	MediaType string `json:"media_type,omitempty" example:"audio/wav"`
	// Chunk size in bytes for binary streaming. Must be positive when set.
	// example: 256
	ChunkSize int `json:"chunk_size,omitempty" example:"256"`
	// Optional worker selector: index (number), tag (string), or "any".
	Target Target `json:"target,omitempty" swaggertype:"string" example:"llm"`
}

// InferResponse is the body returned for non-streaming text requests.
type InferResponse struct {
	// ID assigned to the job.
	// example: 9b1de2f6-6e1a-4f11-9c5e-0d6c2a4f51b0
	JobID string `json:"job_id"`
	// Full result text.
	// example: Async result for Hello
	Result string `json:"result"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// WorkerInfo summarizes one pool slot for /workers and /status.
type WorkerInfo struct {
	// Stable index assigned at pool construction; doubles as the default routing key.
	// example: 0
	Index int `json:"index" example:"0"`
	// Routing tag, empty if the worker is addressable by index only.
	// example: llm
	Tag string `json:"tag,omitempty" example:"llm"`
	// Producer kind backing this worker.
	// example: tokengen
	Kind string `json:"kind" example:"tokengen"`
	// Jobs waiting on this worker's index-addressed queue.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Jobs executing on this worker right now (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Queue capacity before backpressure triggers.
	// example: 32
	QueueCapacity int `json:"queue_capacity" example:"32"`
	// Total jobs completed successfully.
	// example: 12
	JobsServed uint64 `json:"jobs_served" example:"12"`
	// Total jobs ended in failure.
	// example: 1
	JobsFailed uint64 `json:"jobs_failed" example:"1"`
	// Times the worker loop was restarted after a fault.
	// example: 0
	Restarts uint64 `json:"restarts" example:"0"`
}

// WorkersResponse wraps the worker list returned by GET /workers.
type WorkersResponse struct {
	// Pool slots in construction order.
	Workers []WorkerInfo `json:"workers"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Per-worker runtime counters.
	Workers []WorkerInfo `json:"workers"`
	// Overall pool state (ready, closed).
	// example: ready
	State string `json:"state" example:"ready"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
