package dispatch

import "dispatchd/pkg/types"

// ResponseMode selects the wire shape of a job's output stream.
type ResponseMode string

const (
	ModeUnary        ResponseMode = "unary"
	ModeSSEStream    ResponseMode = "sse-stream"
	ModeBinaryStream ResponseMode = "binary-stream"
)

// Job is one normalized inference request. Jobs are built through NewJob and
// must not be mutated after Dispatch.
type Job struct {
	ID        string
	Target    types.Target
	Args      []any
	Kwargs    map[string]any
	Mode      ResponseMode
	ChunkSize int
	MediaType string
}

// Call is the producer-facing view of a job's arguments.
type Call struct {
	Args   []any
	Kwargs map[string]any
}

// OutputChunk is one unit of result data flowing from a worker to the
// gateway. A chunk with Err set is always terminal and carries no payload.
type OutputChunk struct {
	JobID    string
	Payload  []byte
	Terminal bool
	Err      error
}

// Frame is one encoded unit ready for the wire: an SSE event payload, a
// fixed-size binary segment, or the whole unary body.
type Frame struct {
	Payload  []byte
	Terminal bool
	Err      error
}
