package dispatch

import (
	"strconv"

	"github.com/google/uuid"

	"dispatchd/pkg/types"
)

// JobSpec is the gateway-facing description of one request, before
// validation and defaulting.
type JobSpec struct {
	Target    types.Target
	Args      []any
	Kwargs    map[string]any
	Mode      ResponseMode
	ChunkSize int
	MediaType string
}

// NewJob validates a spec and builds an immutable Job with a fresh id.
// Framing problems (unknown mode, non-positive chunk size) are rejected here,
// before any worker is touched.
func (p *Pool) NewJob(spec JobSpec) (Job, error) {
	switch spec.Mode {
	case ModeUnary, ModeSSEStream, ModeBinaryStream:
	case "":
		spec.Mode = ModeUnary
	default:
		return Job{}, ErrEncoding("unknown response mode: " + string(spec.Mode))
	}
	if spec.ChunkSize < 0 {
		return Job{}, ErrEncoding("chunk size must be positive, got " + strconv.Itoa(spec.ChunkSize))
	}
	if spec.ChunkSize == 0 {
		spec.ChunkSize = p.cfg.DefaultChunkSize
	}
	return Job{
		ID:        uuid.NewString(),
		Target:    spec.Target,
		Args:      spec.Args,
		Kwargs:    spec.Kwargs,
		Mode:      spec.Mode,
		ChunkSize: spec.ChunkSize,
		MediaType: spec.MediaType,
	}, nil
}
