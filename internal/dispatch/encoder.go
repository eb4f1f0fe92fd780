package dispatch

// encState tracks the per-job encoder state machine:
// waiting -> streaming -> (complete | failed).
type encState int

const (
	encWaiting encState = iota
	encStreaming
	encComplete
	encFailed
)

// Encoder translates one job's chunk sequence into wire frames for its
// response mode. It is push-based and single-goroutine (driven by the job's
// relay); once complete or failed it accepts no further chunks.
type Encoder struct {
	mode      ResponseMode
	chunkSize int
	state     encState
	buf       []byte
}

func NewEncoder(mode ResponseMode, chunkSize int) *Encoder {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Encoder{mode: mode, chunkSize: chunkSize}
}

// Done reports whether the encoder reached a terminal state.
func (e *Encoder) Done() bool { return e.state == encComplete || e.state == encFailed }

// Failed reports whether the stream ended with an error.
func (e *Encoder) Failed() bool { return e.state == encFailed }

// Push accepts the next chunk and returns zero or more frames ready for the
// wire. Exactly one returned frame across the job's lifetime has Terminal
// set; it is always the last.
func (e *Encoder) Push(c OutputChunk) ([]Frame, error) {
	if e.Done() {
		return nil, ErrEncoding("chunk pushed after terminal state")
	}
	e.state = encStreaming
	if c.Err != nil {
		e.state = encFailed
		return []Frame{{Terminal: true, Err: c.Err}}, nil
	}
	switch e.mode {
	case ModeUnary:
		return e.pushUnary(c), nil
	case ModeSSEStream:
		return e.pushSSE(c), nil
	case ModeBinaryStream:
		return e.pushBinary(c), nil
	}
	e.state = encFailed
	return nil, ErrEncoding("unknown response mode: " + string(e.mode))
}

// pushUnary accumulates until the terminal chunk, then returns the whole
// payload as a single frame. No streaming framing.
func (e *Encoder) pushUnary(c OutputChunk) []Frame {
	e.buf = append(e.buf, c.Payload...)
	if !c.Terminal {
		return nil
	}
	e.state = encComplete
	return []Frame{{Payload: e.buf, Terminal: true}}
}

// pushSSE emits each payload immediately in producer order; nothing is
// withheld to merge with a later chunk, keeping time-to-first-byte at the
// first produced value.
func (e *Encoder) pushSSE(c OutputChunk) []Frame {
	var frames []Frame
	if len(c.Payload) > 0 {
		frames = append(frames, Frame{Payload: c.Payload})
	}
	if c.Terminal {
		e.state = encComplete
		if n := len(frames); n > 0 {
			frames[n-1].Terminal = true
		} else {
			frames = append(frames, Frame{Terminal: true})
		}
	}
	return frames
}

// pushBinary re-segments producer output to the job's chunk size: the
// producer's byte groups are buffered and re-sliced so every emitted frame
// except the last is exactly chunkSize bytes. The terminal chunk flushes any
// remaining partial buffer as the final short frame.
func (e *Encoder) pushBinary(c OutputChunk) []Frame {
	e.buf = append(e.buf, c.Payload...)
	var frames []Frame
	for len(e.buf) >= e.chunkSize {
		seg := make([]byte, e.chunkSize)
		copy(seg, e.buf)
		e.buf = e.buf[e.chunkSize:]
		frames = append(frames, Frame{Payload: seg})
	}
	if !c.Terminal {
		return frames
	}
	e.state = encComplete
	if len(e.buf) > 0 {
		frames = append(frames, Frame{Payload: e.buf, Terminal: true})
		e.buf = nil
	} else if n := len(frames); n > 0 {
		frames[n-1].Terminal = true
	} else {
		frames = append(frames, Frame{Terminal: true})
	}
	return frames
}
