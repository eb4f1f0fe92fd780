package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dispatchd/internal/dispatch"
	"dispatchd/internal/producers"
	"dispatchd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	NewJob(spec dispatch.JobSpec) (dispatch.Job, error)
	Dispatch(ctx context.Context, job dispatch.Job) (*dispatch.JobStream, error)
	Workers() []types.WorkerInfo
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// JSON endpoints get compression; the streaming route stays uncompressed
	// so per-event flushes reach the client unbuffered.
	r.Group(func(g chi.Router) {
		g.Use(middleware.Compress(5))

		g.Get("/workers", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(types.WorkersResponse{Workers: svc.Workers()}); err != nil {
				writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
				return
			}
		})

		g.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
				writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
				return
			}
		})
	})

	r.Post("/api/v1/infer", handleInfer(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("closed"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleInfer parses an inbound call, builds a job, dispatches it, and relays
// the frame stream onto the wire in the shape the job's mode demands.
//
// @Summary      Run inference
// @Accept       json
// @Produce      json
// @Produce      text/event-stream
// @Produce      octet-stream
// @Param        request body types.InferRequest true "inference call"
// @Success      200 {object} types.InferResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      429 {object} types.ErrorResponse
// @Router       /api/v1/infer [post]
func handleInfer(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.InferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		job, err := svc.NewJob(dispatch.JobSpec{
			Target:    req.Target,
			Args:      req.Args,
			Kwargs:    req.Kwargs,
			Mode:      modeFor(req),
			ChunkSize: req.ChunkSize,
			MediaType: req.MediaType,
		})
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Str("path", r.URL.Path).Str("job_id", job.ID).
				Str("target", job.Target.String()).Str("mode", string(job.Mode))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("infer start")
		}

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		stream, err := svc.Dispatch(ctx, job)
		if err != nil {
			// If context was canceled (client disconnect), just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := dispatchErrStatus(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("queue_full")
			}
			writeJSONError(w, status, err.Error())
			logInferEnd(r, lvl, status, start, err)
			return
		}

		var status int
		switch job.Mode {
		case dispatch.ModeUnary:
			status = writeUnary(w, job, stream)
		case dispatch.ModeSSEStream:
			status = writeSSE(w, lvl, stream)
		case dispatch.ModeBinaryStream:
			status = writeBinary(w, job, stream)
		}
		logInferEnd(r, lvl, status, start, nil)
	}
}

// modeFor derives the response mode from the inbound call: non-streaming is
// unary; a streaming call asking for a chunk size or a non-text media type is
// a binary stream; everything else streams text events.
func modeFor(req types.InferRequest) dispatch.ResponseMode {
	if !req.Stream {
		return dispatch.ModeUnary
	}
	if req.ChunkSize > 0 {
		return dispatch.ModeBinaryStream
	}
	if req.MediaType != "" && !strings.HasPrefix(req.MediaType, "text/") {
		return dispatch.ModeBinaryStream
	}
	return dispatch.ModeSSEStream
}

// dispatchErrStatus maps synchronous dispatch errors to HTTP status codes.
func dispatchErrStatus(err error) int {
	switch {
	case dispatch.IsRoutingError(err):
		return http.StatusNotFound
	case dispatch.IsTooBusy(err):
		return http.StatusTooManyRequests
	case dispatch.IsEncodingError(err):
		return http.StatusBadRequest
	case dispatch.IsPoolClosed(err):
		return http.StatusServiceUnavailable
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// streamErrStatus maps a failure frame to a status, usable only before the
// first byte has been written.
func streamErrStatus(err error) int {
	switch {
	case producers.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case dispatch.IsEncodingError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeUnary waits for the single terminal frame and returns it whole: JSON
// by default, raw bytes when the job declared its own media type.
func writeUnary(w http.ResponseWriter, job dispatch.Job, stream *dispatch.JobStream) int {
	var final dispatch.Frame
	for f := range stream.Frames() {
		final = f
	}
	if final.Err != nil {
		status := streamErrStatus(final.Err)
		writeJSONError(w, status, final.Err.Error())
		return status
	}
	if job.MediaType != "" && !strings.HasPrefix(job.MediaType, "application/json") {
		w.Header().Set("Content-Type", job.MediaType)
		_, _ = w.Write(final.Payload)
		return http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.InferResponse{JobID: job.ID, Result: string(final.Payload)})
	return http.StatusOK
}

// writeSSE relays frames as server-sent events, one event per frame, flushed
// immediately so time-to-first-byte tracks the first produced value. A
// failure frame becomes an explicit error event: the client never sees a
// silently truncated stream.
func writeSSE(w http.ResponseWriter, lvl LogLevel, stream *dispatch.JobStream) int {
	first, ok := <-stream.Frames()
	if ok && first.Err != nil {
		status := streamErrStatus(first.Err)
		writeJSONError(w, status, first.Err.Error())
		return status
	}

	flusher, _ := w.(http.Flusher)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(f dispatch.Frame) bool {
		if f.Err != nil {
			writeSSEEvent(w, "error", []byte(f.Err.Error()))
			if flusher != nil {
				flusher.Flush()
			}
			return false
		}
		if len(f.Payload) > 0 {
			writeSSEEvent(w, "", f.Payload)
			if lvl >= LevelDebug && zlog != nil {
				zlog.Debug().Str("event", string(f.Payload)).Msg("infer>")
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		return !f.Terminal
	}

	if ok && !emit(first) {
		return http.StatusOK
	}
	for f := range stream.Frames() {
		if !emit(f) {
			break
		}
	}
	return http.StatusOK
}

// writeSSEEvent frames one payload as a server-sent event. Multi-line
// payloads become multiple data: lines per the SSE grammar.
func writeSSEEvent(w io.Writer, event string, payload []byte) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range bytes.Split(payload, []byte("\n")) {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}

// writeBinary relays re-segmented byte frames as a raw chunked body. A
// failure before the first byte maps to a status; after that the connection
// is simply closed short, which clients detect by the missing terminal
// length.
func writeBinary(w http.ResponseWriter, job dispatch.Job, stream *dispatch.JobStream) int {
	first, ok := <-stream.Frames()
	if ok && first.Err != nil {
		status := streamErrStatus(first.Err)
		writeJSONError(w, status, first.Err.Error())
		return status
	}

	flusher, _ := w.(http.Flusher)
	mediaType := job.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(http.StatusOK)

	emit := func(f dispatch.Frame) bool {
		if f.Err != nil {
			if zlog != nil {
				zlog.Error().Err(f.Err).Str("job_id", job.ID).Msg("binary stream aborted")
			}
			return false
		}
		if len(f.Payload) > 0 {
			if _, err := w.Write(f.Payload); err != nil {
				return false
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		return !f.Terminal
	}

	if ok && !emit(first) {
		return http.StatusOK
	}
	for f := range stream.Frames() {
		if !emit(f) {
			break
		}
	}
	return http.StatusOK
}

func logInferEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl < LevelInfo || zlog == nil {
		return
	}
	z := zlog.Info().Int("status", status).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	if err != nil {
		z = z.Err(err)
	}
	z.Msg("infer end")
}
