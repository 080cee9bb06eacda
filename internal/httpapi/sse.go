package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shopreviews/internal/core/domain"
)

type frameEvent struct {
	Type   string           `json:"type"`
	Image  string           `json:"image,omitempty"`
	Status domain.JobStatus `json:"status,omitempty"`
}

// stream sends the status snapshot every StreamInterval until the job is terminal.
// The last event carries the reviews accumulated so far, including on error.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	sse := newEventWriter(w)
	ticker := time.NewTicker(s.opts.StreamInterval)
	defer ticker.Stop()
	for {
		snap := job.Snapshot()
		if snap.Status.Terminal() {
			snap.Reviews = job.Reviews()
			if snap.Reviews == nil {
				snap.Reviews = []domain.Review{}
			}
			_ = sse.send(snap)
			return
		}
		if err := sse.send(snap); err != nil {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// browserStream sends new screenshot frames while the job is interactive, then a
// single solved event with the status that ended the interactive phase.
func (s *Server) browserStream(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	sse := newEventWriter(w)
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()
	var lastSeq uint64
	for {
		status := job.Status()
		if !status.Interactive() && status != domain.StatusQueued {
			_ = sse.send(frameEvent{Type: "solved", Status: status})
			return
		}
		if img, seq := job.Screenshot(); len(img) > 0 && seq > lastSeq {
			ev := frameEvent{Type: "frame", Image: base64.StdEncoding.EncodeToString(img)}
			if err := sse.send(ev); err != nil {
				return
			}
			lastSeq = seq
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

type eventWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &eventWriter{w: w, rc: http.NewResponseController(w)}
}

func (e *eventWriter) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", b); err != nil {
		return err
	}
	return e.rc.Flush()
}
