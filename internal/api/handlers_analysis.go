package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/export"
	"github.com/sydlexius/trackyear/internal/notice"
	"github.com/sydlexius/trackyear/internal/review"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 * 1024

// streamEvent is the payload of every server-sent event of a run.
type streamEvent struct {
	Status   string           `json:"status"`
	Progress *review.Progress `json:"progress,omitempty"`
	Run      *review.Run      `json:"run,omitempty"`
	Error    string           `json:"error,omitempty"`
	Kind     notice.Kind      `json:"kind,omitempty"`
}

// eventStream writes server-sent events and flushes after each one.
type eventStream struct {
	w  io.Writer
	rc *http.ResponseController
}

func newEventStream(w http.ResponseWriter) *eventStream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &eventStream{w: w, rc: http.NewResponseController(w)}
}

func (s *eventStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func decodeBody(req *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", notice.ErrInvalidRequest, err)
	}
	return nil
}

// handleCreateAnalysis runs a playlist analysis and streams its progress.
// The final event carries the stored run.
func (r *Router) handleCreateAnalysis(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Playlist string `json:"playlist"`
	}
	if err := decodeBody(req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}
	if strings.TrimSpace(body.Playlist) == "" {
		r.writeError(w, req, fmt.Errorf("%w: playlist is required", notice.ErrInvalidRequest))
		return
	}

	stream := newEventStream(w)
	lang := r.lang(req)
	log := r.logger.With(slog.String("playlist", body.Playlist))

	run, err := r.runner.Run(req.Context(), body.Playlist, func(p review.Progress) {
		if sendErr := stream.send("progress", streamEvent{Status: review.StatusProcessing, Progress: &p}); sendErr != nil {
			log.Debug("progress event not delivered", slog.String("error", sendErr.Error()))
		}
	})
	if err != nil {
		log.Warn("analysis failed", slog.String("error", err.Error()))
		ev := streamEvent{
			Status: review.StatusError,
			Run:    run,
			Error:  notice.Message(err, lang),
			Kind:   notice.Classify(err),
		}
		_ = stream.send("error", ev)
		return
	}
	_ = stream.send("complete", streamEvent{Status: review.StatusComplete, Run: run})
}

func (r *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) {
	runs, err := r.runs.List(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) {
	run, err := r.runs.Get(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*review.Run
		Summary analyzer.Summary `json:"summary"`
	}{run, run.Summary()})
}

func (r *Router) handleDeleteAnalysis(w http.ResponseWriter, req *http.Request) {
	if err := r.runs.Delete(req.Context(), req.PathValue("id")); err != nil {
		r.writeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleApproveTrack(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Year   int    `json:"year"`
		Source string `json:"source"`
	}
	if err := decodeBody(req, &body); err != nil {
		r.writeError(w, req, err)
		return
	}

	at, err := r.runs.Approve(req.Context(), req.PathValue("id"), req.PathValue("trackId"), body.Year, body.Source)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, at)
}

func (r *Router) handleApproveGreen(w http.ResponseWriter, req *http.Request) {
	n, err := r.runs.ApproveAllGreen(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"approved": n})
}

func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) {
	format := req.URL.Query().Get("format")
	if format == "" {
		format = export.FormatSongs
	}
	id := req.PathValue("id")

	data, err := r.runs.Export(req.Context(), id, format)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="trackyear-%s-%s.json"`, id, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
