package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sydlexius/trackyear/internal/notice"
	"github.com/sydlexius/trackyear/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleGetStats(w http.ResponseWriter, req *http.Request) {
	st, err := r.stats.Get(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// lang picks the message language from Accept-Language, falling back to the
// configured default.
func (r *Router) lang(req *http.Request) string {
	if al := req.Header.Get("Accept-Language"); al != "" {
		return al
	}
	return r.language
}

// statusFor maps an error category onto an HTTP status.
func statusFor(kind notice.Kind) int {
	switch kind {
	case notice.KindBadInput:
		return http.StatusBadRequest
	case notice.KindNotFound:
		return http.StatusNotFound
	case notice.KindRateLimited:
		return http.StatusTooManyRequests
	case notice.KindAuth:
		return http.StatusBadGateway
	case notice.KindNetwork, notice.KindProviderDown, notice.KindAborted:
		return http.StatusServiceUnavailable
	case notice.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string      `json:"error"`
	Kind  notice.Kind `json:"kind"`
}

// writeError sends a localized JSON error. Internal errors are logged.
func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	kind := notice.Classify(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed",
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody{Error: notice.Message(err, r.lang(req)), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
