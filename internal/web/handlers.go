package web

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/hailworks/jnmcp/internal/cache"
	"github.com/hailworks/jnmcp/internal/errors"
	"github.com/hailworks/jnmcp/internal/tools"
)

// Handlers contains HTTP route handlers for the debug surface.
type Handlers struct {
	deps    *tools.Deps
	version string
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleStats handles GET /stats: cache counters plus the governance
// defaults in effect.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"cache_backend":        h.deps.Cfg.CacheBackend,
		"inline_ceiling_bytes": h.deps.Cfg.InlineCeilingBytes,
		"default_verbosity":    h.deps.Cfg.DefaultVerbosity,
		"handle_ttl_seconds":   h.deps.Cfg.HandleTTLSeconds,
		"list_ttl_seconds":     h.deps.Cfg.ListTTLSeconds,
		"get_ttl_seconds":      h.deps.Cfg.GetTTLSeconds,
	}

	// Hit counters exist only on the in-memory backend.
	if mem, ok := h.deps.Store.(*cache.MemoryStore); ok {
		hits, misses, size := mem.Stats()
		payload["cache"] = map[string]any{
			"hits":    hits,
			"misses":  misses,
			"entries": size,
		}
	}

	renderJSON(w, http.StatusOK, payload)
}

// HandleHandle handles GET /handles/{id}: inspect a stored overflow
// result, optionally narrowed by a fields query parameter.
func (h *Handlers) HandleHandle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		renderError(w, errors.NewInvalidRequest("handle ID is required"))
		return
	}

	env, err := tools.ResultFetch(r.Context(), h.deps, tools.ResultFetchInput{
		Handle: id,
		Fields: r.URL.Query().Get("fields"),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	status := http.StatusOK
	if env.Status == "expired" {
		status = http.StatusGone
	}
	renderJSON(w, status, env)
}

// renderJSON writes a JSON response with the given status code.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError maps a typed error to a JSON error body with its HTTP status.
// Internal details stay out of the response.
func renderError(w http.ResponseWriter, err error) {
	var jnErr *errors.JNError
	if !stderrors.As(err, &jnErr) {
		jnErr = errors.NewInternal(err)
	}

	body := map[string]any{
		"code":    jnErr.Code,
		"message": jnErr.Message,
	}
	if jnErr.Code == errors.ErrInternal {
		body["message"] = "an internal error occurred"
	}
	renderJSON(w, jnErr.Status, map[string]any{"error": body})
}
