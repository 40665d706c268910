package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/loreseek/loreseek/tool"
)

// restRoutes maps URL path segments to tool names. REST paths use
// hyphens where tool names use underscores.
var restRoutes = map[string]struct{ search, stats string }{
	"code":        {"search_code", "code_stats"},
	"client-code": {"search_client_code", "client_code_stats"},
	"gamedata":    {"search_gamedata", "gamedata_stats"},
	"docs":        {"search_docs", "docs_stats"},
}

// RESTHandler serves the tool registry over plain HTTP. Every route
// dispatches through Registry.Invoke, so validation and error semantics
// are identical to the other adapters.
func RESTHandler(reg *tool.Registry, tc *tool.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	for segment, names := range restRoutes {
		searchTool, statsTool := names.search, names.stats
		r.Post("/v1/search/"+segment, invokeHandler(reg, tc, searchTool))
		r.Post("/v1/stats/"+segment, invokeHandler(reg, tc, statsTool))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	})

	return r
}

// invokeHandler adapts one registry tool to an HTTP endpoint. The
// request body is the tool input; an empty body means no input.
func invokeHandler(reg *tool.Registry, tc *tool.Context, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := decodeInput(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body: " + err.Error()})
			return
		}

		res, err := reg.Invoke(r.Context(), name, input, tc)
		if errors.Is(err, tool.ErrUnknownTool) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}

		if !res.Success {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": res.Error})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": res.Data})
	}
}

func decodeInput(body io.Reader) (map[string]any, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}
	return input, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
