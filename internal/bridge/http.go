package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/binSaed/flutter-redirectly/internal/events"
)

// NewRouter exposes the plugin to a host over JSON/HTTP:
//
//	POST /methods/{method}   arguments object in, {"result": ...} out
//	POST /links/open         {"url": "..."} for a URI opened while running
//	GET  /links/initial      the launch link, or null
//	GET  /links/events       server-sent "link" events
func NewRouter(p *Plugin, broker *events.Broker) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	h := &httpHost{plugin: p, broker: broker}
	r.Post("/methods/{method}", h.call)
	r.Post("/links/open", h.open)
	r.Get("/links/initial", h.initial)
	r.Get("/links/events", h.stream)
	return r
}

type httpHost struct {
	plugin *Plugin
	broker *events.Broker
}

type resultBody struct {
	Result any `json:"result"`
}

type openRequest struct {
	URL string `json:"url"`
}

type openResponse struct {
	ServiceLink bool `json:"serviceLink"`
	Link        any  `json:"link"`
}

func (h *httpHost) call(w http.ResponseWriter, r *http.Request) {
	args := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, &Error{Code: CodeInvalidParams, Message: "arguments must be a JSON object"})
		return
	}

	call := MethodCall{Method: chi.URLParam(r, "method"), Arguments: args}
	v, err := h.plugin.Handle(context.WithoutCancel(r.Context()), call)
	if err != nil {
		var be *Error
		if !errors.As(err, &be) {
			be = &Error{Code: CodeAPIError, Message: err.Error()}
		}
		writeError(w, be)
		return
	}
	writeJSON(w, http.StatusOK, resultBody{Result: v})
}

func (h *httpHost) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, &Error{Code: CodeInvalidParams, Message: "url is required"})
		return
	}
	link, ok := h.plugin.OpenURL(req.URL)
	resp := openResponse{ServiceLink: ok}
	if ok {
		resp.Link = link
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *httpHost) initial(w http.ResponseWriter, r *http.Request) {
	v, err := h.plugin.Handle(r.Context(), MethodCall{Method: MethodGetInitialLink})
	if err != nil {
		writeError(w, &Error{Code: CodeAPIError, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resultBody{Result: v})
}

// stream writes one "link" event per published link until the client goes
// away or the broker closes.
func (h *httpHost) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := h.broker.Subscribe(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for link := range ch {
		data, err := json.Marshal(link)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "event: link\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func statusFor(code string) int {
	switch code {
	case CodeInvalidConfig, CodeInvalidParams, CodeSerialization:
		return http.StatusBadRequest
	case CodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, e *Error) {
	writeJSON(w, statusFor(e.Code), e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
