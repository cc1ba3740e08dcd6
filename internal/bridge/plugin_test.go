package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/binSaed/flutter-redirectly/internal/bridge"
	"github.com/binSaed/flutter-redirectly/internal/client"
	"github.com/binSaed/flutter-redirectly/internal/events"
	"github.com/binSaed/flutter-redirectly/internal/metrics"
)

type seenRequest struct {
	method string
	path   string
	body   map[string]any
}

// fakeAPI answers every request with status and body, recording what it saw.
type fakeAPI struct {
	*httptest.Server

	mu     sync.Mutex
	seen   []seenRequest
	status int
	body   string
}

func newFakeAPI(t *testing.T, status int, body string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{status: status, body: body}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var decoded map[string]any
		_ = json.NewDecoder(r.Body).Decode(&decoded)
		f.mu.Lock()
		f.seen = append(f.seen, seenRequest{method: r.Method, path: r.URL.Path, body: decoded})
		f.mu.Unlock()
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) requests() []seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seenRequest(nil), f.seen...)
}

func newPlugin(t *testing.T, opts ...bridge.Option) (*bridge.Plugin, *events.Broker) {
	t.Helper()
	broker := events.NewBroker(4, zerolog.Nop())
	t.Cleanup(broker.Close)
	return bridge.NewPlugin(client.New(), broker, opts...), broker
}

func initialize(t *testing.T, p *bridge.Plugin, baseURL string) {
	t.Helper()
	_, err := p.Handle(context.Background(), bridge.MethodCall{
		Method:    bridge.MethodInitialize,
		Arguments: map[string]any{"apiKey": "k", "baseUrl": baseURL},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func bridgeError(t *testing.T, err error) *bridge.Error {
	t.Helper()
	var be *bridge.Error
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *bridge.Error", err)
	}
	return be
}

func TestHandle_NotInitialized(t *testing.T) {
	p, _ := newPlugin(t)
	_, err := p.Handle(context.Background(), bridge.MethodCall{
		Method:    bridge.MethodCreateLink,
		Arguments: map[string]any{"slug": "abc", "target": "https://x.test"},
	})
	be := bridgeError(t, err)
	if be.Code != bridge.CodeInvalidConfig || be.Message != "Plugin not properly initialized" {
		t.Errorf("error = %+v", be)
	}
	if !errors.Is(err, client.ErrNotConfigured) {
		t.Errorf("error does not unwrap to ErrNotConfigured")
	}
}

func TestHandle_InitializeValidation(t *testing.T) {
	p, _ := newPlugin(t)
	for _, args := range []map[string]any{
		{},
		{"apiKey": "k"},
		{"baseUrl": "https://api.test"},
		{"apiKey": "", "baseUrl": "https://api.test"},
	} {
		_, err := p.Handle(context.Background(), bridge.MethodCall{Method: bridge.MethodInitialize, Arguments: args})
		be := bridgeError(t, err)
		if be.Code != bridge.CodeInvalidConfig || be.Message != "API key and base URL are required" {
			t.Errorf("args %v: error = %+v", args, be)
		}
	}
}

func TestHandle_InvalidParams(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	p, _ := newPlugin(t)
	initialize(t, p, api.URL)

	tests := []struct {
		method string
		args   map[string]any
		msg    string
	}{
		{bridge.MethodCreateLink, map[string]any{"slug": "abc"}, "Slug and target are required"},
		{bridge.MethodCreateLink, map[string]any{"slug": "abc", "target": "x", "metadata": "nope"}, "Metadata must be an object"},
		{bridge.MethodCreateTempLink, map[string]any{"slug": "abc"}, "Target is required"},
		{bridge.MethodCreateTempLink, map[string]any{"target": "x", "ttlSeconds": "soon"}, "ttlSeconds must be a number"},
		{bridge.MethodUpdateLink, map[string]any{"target": "x"}, "Slug and target are required"},
		{bridge.MethodDeleteLink, nil, "Slug is required"},
	}
	for _, tt := range tests {
		_, err := p.Handle(context.Background(), bridge.MethodCall{Method: tt.method, Arguments: tt.args})
		be := bridgeError(t, err)
		if be.Code != bridge.CodeInvalidParams || be.Message != tt.msg {
			t.Errorf("%s %v: error = %+v, want %q", tt.method, tt.args, be, tt.msg)
		}
	}
	if n := len(api.requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestHandle_CreateTempLinkCoercesTTL(t *testing.T) {
	api := newFakeAPI(t, http.StatusCreated, `{"slug":"flash","ttlSeconds":60}`)
	p, _ := newPlugin(t)
	initialize(t, p, api.URL)

	for _, ttl := range []any{60, int64(60), float64(60), "60"} {
		v, err := p.Handle(context.Background(), bridge.MethodCall{
			Method:    bridge.MethodCreateTempLink,
			Arguments: map[string]any{"target": "https://x.test", "slug": "flash", "ttlSeconds": ttl},
		})
		if err != nil {
			t.Fatalf("ttl %T: %v", ttl, err)
		}
		if rec, ok := v.(map[string]any); !ok || rec["slug"] != "flash" {
			t.Errorf("ttl %T: result = %#v", ttl, v)
		}
	}
	for _, req := range api.requests() {
		if req.body["ttlSeconds"] != float64(60) {
			t.Errorf("ttlSeconds sent = %v, want 60", req.body["ttlSeconds"])
		}
	}
}

func TestHandle_CreateLinkSendsMetadata(t *testing.T) {
	api := newFakeAPI(t, http.StatusCreated, `{"slug":"abc"}`)
	p, _ := newPlugin(t)
	initialize(t, p, api.URL)

	_, err := p.Handle(context.Background(), bridge.MethodCall{
		Method: bridge.MethodCreateLink,
		Arguments: map[string]any{
			"slug": "abc", "target": "https://x.test",
			"metadata": map[string]any{"campaign": "spring"},
		},
	})
	if err != nil {
		t.Fatalf("createLink: %v", err)
	}
	reqs := api.requests()
	if len(reqs) != 1 || reqs[0].method != http.MethodPost || reqs[0].path != "/api/v1/links" {
		t.Fatalf("requests = %+v", reqs)
	}
	md, _ := reqs[0].body["metadata"].(map[string]any)
	if md["campaign"] != "spring" {
		t.Errorf("metadata sent = %v", reqs[0].body["metadata"])
	}
}

func TestHandle_ErrorCodes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		call    bridge.MethodCall
		code    string
		message string
	}{
		{
			name:   "api error keeps body and status",
			status: http.StatusNotFound, body: "not found",
			call:    bridge.MethodCall{Method: bridge.MethodUpdateLink, Arguments: map[string]any{"slug": "abc", "target": "https://y.test"}},
			code:    bridge.CodeAPIError,
			message: "Failed to update link: not found",
		},
		{
			name:   "api error with empty body",
			status: http.StatusInternalServerError,
			call:   bridge.MethodCall{Method: bridge.MethodDeleteLink, Arguments: map[string]any{"slug": "abc"}},
			code:   bridge.CodeAPIError, message: "Failed to delete link: HTTP 500",
		},
		{
			name:   "malformed success body",
			status: http.StatusOK, body: `{"broken"`,
			call: bridge.MethodCall{Method: bridge.MethodGetLinks},
			code: bridge.CodeParseError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, tt.status, tt.body)
			p, _ := newPlugin(t)
			initialize(t, p, api.URL)

			_, err := p.Handle(context.Background(), tt.call)
			be := bridgeError(t, err)
			if be.Code != tt.code {
				t.Errorf("code = %s, want %s", be.Code, tt.code)
			}
			if tt.message != "" && be.Message != tt.message {
				t.Errorf("message = %q, want %q", be.Message, tt.message)
			}
			if tt.code == bridge.CodeAPIError && be.Details["statusCode"] != tt.status {
				t.Errorf("details = %v, want statusCode %d", be.Details, tt.status)
			}
		})
	}
}

func TestHandle_NetworkError(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, "")
	url := api.URL
	api.Close()

	p, _ := newPlugin(t)
	initialize(t, p, url)
	_, err := p.Handle(context.Background(), bridge.MethodCall{Method: bridge.MethodGetLinks})
	if be := bridgeError(t, err); be.Code != bridge.CodeNetworkError {
		t.Errorf("code = %s, want NETWORK_ERROR", be.Code)
	}
}

func TestHandle_GetLinks(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `[{"slug":"a"},{"slug":"b"}]`)
	p, _ := newPlugin(t)
	initialize(t, p, api.URL)

	v, err := p.Handle(context.Background(), bridge.MethodCall{Method: bridge.MethodGetLinks})
	if err != nil {
		t.Fatalf("getLinks: %v", err)
	}
	list, ok := v.([]map[string]any)
	if !ok || len(list) != 2 || list[0]["slug"] != "a" {
		t.Errorf("result = %#v", v)
	}
}

func TestHandle_NotImplemented(t *testing.T) {
	p, _ := newPlugin(t)
	_, err := p.Handle(context.Background(), bridge.MethodCall{Method: "shareLink"})
	if be := bridgeError(t, err); be.Code != bridge.CodeNotImplemented {
		t.Errorf("code = %s, want NOT_IMPLEMENTED", be.Code)
	}
}

func TestGetInitialLink(t *testing.T) {
	p, _ := newPlugin(t)
	call := bridge.MethodCall{Method: bridge.MethodGetInitialLink}

	v, err := p.Handle(context.Background(), call)
	if err != nil || v != nil {
		t.Fatalf("no launch link: %v, %v; want nil", v, err)
	}

	p.SetInitialURL("https://example.com/foo")
	if v, _ := p.Handle(context.Background(), call); v != nil {
		t.Errorf("non-service launch link = %v, want nil", v)
	}

	p.SetInitialURL("https://alice.redirectly.app/promo")
	for i := 0; i < 2; i++ {
		v, _ := p.Handle(context.Background(), call)
		m, ok := v.(map[string]any)
		if !ok || m["username"] != "alice" || m["slug"] != "promo" || m["error"] != nil {
			t.Errorf("call %d: result = %#v", i, v)
		}
	}
}

func TestOpenURL_Publishes(t *testing.T) {
	p, broker := newPlugin(t)
	ch := broker.Subscribe(context.Background())

	if _, ok := p.OpenURL("https://example.com/promo"); ok {
		t.Error("non-service URL reported as service link")
	}

	link, ok := p.OpenURL("http://localhost:3000?user=bob/sale")
	if !ok || link.Username != "bob" || link.Slug != "sale" {
		t.Fatalf("OpenURL = %+v, %v", link, ok)
	}
	select {
	case got := <-ch:
		if got.Slug != "sale" {
			t.Errorf("published %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	link, ok = p.OpenURL("https://redirectly.app/promo")
	if !ok || link.OK() {
		t.Errorf("malformed service link = %+v, %v; want published failure", link, ok)
	}
	select {
	case got := <-ch:
		if got.Error == nil {
			t.Errorf("published %+v, want failure", got)
		}
	case <-time.After(time.Second):
		t.Fatal("failure not published")
	}
}

func TestHandleAsync_UsesExecutor(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `[]`)

	var mu sync.Mutex
	executed := 0
	exec := func(f func()) {
		mu.Lock()
		executed++
		mu.Unlock()
		f()
	}
	p, _ := newPlugin(t, bridge.WithExecutor(exec), bridge.WithConcurrency(2))
	initialize(t, p, api.URL)

	const calls = 5
	var wg sync.WaitGroup
	wg.Add(calls)
	for i := 0; i < calls; i++ {
		p.HandleAsync(context.Background(), bridge.MethodCall{Method: bridge.MethodGetLinks}, func(v any, err error) {
			defer wg.Done()
			if err != nil {
				t.Errorf("async getLinks: %v", err)
			}
		})
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if executed != calls {
		t.Errorf("executor ran %d continuations, want %d", executed, calls)
	}
}

func TestHandleAsync_SurvivesCallerCancel(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `[]`)
	p, _ := newPlugin(t)
	initialize(t, p, api.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	p.HandleAsync(ctx, bridge.MethodCall{Method: bridge.MethodGetLinks}, func(_ any, err error) { done <- err })
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("err = %v, want request to complete", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
}

func TestHandle_UnknownMethodsShareOneSeries(t *testing.T) {
	p, _ := newPlugin(t)
	before := testutil.CollectAndCount(metrics.BridgeCallsTotal)

	for i := 0; i < 50; i++ {
		_, _ = p.Handle(context.Background(), bridge.MethodCall{Method: fmt.Sprintf("made-up-%d", i)})
	}

	if got := testutil.CollectAndCount(metrics.BridgeCallsTotal); got > before+1 {
		t.Errorf("series = %d after unknown methods, want at most %d", got, before+1)
	}
}
