package bridge_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/binSaed/flutter-redirectly/internal/bridge"
)

func TestRouter_Methods(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `[{"slug":"a"}]`)
	p, broker := newPlugin(t)
	srv := httptest.NewServer(bridge.NewRouter(p, broker))
	defer srv.Close()

	tests := []struct {
		name   string
		method string
		body   string
		status int
		code   string
	}{
		{"getLinks before initialize", "getLinks", "", http.StatusBadRequest, bridge.CodeInvalidConfig},
		{"initialize", "initialize", `{"apiKey":"k","baseUrl":"` + api.URL + `"}`, http.StatusOK, ""},
		{"getLinks", "getLinks", "", http.StatusOK, ""},
		{"bad arguments", "createLink", `[1,2]`, http.StatusBadRequest, bridge.CodeInvalidParams},
		{"unknown method", "shareLink", `{}`, http.StatusNotImplemented, bridge.CodeNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/methods/"+tt.method, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var got map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.code != "" && got["code"] != tt.code {
				t.Errorf("code = %v, want %s", got["code"], tt.code)
			}
			if tt.code == "" {
				if _, ok := got["result"]; !ok {
					t.Errorf("body %v has no result", got)
				}
			}
		})
	}
}

func TestRouter_InitialLink(t *testing.T) {
	p, broker := newPlugin(t)
	p.SetInitialURL("https://alice.redirectly.app/promo")
	srv := httptest.NewServer(bridge.NewRouter(p, broker))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/links/initial")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var got struct {
		Result map[string]any `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Result["slug"] != "promo" {
		t.Errorf("result = %v", got.Result)
	}
}

func TestRouter_EventStream(t *testing.T) {
	p, broker := newPlugin(t)
	srv := httptest.NewServer(bridge.NewRouter(p, broker))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/links/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	open, err := http.Post(srv.URL+"/links/open", "application/json", strings.NewReader(`{"url":"https://alice.redirectly.app/promo"}`))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var opened struct {
		ServiceLink bool `json:"serviceLink"`
	}
	_ = json.NewDecoder(open.Body).Decode(&opened)
	open.Body.Close()
	if !opened.ServiceLink {
		t.Fatal("open did not report a service link")
	}

	sc := bufio.NewScanner(resp.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
		if data != "" {
			break
		}
	}
	if event != "link" {
		t.Errorf("event = %q, want link", event)
	}
	var link map[string]any
	if err := json.Unmarshal([]byte(data), &link); err != nil {
		t.Fatalf("decode event %q: %v", data, err)
	}
	if link["username"] != "alice" || link["slug"] != "promo" {
		t.Errorf("event data = %v", link)
	}
}
