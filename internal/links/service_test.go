package links_test

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/binSaed/flutter-redirectly/internal/client"
	"github.com/binSaed/flutter-redirectly/internal/links"
)

type call struct {
	method string
	path   string
	body   map[string]any
}

// fakeRequester records calls and replies with a canned result.
type fakeRequester struct {
	calls  []call
	result any
	err    error
}

func (f *fakeRequester) Request(ctx context.Context, method, path string, body map[string]any) (any, error) {
	f.calls = append(f.calls, call{method: method, path: path, body: body})
	return f.result, f.err
}

func TestService_Requests(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *links.Service) error
		want call
	}{
		{
			name: "create link",
			run: func(s *links.Service) error {
				_, err := s.CreateLink(context.Background(), "abc", "https://x.test", nil)
				return err
			},
			want: call{http.MethodPost, "/api/v1/links", map[string]any{"slug": "abc", "target": "https://x.test"}},
		},
		{
			name: "create link with metadata",
			run: func(s *links.Service) error {
				_, err := s.CreateLink(context.Background(), "abc", "https://x.test", map[string]any{"campaign": "spring"})
				return err
			},
			want: call{http.MethodPost, "/api/v1/links", map[string]any{
				"slug": "abc", "target": "https://x.test", "metadata": map[string]any{"campaign": "spring"},
			}},
		},
		{
			name: "create temp link defaults",
			run: func(s *links.Service) error {
				_, err := s.CreateTempLink(context.Background(), "https://x.test", "", 0)
				return err
			},
			want: call{http.MethodPost, "/api/v1/temp-links", map[string]any{"target": "https://x.test", "ttlSeconds": 900}},
		},
		{
			name: "create temp link with slug and ttl",
			run: func(s *links.Service) error {
				_, err := s.CreateTempLink(context.Background(), "https://x.test", "flash", 60)
				return err
			},
			want: call{http.MethodPost, "/api/v1/temp-links", map[string]any{"target": "https://x.test", "slug": "flash", "ttlSeconds": 60}},
		},
		{
			name: "get links",
			run: func(s *links.Service) error {
				_, err := s.GetLinks(context.Background())
				return err
			},
			want: call{http.MethodGet, "/api/v1/links", nil},
		},
		{
			name: "update link",
			run: func(s *links.Service) error {
				_, err := s.UpdateLink(context.Background(), "abc", "https://y.test")
				return err
			},
			want: call{http.MethodPut, "/api/links/abc", map[string]any{"target": "https://y.test"}},
		},
		{
			name: "update link escapes slug",
			run: func(s *links.Service) error {
				_, err := s.UpdateLink(context.Background(), "a b/c", "https://y.test")
				return err
			},
			want: call{http.MethodPut, "/api/links/a%20b%2Fc", map[string]any{"target": "https://y.test"}},
		},
		{
			name: "delete link",
			run: func(s *links.Service) error {
				return s.DeleteLink(context.Background(), "abc")
			},
			want: call{http.MethodDelete, "/api/links/abc", nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRequester{}
			if err := tt.run(links.NewService(f)); err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(f.calls) != 1 {
				t.Fatalf("calls = %d, want 1", len(f.calls))
			}
			if !reflect.DeepEqual(f.calls[0], tt.want) {
				t.Errorf("call = %#v\nwant   %#v", f.calls[0], tt.want)
			}
		})
	}
}

func TestService_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *links.Service) error
	}{
		{name: "create link without slug", run: func(s *links.Service) error {
			_, err := s.CreateLink(context.Background(), "", "https://x.test", nil)
			return err
		}},
		{name: "create link without target", run: func(s *links.Service) error {
			_, err := s.CreateLink(context.Background(), "abc", "", nil)
			return err
		}},
		{name: "temp link without target", run: func(s *links.Service) error {
			_, err := s.CreateTempLink(context.Background(), "", "abc", 60)
			return err
		}},
		{name: "temp link with negative ttl", run: func(s *links.Service) error {
			_, err := s.CreateTempLink(context.Background(), "https://x.test", "", -1)
			return err
		}},
		{name: "update without slug", run: func(s *links.Service) error {
			_, err := s.UpdateLink(context.Background(), "", "https://x.test")
			return err
		}},
		{name: "update without target", run: func(s *links.Service) error {
			_, err := s.UpdateLink(context.Background(), "abc", "")
			return err
		}},
		{name: "delete without slug", run: func(s *links.Service) error {
			return s.DeleteLink(context.Background(), "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRequester{}
			err := tt.run(links.NewService(f))
			if !errors.Is(err, links.ErrInvalidParams) {
				t.Fatalf("err = %v, want ErrInvalidParams", err)
			}
			if len(f.calls) != 0 {
				t.Errorf("calls = %d, want none before validation passes", len(f.calls))
			}
		})
	}
}

func TestService_Results(t *testing.T) {
	ctx := context.Background()

	f := &fakeRequester{result: map[string]any{"slug": "abc"}}
	rec, err := links.NewService(f).CreateLink(ctx, "abc", "https://x.test", nil)
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if rec["slug"] != "abc" {
		t.Errorf("record = %v", rec)
	}

	f = &fakeRequester{result: []map[string]any{{"slug": "a"}, {"slug": "b"}}}
	list, err := links.NewService(f).GetLinks(ctx)
	if err != nil {
		t.Fatalf("GetLinks: %v", err)
	}
	if len(list) != 2 || list[1]["slug"] != "b" {
		t.Errorf("list = %v", list)
	}

	f = &fakeRequester{}
	list, err = links.NewService(f).GetLinks(ctx)
	if err != nil || list == nil || len(list) != 0 {
		t.Errorf("GetLinks on empty body = %v, %v; want empty list", list, err)
	}

	f = &fakeRequester{result: map[string]any{"links": []any{}}}
	if _, err := links.NewService(f).GetLinks(ctx); !errors.Is(err, client.ErrParse) {
		t.Errorf("GetLinks on object = %v, want ErrParse", err)
	}

	f = &fakeRequester{result: []map[string]any{}}
	if _, err := links.NewService(f).UpdateLink(ctx, "abc", "https://x.test"); !errors.Is(err, links.ErrUnexpectedResponse) {
		t.Errorf("UpdateLink on array = %v, want ErrUnexpectedResponse", err)
	}
}

func TestService_PropagatesErrors(t *testing.T) {
	apiErr := &client.APIError{StatusCode: http.StatusConflict, Body: "slug already exists"}
	f := &fakeRequester{err: apiErr}

	_, err := links.NewService(f).CreateLink(context.Background(), "abc", "https://x.test", nil)
	var got *client.APIError
	if !errors.As(err, &got) || got.StatusCode != http.StatusConflict {
		t.Errorf("err = %v, want APIError 409", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("calls = %d, want exactly one attempt", len(f.calls))
	}
}
