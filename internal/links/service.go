// Package links composes API client calls into the link and temp-link
// operations of the Redirectly REST API.
package links

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samber/lo"

	"github.com/binSaed/flutter-redirectly/internal/client"
)

// DefaultTempLinkTTL is the temp-link lifetime used when none is given, in seconds.
const DefaultTempLinkTTL = 900

const (
	linksPath     = "/api/v1/links"
	tempLinksPath = "/api/v1/temp-links"
	linkPath      = "/api/links/"
)

var (
	// ErrInvalidParams is returned when a required argument is missing. No
	// request is made.
	ErrInvalidParams = errors.New("invalid params")

	// ErrUnexpectedResponse is returned when the server replies with JSON of
	// the wrong shape for the operation. It matches client.ErrParse.
	ErrUnexpectedResponse = fmt.Errorf("%w: unexpected response shape", client.ErrParse)
)

// Record is a link as returned by the server. Its shape is not validated.
type Record map[string]any

// Requester performs a single API request. *client.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, method, path string, body map[string]any) (any, error)
}

// Service issues link operations through a Requester.
type Service struct {
	api Requester
}

// NewService returns a Service backed by api.
func NewService(api Requester) *Service {
	return &Service{api: api}
}

// CreateLink creates a permanent link. metadata is omitted from the request
// when nil.
func (s *Service) CreateLink(ctx context.Context, slug, target string, metadata map[string]any) (Record, error) {
	if slug == "" || target == "" {
		return nil, fmt.Errorf("%w: slug and target are required", ErrInvalidParams)
	}
	body := compact(map[string]any{
		"slug":     slug,
		"target":   target,
		"metadata": metadata,
	})
	return s.record(ctx, http.MethodPost, linksPath, body)
}

// CreateTempLink creates a link that expires after ttlSeconds. An empty slug
// lets the server pick one; a zero ttlSeconds means DefaultTempLinkTTL.
func (s *Service) CreateTempLink(ctx context.Context, target, slug string, ttlSeconds int) (Record, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: target is required", ErrInvalidParams)
	}
	if ttlSeconds < 0 {
		return nil, fmt.Errorf("%w: ttlSeconds must not be negative", ErrInvalidParams)
	}
	if ttlSeconds == 0 {
		ttlSeconds = DefaultTempLinkTTL
	}
	body := compact(map[string]any{
		"target":     target,
		"slug":       slug,
		"ttlSeconds": ttlSeconds,
	})
	return s.record(ctx, http.MethodPost, tempLinksPath, body)
}

// GetLinks lists the caller's links. An empty response yields no records.
func (s *Service) GetLinks(ctx context.Context) ([]Record, error) {
	v, err := s.api.Request(ctx, http.MethodGet, linksPath, nil)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return []Record{}, nil
	case []map[string]any:
		return lo.Map(t, func(m map[string]any, _ int) Record { return Record(m) }), nil
	default:
		return nil, ErrUnexpectedResponse
	}
}

// UpdateLink points slug at a new target.
func (s *Service) UpdateLink(ctx context.Context, slug, target string) (Record, error) {
	if slug == "" || target == "" {
		return nil, fmt.Errorf("%w: slug and target are required", ErrInvalidParams)
	}
	return s.record(ctx, http.MethodPut, linkPath+url.PathEscape(slug), map[string]any{"target": target})
}

// DeleteLink removes slug.
func (s *Service) DeleteLink(ctx context.Context, slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidParams)
	}
	_, err := s.api.Request(ctx, http.MethodDelete, linkPath+url.PathEscape(slug), nil)
	return err
}

func (s *Service) record(ctx context.Context, method, path string, body map[string]any) (Record, error) {
	v, err := s.api.Request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return Record(t), nil
	default:
		return nil, ErrUnexpectedResponse
	}
}

// compact drops keys whose value is absent: nil, an empty string or a nil map.
func compact(body map[string]any) map[string]any {
	return lo.OmitBy(body, func(_ string, v any) bool {
		switch t := v.(type) {
		case nil:
			return true
		case string:
			return t == ""
		case map[string]any:
			return t == nil
		default:
			return false
		}
	})
}
