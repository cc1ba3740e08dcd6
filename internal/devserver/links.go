package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/binSaed/flutter-redirectly/internal/store"
)

const (
	// DefaultTempTTL applies when a temp-link request omits ttlSeconds.
	DefaultTempTTL = 900 * time.Second

	// MaxTempTTL is the longest temp-link lifetime accepted.
	MaxTempTTL = 7 * 24 * time.Hour
)

// linkResponse is the JSON representation of a link.
type linkResponse struct {
	ID        string         `json:"id"`
	Username  string         `json:"username"`
	Slug      string         `json:"slug"`
	Target    string         `json:"target"`
	URL       string         `json:"url"`
	Metadata  map[string]any `json:"metadata"`
	Temporary bool           `json:"temporary"`
	ExpiresAt *time.Time     `json:"expiresAt"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type createLinkRequest struct {
	Slug     string         `json:"slug"`
	Target   string         `json:"target"`
	Metadata map[string]any `json:"metadata"`
}

type createTempLinkRequest struct {
	Target     string `json:"target"`
	Slug       string `json:"slug"`
	TTLSeconds *int64 `json:"ttlSeconds"`
}

type updateLinkRequest struct {
	Target string `json:"target"`
}

func (s *server) toResponse(l *store.Link) linkResponse {
	md, err := l.MetadataMap()
	if err != nil {
		s.log.Warn().Err(err).Msg("dropping unreadable metadata")
	}
	resp := linkResponse{
		ID:        l.ID,
		Username:  l.Username,
		Slug:      l.Slug,
		Target:    l.Target,
		URL:       fmt.Sprintf("https://%s.%s/%s", l.Username, s.domain, url.PathEscape(l.Slug)),
		Metadata:  md,
		Temporary: l.Temporary(),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.ExpiresAt.Valid {
		t := l.ExpiresAt.Time
		resp.ExpiresAt = &t
	}
	return resp
}

// createLink stores a permanent link for the caller.
//
// @Summary      Create link
// @Tags         Links
// @Accept       json
// @Produce      json
// @Param        body  body      createLinkRequest  true  "Link to create"
// @Success      201   {object}  linkResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Security     BearerToken
// @Router       /v1/links [post]
func (s *server) createLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "bad_request")
		return
	}
	if !s.validate(w, req.Slug, req.Target) {
		return
	}

	link, err := s.links.Create(r.Context(), store.NewLink{
		Username: usernameFrom(r.Context()),
		Slug:     req.Slug,
		Target:   req.Target,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.writeStoreError(w, err, req.Slug)
		return
	}
	s.log.Info().Str("username", link.Username).Str("slug", link.Slug).Msg("link created")
	writeJSON(w, http.StatusCreated, s.toResponse(link))
}

// createTempLink stores a link that expires after ttlSeconds (default 900).
//
// @Summary      Create temporary link
// @Tags         Links
// @Accept       json
// @Produce      json
// @Param        body  body      createTempLinkRequest  true  "Temporary link to create"
// @Success      201   {object}  linkResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Security     BearerToken
// @Router       /v1/temp-links [post]
func (s *server) createTempLink(w http.ResponseWriter, r *http.Request) {
	var req createTempLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "bad_request")
		return
	}
	if err := store.ValidateTarget(req.Target); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_target")
		return
	}
	if req.Slug != "" {
		if err := store.ValidateSlugFormat(req.Slug); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "invalid_slug")
			return
		}
	}

	ttl := DefaultTempTTL
	if req.TTLSeconds != nil && *req.TTLSeconds != 0 {
		maxSeconds := int64(MaxTempTTL / time.Second)
		if *req.TTLSeconds < 0 || *req.TTLSeconds > maxSeconds {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("ttlSeconds must be between 1 and %d", maxSeconds), "invalid_ttl")
			return
		}
		ttl = time.Duration(*req.TTLSeconds) * time.Second
	}

	link, err := s.links.CreateTemp(r.Context(), store.NewLink{
		Username: usernameFrom(r.Context()),
		Slug:     req.Slug,
		Target:   req.Target,
	}, s.now().Add(ttl))
	if err != nil {
		s.writeStoreError(w, err, req.Slug)
		return
	}
	s.log.Info().Str("username", link.Username).Str("slug", link.Slug).Dur("ttl", ttl).Msg("temp link created")
	writeJSON(w, http.StatusCreated, s.toResponse(link))
}

// @Summary      List links
// @Description  Returns the caller's links, oldest first.
// @Tags         Links
// @Produce      json
// @Success      200  {array}   linkResponse
// @Failure      401  {object}  errorBody
// @Security     BearerToken
// @Router       /v1/links [get]
func (s *server) listLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.links.ListByUser(r.Context(), usernameFrom(r.Context()))
	if err != nil {
		s.log.Error().Err(err).Msg("list links")
		writeError(w, http.StatusInternalServerError, "internal server error", "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(links, func(l *store.Link, _ int) linkResponse { return s.toResponse(l) }))
}

// @Summary      Get link
// @Tags         Links
// @Produce      json
// @Param        slug  path      string  true  "Link slug"
// @Success      200   {object}  linkResponse
// @Failure      401   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Security     BearerToken
// @Router       /links/{slug} [get]
func (s *server) getLink(w http.ResponseWriter, r *http.Request) {
	slug := slugParam(r)
	link, err := s.links.GetBySlug(r.Context(), usernameFrom(r.Context()), slug)
	if err != nil {
		s.writeStoreError(w, err, slug)
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse(link))
}

// @Summary      Update link target
// @Tags         Links
// @Accept       json
// @Produce      json
// @Param        slug  path      string             true  "Link slug"
// @Param        body  body      updateLinkRequest  true  "New target"
// @Success      200   {object}  linkResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Security     BearerToken
// @Router       /links/{slug} [put]
func (s *server) updateLink(w http.ResponseWriter, r *http.Request) {
	slug := slugParam(r)
	var req updateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "bad_request")
		return
	}
	if err := store.ValidateTarget(req.Target); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_target")
		return
	}

	link, err := s.links.UpdateTarget(r.Context(), usernameFrom(r.Context()), slug, req.Target)
	if err != nil {
		s.writeStoreError(w, err, slug)
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse(link))
}

// @Summary      Delete link
// @Tags         Links
// @Param        slug  path  string  true  "Link slug"
// @Success      204
// @Failure      401   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Security     BearerToken
// @Router       /links/{slug} [delete]
func (s *server) deleteLink(w http.ResponseWriter, r *http.Request) {
	slug := slugParam(r)
	if err := s.links.Delete(r.Context(), usernameFrom(r.Context()), slug); err != nil {
		s.writeStoreError(w, err, slug)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validate writes a 400 and returns false when slug or target is unusable.
func (s *server) validate(w http.ResponseWriter, slug, target string) bool {
	if err := store.ValidateSlugFormat(slug); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_slug")
		return false
	}
	if err := store.ValidateTarget(target); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_target")
		return false
	}
	return true
}

func (s *server) writeStoreError(w http.ResponseWriter, err error, slug string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "link not found", "not_found")
	case errors.Is(err, store.ErrSlugTaken):
		writeError(w, http.StatusConflict, err.Error(), "slug_taken")
	default:
		s.log.Error().Err(err).Str("slug", slug).Msg("link store")
		writeError(w, http.StatusInternalServerError, "internal server error", "internal_error")
	}
}

// slugParam returns the decoded {slug} path parameter.
func slugParam(r *http.Request) string {
	raw := chi.URLParam(r, "slug")
	if slug, err := url.PathUnescape(raw); err == nil {
		return slug
	}
	return raw
}
