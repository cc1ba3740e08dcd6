package devserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/binSaed/flutter-redirectly/internal/metrics"
	"github.com/binSaed/flutter-redirectly/internal/store"
)

// resolve redirects an opened link to its target. The request URL is
// classified exactly as a mobile host would classify it, so both
// http://localhost:3000?user=<username>/<slug> and
// https://<username>.<domain>/<slug> resolve.
func (s *server) resolve(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	uri := scheme + "://" + r.Host + r.URL.RequestURI()

	link := s.classifier.Classify(uri)
	if !link.OK() {
		s.redirectFailed(w, http.StatusBadRequest, link.Error.Message, string(link.Error.Kind))
		return
	}

	l, err := s.links.GetBySlug(r.Context(), link.Username, link.Slug)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.redirectFailed(w, http.StatusNotFound, "link not found", "not_found")
		return
	case err != nil:
		s.log.Error().Err(err).Str("username", link.Username).Str("slug", link.Slug).Msg("resolve link")
		s.redirectFailed(w, http.StatusInternalServerError, "internal server error", "internal_error")
		return
	}
	if l.Expired(s.now()) {
		s.redirectFailed(w, http.StatusGone, "link expired", "expired")
		return
	}

	metrics.DevRedirectsTotal.WithLabelValues(strconv.Itoa(http.StatusFound)).Inc()
	s.log.Info().Str("username", l.Username).Str("slug", l.Slug).Msg("redirecting link")
	http.Redirect(w, r, l.Target, http.StatusFound)
}

func (s *server) redirectFailed(w http.ResponseWriter, status int, message, code string) {
	metrics.DevRedirectsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	writeError(w, status, message, code)
}
