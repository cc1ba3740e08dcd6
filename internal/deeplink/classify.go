package deeplink

import (
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultDomain is the production domain; links look like
	// https://<username>.redirectly.app/<slug>.
	DefaultDomain = "redirectly.app"

	// DefaultDevHost is the development host; links look like
	// http://localhost:3000?user=<username>/<slug>.
	DefaultDevHost = "localhost"

	userParam = "user"
)

const (
	msgInvalidURL      = "Invalid URL format"
	msgNoUserParam     = "No user parameter in localhost URL"
	msgInvalidDevURL   = "Invalid development URL format"
	msgUnrecognizedURL = "Unrecognized URL format"
)

// Classifier resolves opened URIs. The zero value is not usable; build one
// with New.
type Classifier struct {
	domain  string
	devHost string
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithDomain overrides the production domain. An empty domain is ignored.
func WithDomain(domain string) Option {
	return func(c *Classifier) {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			c.domain = d
		}
	}
}

// WithDevHost overrides the development host. An empty host is ignored.
func WithDevHost(host string) Option {
	return func(c *Classifier) {
		if h := strings.ToLower(strings.TrimSpace(host)); h != "" {
			c.devHost = h
		}
	}
}

// WithLogger sets the logger used for resolution diagnostics. Diagnostics are
// emitted at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Classifier) { c.log = l }
}

// WithClock sets the time source for ReceivedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// New returns a Classifier for the production domain and development host.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		domain:  DefaultDomain,
		devHost: DefaultDevHost,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClassifier = New()

// Classify resolves uri with the default classifier.
func Classify(uri string) ResolvedLink {
	return defaultClassifier.Classify(uri)
}

// IsServiceLink reports whether uri belongs to the service, using the
// default classifier.
func IsServiceLink(uri string) bool {
	return defaultClassifier.IsServiceLink(uri)
}

// IsServiceLink reports whether uri is worth classifying: its host is on the
// production domain, or it is a development host carrying a user parameter.
// A true result does not guarantee Classify succeeds.
func (c *Classifier) IsServiceLink(uri string) bool {
	u, host, ok := c.parse(uri)
	if !ok {
		return false
	}
	if strings.Contains(host, c.domain) {
		return true
	}
	if strings.Contains(host, c.devHost) {
		_, present := u.Query()[userParam]
		return present
	}
	return false
}

// Classify extracts the username and slug from uri. Rules are tried in order:
// production domain, development host, then anything else is unrecognized.
// Failures are reported on the returned link, never as an error.
func (c *Classifier) Classify(uri string) ResolvedLink {
	u, host, ok := c.parse(uri)
	if !ok {
		return c.failure(uri, KindUnrecognizedFormat, msgUnrecognizedURL)
	}

	var username, slug string
	switch {
	case strings.Contains(host, c.domain):
		labels := strings.Split(host, ".")
		segments := pathSegments(u.Path)
		if len(labels) < 3 || len(segments) == 0 {
			return c.failure(uri, KindInvalidFormat, msgInvalidURL)
		}
		username, slug = labels[0], segments[0]

	case strings.Contains(host, c.devHost):
		values, present := u.Query()[userParam]
		if !present {
			return c.failure(uri, KindInvalidFormat, msgNoUserParam)
		}
		var value string
		if len(values) > 0 {
			value = values[0]
		}
		parts := strings.Split(value, "/")
		if len(parts) != 2 {
			return c.failure(uri, KindInvalidFormat, msgInvalidDevURL)
		}
		username, slug = parts[0], parts[1]

	default:
		return c.failure(uri, KindUnrecognizedFormat, msgUnrecognizedURL)
	}

	c.log.Debug().
		Str("username", username).
		Str("slug", slug).
		Msg("processing redirectly link")

	return ResolvedLink{
		OriginalURL: uri,
		Slug:        slug,
		Username:    username,
		ReceivedAt:  c.now().UnixMilli(),
	}
}

func (c *Classifier) parse(uri string) (*url.URL, string, bool) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return nil, "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, "", false
	}
	return u, host, true
}

func (c *Classifier) failure(uri string, kind ErrorKind, msg string) ResolvedLink {
	return ResolvedLink{
		OriginalURL: uri,
		Slug:        Unknown,
		Username:    Unknown,
		Error: &LinkError{
			Message: msg,
			Type:    ErrorTypeLinkResolution,
			Kind:    kind,
		},
		ReceivedAt: c.now().UnixMilli(),
	}
}

// pathSegments splits a decoded path into its non-empty segments.
func pathSegments(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}
