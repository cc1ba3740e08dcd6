// Package deeplink classifies URIs opened by the operating system and
// extracts the Redirectly username and slug they point at.
package deeplink

// Unknown is the placeholder slug and username of a link that failed to resolve.
const Unknown = "unknown"

// ErrorType is the numeric error category sent to host applications in the
// "type" field of an error payload.
type ErrorType int

const (
	ErrorTypeNetwork ErrorType = iota
	ErrorTypeAPI
	ErrorTypeConfiguration
	ErrorTypeLinkResolution
	ErrorTypeInvalidParams
	ErrorTypeParse
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeAPI:
		return "api"
	case ErrorTypeConfiguration:
		return "configuration"
	case ErrorTypeLinkResolution:
		return "linkResolution"
	case ErrorTypeInvalidParams:
		return "invalidParams"
	case ErrorTypeParse:
		return "parse"
	default:
		return "unknown"
	}
}

// ErrorKind says why a URI could not be resolved.
type ErrorKind string

const (
	// KindInvalidFormat means the host was recognized but the URI is missing
	// the username or slug.
	KindInvalidFormat ErrorKind = "invalidFormat"

	// KindUnrecognizedFormat means the host does not belong to the service.
	KindUnrecognizedFormat ErrorKind = "unrecognizedFormat"
)

// LinkError describes a failed classification. It is carried as data on a
// ResolvedLink and never returned as a Go error.
type LinkError struct {
	Message    string    `json:"message"`
	Type       ErrorType `json:"type"`
	Kind       ErrorKind `json:"kind"`
	StatusCode *int      `json:"statusCode"`
}

// ResolvedLink is the result of classifying one URI.
type ResolvedLink struct {
	OriginalURL string     `json:"originalUrl"`
	Slug        string     `json:"slug"`
	Username    string     `json:"username"`
	LinkDetails any        `json:"linkDetails"`
	Error       *LinkError `json:"error"`
	ReceivedAt  int64      `json:"receivedAt"`
}

// OK reports whether the link resolved to a username and slug.
func (l ResolvedLink) OK() bool {
	return l.Error == nil
}

// Map converts the link to the loosely typed form host channels expect.
func (l ResolvedLink) Map() map[string]any {
	m := map[string]any{
		"originalUrl": l.OriginalURL,
		"slug":        l.Slug,
		"username":    l.Username,
		"linkDetails": l.LinkDetails,
		"error":       nil,
		"receivedAt":  l.ReceivedAt,
	}
	if l.Error != nil {
		var status any
		if l.Error.StatusCode != nil {
			status = *l.Error.StatusCode
		}
		m["error"] = map[string]any{
			"message":    l.Error.Message,
			"type":       int(l.Error.Type),
			"kind":       string(l.Error.Kind),
			"statusCode": status,
		}
	}
	return m
}
