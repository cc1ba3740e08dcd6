// Package build exposes build-time metadata injected via ldflags.
package build

// Version, Commit, and Branch are set at build time by:
//
//	-ldflags "-X github.com/binSaed/flutter-redirectly/internal/build.Version=... ..."
var (
	Version = "dev"
	Commit  = "unknown"
	Branch  = "unknown"
)

// UserAgent is the User-Agent header sent by the API client.
func UserAgent() string {
	return "redirectly-go/" + Version
}
