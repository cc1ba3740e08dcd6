package store

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

var (
	// ErrSlugInvalid is returned when a slug does not match the required pattern.
	ErrSlugInvalid = errors.New("slug must be 1-64 characters of [A-Za-z0-9_-]")

	// ErrSlugReserved is returned when a slug shadows a server route.
	ErrSlugReserved = errors.New("slug is reserved and cannot be used")

	// ErrSlugTaken is returned when the user already has a link with the slug.
	ErrSlugTaken = errors.New("slug already exists")

	// ErrTargetInvalid is returned when a target is not an absolute http(s) URL.
	ErrTargetInvalid = errors.New("target must be an absolute http or https URL")

	// ErrUsernameInvalid is returned when a username cannot be used as the
	// leftmost label of a link host.
	ErrUsernameInvalid = errors.New("username must match [a-z0-9][a-z0-9-]*[a-z0-9] and be at most 63 characters")

	slugRe     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	usernameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?$`)

	reservedSlugs = map[string]bool{
		"api":     true,
		"healthz": true,
		"metrics": true,
		"swagger": true,
	}
)

// ValidateSlugFormat checks that slug is well formed and not reserved. It does
// NOT check uniqueness; the unique index on (username, slug) does.
func ValidateSlugFormat(slug string) error {
	if !slugRe.MatchString(slug) {
		return ErrSlugInvalid
	}
	if reservedSlugs[slug] {
		return fmt.Errorf("%w: %q", ErrSlugReserved, slug)
	}
	return nil
}

// ValidateTarget checks that target is an absolute http or https URL.
func ValidateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return ErrTargetInvalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrTargetInvalid
	}
	return nil
}

// ValidateUsername checks that username is a valid DNS label.
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}
