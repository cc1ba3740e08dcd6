package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TempSlugLength is the length of slugs generated for temp links.
const TempSlugLength = 8

// Link represents a row in the links table.
type Link struct {
	ID        string         `db:"id"`
	Username  string         `db:"username"`
	Slug      string         `db:"slug"`
	Target    string         `db:"target"`
	Metadata  sql.NullString `db:"metadata"`
	ExpiresAt sql.NullTime   `db:"expires_at"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// Temporary reports whether the link has an expiry.
func (l *Link) Temporary() bool {
	return l.ExpiresAt.Valid
}

// Expired reports whether the link had expired at now.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt.Valid && !now.Before(l.ExpiresAt.Time)
}

// MetadataMap decodes the stored metadata. It returns nil when none was set.
func (l *Link) MetadataMap() (map[string]any, error) {
	if !l.Metadata.Valid || l.Metadata.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(l.Metadata.String), &m); err != nil {
		return nil, fmt.Errorf("decode metadata for %s/%s: %w", l.Username, l.Slug, err)
	}
	return m, nil
}

// NewLink holds the fields of a link to insert. A nil ExpiresAt creates a
// permanent link.
type NewLink struct {
	Username  string
	Slug      string
	Target    string
	Metadata  map[string]any
	ExpiresAt *time.Time
}

// LinkStore is the sqlx-backed link repository.
type LinkStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewLinkStore(db *sqlx.DB) *LinkStore {
	return &LinkStore{db: db, now: time.Now}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *LinkStore) q(query string) string { return s.db.Rebind(query) }

// Create inserts a link. It returns ErrSlugTaken when the user already owns
// the slug.
func (s *LinkStore) Create(ctx context.Context, nl NewLink) (*Link, error) {
	var metadata sql.NullString
	if nl.Metadata != nil {
		b, err := json.Marshal(nl.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}
	var exp sql.NullTime
	if nl.ExpiresAt != nil {
		exp = sql.NullTime{Time: nl.ExpiresAt.UTC(), Valid: true}
	}

	id := uuid.New().String()
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO links (id, username, slug, target, metadata, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), id, nl.Username, nl.Slug, nl.Target, metadata, exp, now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: %q", ErrSlugTaken, nl.Slug)
		}
		return nil, err
	}
	return s.getByID(ctx, id)
}

// CreateTemp inserts a link expiring at expiresAt. An empty slug is replaced
// by a random one, retrying on collision.
func (s *LinkStore) CreateTemp(ctx context.Context, nl NewLink, expiresAt time.Time) (*Link, error) {
	nl.ExpiresAt = &expiresAt
	if nl.Slug != "" {
		return s.Create(ctx, nl)
	}

	const attempts = 5
	for i := 0; i < attempts; i++ {
		slug, err := randomBase62(TempSlugLength)
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}
		nl.Slug = slug
		l, err := s.Create(ctx, nl)
		if err == nil || !errors.Is(err, ErrSlugTaken) {
			return l, err
		}
	}
	return nil, fmt.Errorf("%w: no free slug after %d attempts", ErrSlugTaken, attempts)
}

// GetBySlug returns the user's link for slug, or ErrNotFound.
func (s *LinkStore) GetBySlug(ctx context.Context, username, slug string) (*Link, error) {
	var l Link
	err := s.db.GetContext(ctx, &l, s.q(`SELECT * FROM links WHERE username = ? AND slug = ?`), username, slug)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *LinkStore) getByID(ctx context.Context, id string) (*Link, error) {
	var l Link
	err := s.db.GetContext(ctx, &l, s.q(`SELECT * FROM links WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByUser returns the user's links, oldest first.
func (s *LinkStore) ListByUser(ctx context.Context, username string) ([]*Link, error) {
	links := []*Link{}
	err := s.db.SelectContext(ctx, &links, s.q(`
		SELECT * FROM links WHERE username = ? ORDER BY created_at ASC, slug ASC
	`), username)
	if err != nil {
		return nil, err
	}
	return links, nil
}

// UpdateTarget points the user's slug at target. It returns ErrNotFound when
// the link does not exist.
func (s *LinkStore) UpdateTarget(ctx context.Context, username, slug, target string) (*Link, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE links SET target = ?, updated_at = ? WHERE username = ? AND slug = ?
	`), target, now, username, slug)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetBySlug(ctx, username, slug)
}

// Delete removes the user's link. It returns ErrNotFound when there was none.
func (s *LinkStore) Delete(ctx context.Context, username, slug string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM links WHERE username = ? AND slug = ?`), username, slug)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes temp links that expired before cutoff and returns how
// many were removed.
func (s *LinkStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM links WHERE expires_at IS NOT NULL AND expires_at < ?
	`), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
