package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// KeyPrefix starts every dev server API key.
const KeyPrefix = "rdk_"

// APIKey represents a row in the api_keys table.
type APIKey struct {
	ID         string       `db:"id"`
	Username   string       `db:"username"`
	Name       string       `db:"name"`
	KeyHash    string       `db:"key_hash"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	CreatedAt  time.Time    `db:"created_at"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
}

// KeyStore is the sqlx-backed API key repository. Only key hashes are stored.
type KeyStore struct {
	db *sqlx.DB
}

func NewKeyStore(db *sqlx.DB) *KeyStore {
	return &KeyStore{db: db}
}

func (s *KeyStore) q(query string) string { return s.db.Rebind(query) }

// Create stores a key hash for username.
func (s *KeyStore) Create(ctx context.Context, username, name, keyHash string) (*APIKey, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO api_keys (id, username, name, key_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), id, username, name, keyHash, now)
	if err != nil {
		return nil, err
	}

	var k APIKey
	if err := s.db.GetContext(ctx, &k, s.q(`SELECT * FROM api_keys WHERE id = ?`), id); err != nil {
		return nil, err
	}
	return &k, nil
}

// GetByHash returns the key matching hash, or ErrNotFound.
func (s *KeyStore) GetByHash(ctx context.Context, hash string) (*APIKey, error) {
	var k APIKey
	err := s.db.GetContext(ctx, &k, s.q(`SELECT * FROM api_keys WHERE key_hash = ?`), hash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// ListByUser returns the user's keys, newest first.
func (s *KeyStore) ListByUser(ctx context.Context, username string) ([]*APIKey, error) {
	keys := []*APIKey{}
	err := s.db.SelectContext(ctx, &keys, s.q(`
		SELECT * FROM api_keys WHERE username = ? ORDER BY created_at DESC
	`), username)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Revoke marks a key as revoked. It returns ErrNotFound if no unrevoked key
// has the id.
func (s *KeyStore) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL
	`), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastUsed records that the key authenticated a request.
func (s *KeyStore) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE api_keys SET last_used_at = ? WHERE id = ?`), time.Now().UTC(), id)
	return err
}

// GenerateKey returns a new plaintext key and its hash. The plaintext is
// shown once and never stored.
func GenerateKey() (plaintext, hash string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return
	}
	plaintext = KeyPrefix + encodeBase62(b)
	hash = HashKey(plaintext)
	return
}

// HashKey returns the hex SHA-256 of plaintext.
func HashKey(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
