package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/binSaed/flutter-redirectly/internal/testutil"
)

func TestGenerateKey(t *testing.T) {
	plaintext, hash, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if !strings.HasPrefix(plaintext, KeyPrefix) {
		t.Errorf("key %q lacks prefix %q", plaintext, KeyPrefix)
	}
	if len(hash) != 64 || hash != HashKey(plaintext) {
		t.Errorf("hash = %q", hash)
	}
	other, _, _ := GenerateKey()
	if other == plaintext {
		t.Error("two generated keys are equal")
	}
}

func TestKeyStore(t *testing.T) {
	ks := NewKeyStore(testutil.NewTestDB(t))
	ctx := context.Background()

	_, hash, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key, err := ks.Create(ctx, "alice", "laptop", hash)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := ks.GetByHash(ctx, hash)
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if got.ID != key.ID || got.Username != "alice" || got.RevokedAt.Valid {
		t.Errorf("key = %+v", got)
	}
	if _, err := ks.GetByHash(ctx, HashKey("rdk_nope")); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByHash unknown = %v, want ErrNotFound", err)
	}

	if err := ks.UpdateLastUsed(ctx, key.ID); err != nil {
		t.Fatalf("UpdateLastUsed: %v", err)
	}
	list, err := ks.ListByUser(ctx, "alice")
	if err != nil || len(list) != 1 || !list[0].LastUsedAt.Valid {
		t.Errorf("ListByUser = %+v, %v", list, err)
	}

	if err := ks.Revoke(ctx, key.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := ks.Revoke(ctx, key.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Revoke = %v, want ErrNotFound", err)
	}
	got, _ = ks.GetByHash(ctx, hash)
	if !got.RevokedAt.Valid {
		t.Error("revoked key has no revoked_at")
	}
}
