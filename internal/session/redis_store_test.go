package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"corkboard/internal/store"
)

type fakeUsers struct {
	byID map[string]store.User
}

func (f *fakeUsers) GetUserByID(_ context.Context, userID string) (store.User, error) {
	if u, ok := f.byID[userID]; ok {
		return u, nil
	}
	return store.User{}, context.Canceled
}

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rs, err := NewRedisStore("redis://"+s.Addr(), nil)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return rs, s
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	rs, s := setupTestRedis(t)
	defer rs.Close()
	defer s.Close()

	ctx := context.Background()
	err := rs.SaveRefreshSession(ctx, "hash-1", "user-123", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	user, err := rs.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if user.ID != "user-123" {
		t.Errorf("expected user-123, got %s", user.ID)
	}
}

func TestLookupResolvesFullUser(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	users := &fakeUsers{byID: map[string]store.User{
		"user-123": {ID: "user-123", Email: "ann@example.com", DisplayName: "Ann"},
	}}
	rs, err := NewRedisStore("redis://"+s.Addr(), users)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer rs.Close()

	ctx := context.Background()
	if err := rs.SaveRefreshSession(ctx, "hash-1", "user-123", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	user, err := rs.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if user.DisplayName != "Ann" || user.Email != "ann@example.com" {
		t.Errorf("expected resolved profile, got %+v", user)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	rs, s := setupTestRedis(t)
	defer rs.Close()
	defer s.Close()

	ctx := context.Background()
	if err := rs.SaveRefreshSession(ctx, "expired", "user-456", time.Now().Add(time.Millisecond)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	s.FastForward(2 * time.Millisecond)

	if _, err := rs.LookupRefreshSession(ctx, "expired"); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	rs, s := setupTestRedis(t)
	defer rs.Close()
	defer s.Close()

	ctx := context.Background()
	if err := rs.SaveRefreshSession(ctx, "hash-r", "user-789", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if err := rs.RevokeRefreshSession(ctx, "hash-r"); err != nil {
		t.Fatalf("RevokeRefreshSession failed: %v", err)
	}
	if _, err := rs.LookupRefreshSession(ctx, "hash-r"); err == nil {
		t.Error("expected error for revoked token, got nil")
	}

	// Revoking an unknown token is not an error.
	if err := rs.RevokeRefreshSession(ctx, "never-existed"); err != nil {
		t.Errorf("RevokeRefreshSession for unknown token failed: %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	rs, s := setupTestRedis(t)
	defer rs.Close()
	defer s.Close()

	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)
	if err := rs.SaveRefreshSession(ctx, "token-1", "user-1", expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if err := rs.SaveRefreshSession(ctx, "token-2", "user-2", expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	if err := rs.RevokeRefreshSession(ctx, "token-1"); err != nil {
		t.Fatalf("Revoke token-1 failed: %v", err)
	}
	if _, err := rs.LookupRefreshSession(ctx, "token-1"); err == nil {
		t.Error("expected error for revoked token-1, got nil")
	}
	user, err := rs.LookupRefreshSession(ctx, "token-2")
	if err != nil {
		t.Fatalf("Lookup token-2 failed: %v", err)
	}
	if user.ID != "user-2" {
		t.Errorf("expected user-2, got %s", user.ID)
	}
}
