package authpw

import (
	"context"
	"errors"
	"testing"
	"time"

	"corkboard/internal/store"
)

type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
	}
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) CreateUser(_ context.Context, user store.User) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}

func (m *mockUserStore) UpdateUserPassword(_ context.Context, userID, passwordHash string) error {
	user, ok := m.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	user.PasswordHash = passwordHash
	m.users[userID] = user
	return nil
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "ann@example.com",
		Password:    "correct horse",
		DisplayName: "Ann",
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected user ID")
	}

	got, err := svc.SignIn(ctx, "ann@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected %s, got %s", user.ID, got.ID)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	req := SignUpRequest{Email: "ann@example.com", Password: "correct horse", DisplayName: "Ann"}
	if _, err := svc.SignUp(ctx, req); err != nil {
		t.Fatalf("first SignUp failed: %v", err)
	}
	if _, err := svc.SignUp(ctx, req); err == nil {
		t.Error("expected duplicate email error, got nil")
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(newMockUserStore())
	_, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "ann@example.com",
		Password:    "short",
		DisplayName: "Ann",
	})
	if err == nil {
		t.Error("expected error for short password, got nil")
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "ann@example.com", Password: "correct horse", DisplayName: "Ann"}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if _, err := svc.SignIn(ctx, "ann@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSignInDeactivatedUser(t *testing.T) {
	mock := newMockUserStore()
	svc := NewService(mock)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{Email: "ann@example.com", Password: "correct horse", DisplayName: "Ann"})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	now := time.Now()
	user.DeactivatedAt = &now
	mock.users[user.ID] = user

	if _, err := svc.SignIn(ctx, "ann@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for deactivated user, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{Email: "ann@example.com", Password: "correct horse", DisplayName: "Ann"})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "wrong", "new password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "correct horse", "new password"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := svc.SignIn(ctx, "ann@example.com", "new password"); err != nil {
		t.Errorf("SignIn with new password failed: %v", err)
	}
	if _, err := svc.SignIn(ctx, "ann@example.com", "correct horse"); err == nil {
		t.Error("old password still accepted after change")
	}
}
