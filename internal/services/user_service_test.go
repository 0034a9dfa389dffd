package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fornitori/internal/auth"
	"fornitori/internal/core"
)

func TestUserService_Create(t *testing.T) {
	tiered, _ := newStore(t)
	svc := NewUserService(tiered, "edoardo", testLogger())

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid", username: " mario ", password: "secret1"},
		{name: "duplicate", username: "mario", password: "secret1", wantErr: ErrUsernameTaken},
		{name: "admin name", username: "edoardo", password: "secret1", wantErr: ErrUsernameTaken},
		{name: "short username", username: "ab", password: "secret1", wantErr: ErrUsernameTooShort},
		{name: "short password", username: "luigi", password: "12345", wantErr: ErrPasswordTooShort},
		{name: "long password", username: "luigi", password: strings.Repeat("a", 80), wantErr: auth.ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.Create(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() unexpected error: %v", err)
			}
			if u.Username != "mario" || u.IsAdmin || u.PasswordHash == tt.password {
				t.Fatalf("Create() = %+v", u)
			}
		})
	}
}

func TestUserService_Delete(t *testing.T) {
	tiered, _ := newStore(t)
	ctx := context.Background()
	admin, err := tiered.InsertUser(ctx, core.User{Username: "edoardo", PasswordHash: "x", IsAdmin: true})
	if err != nil {
		t.Fatalf("insert admin: %v", err)
	}
	svc := NewUserService(tiered, "edoardo", testLogger())
	mario, _ := svc.Create(ctx, "mario", "secret1")
	luigi, _ := svc.Create(ctx, "luigi", "secret1")

	actor := auth.Session{Username: "edoardo", IsAdmin: true}
	if err := svc.Delete(ctx, admin.ID, actor); !errors.Is(err, ErrAdminProtected) {
		t.Fatalf("expected ErrAdminProtected, got %v", err)
	}
	if err := svc.Delete(ctx, mario.ID, auth.Session{Username: "mario"}); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
	if err := svc.Delete(ctx, luigi.ID, actor); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	users, _, _ := svc.List(ctx)
	if len(users) != 2 || users[0].Username != "edoardo" || users[1].Username != "mario" {
		t.Fatalf("users after delete = %+v", users)
	}
}

func TestUserService_ChangePassword(t *testing.T) {
	tiered, _ := newStore(t)
	svc := NewUserService(tiered, "edoardo", testLogger())
	ctx := context.Background()
	if _, err := svc.Create(ctx, "mario", "secret1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name    string
		current string
		next    string
		confirm string
		wantErr error
	}{
		{name: "mismatch", current: "secret1", next: "secret2", confirm: "secret3", wantErr: ErrPasswordMismatch},
		{name: "too short", current: "secret1", next: "abc", confirm: "abc", wantErr: ErrPasswordTooShort},
		{name: "too long", current: "secret1", next: strings.Repeat("a", 73), confirm: strings.Repeat("a", 73), wantErr: auth.ErrPasswordTooLong},
		{name: "wrong current", current: "nope", next: "secret2", confirm: "secret2", wantErr: auth.ErrInvalidCredentials},
		{name: "ok", current: "secret1", next: "secret2", confirm: "secret2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ChangePassword(ctx, "mario", tt.current, tt.next, tt.confirm)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ChangePassword() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	u, _ := tiered.FindUser(ctx, "mario")
	if !auth.CheckPassword(u.PasswordHash, "secret2") {
		t.Fatalf("new password not stored")
	}
}
