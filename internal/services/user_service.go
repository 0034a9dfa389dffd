package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"fornitori/internal/auth"
	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/store"
)

// UserService manages accounts. The administrator account is created by the
// login gate and is the only admin; it can never be deleted.
type UserService struct {
	store  *store.Tiered
	admin  string
	logger *applog.Logger
}

func NewUserService(s *store.Tiered, adminUsername string, logger *applog.Logger) *UserService {
	return &UserService{store: s, admin: adminUsername, logger: logger.WithComponent(applog.ComponentUser)}
}

func (s *UserService) List(ctx context.Context) ([]core.User, store.ReadMeta, error) {
	users, meta, err := s.store.Users(ctx)
	if err != nil {
		return nil, meta, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username)
	})
	return users, meta, nil
}

// Create adds a regular (non admin) user.
func (s *UserService) Create(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if len([]rune(username)) < minUsernameLen {
		return core.User{}, ErrUsernameTooShort
	}
	if len(password) < minPasswordLen {
		return core.User{}, ErrPasswordTooShort
	}
	if len(password) > auth.MaxPasswordBytes {
		return core.User{}, auth.ErrPasswordTooLong
	}
	if strings.EqualFold(username, s.admin) {
		return core.User{}, ErrUsernameTaken
	}
	existing, err := s.store.FindUser(ctx, username)
	if err != nil {
		return core.User{}, err
	}
	if existing != nil {
		return core.User{}, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.store.InsertUser(ctx, core.User{Username: username, PasswordHash: hash})
	if errors.Is(err, store.ErrDuplicate) {
		return core.User{}, ErrUsernameTaken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User created", applog.NewFields().
		WithOperation(applog.OpCreate).WithUsername(username).ToSlice()...)
	return u, nil
}

// Delete removes the user with the given id on behalf of actor.
func (s *UserService) Delete(ctx context.Context, id string, actor auth.Session) error {
	users, _, err := s.store.Users(ctx)
	if err != nil {
		return err
	}
	var target *core.User
	for i := range users {
		if users[i].ID == id {
			target = &users[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	if target.IsAdmin || target.Username == s.admin {
		return ErrAdminProtected
	}
	if target.Username == actor.Username {
		return ErrSelfDelete
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User deleted", applog.NewFields().
		WithOperation(applog.OpDelete).WithUsername(target.Username).ToSlice()...)
	return nil
}

// ChangePassword replaces the password of username after checking the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, username, current, next, confirm string) error {
	if len(next) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(next) > auth.MaxPasswordBytes {
		return auth.ErrPasswordTooLong
	}
	if next != confirm {
		return ErrPasswordMismatch
	}
	u, err := s.store.FindUser(ctx, username)
	if err != nil {
		return err
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, current) {
		return auth.ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, u.Username, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.InfoContext(ctx, "Password changed", applog.NewFields().
		WithOperation(applog.OpUpdate).WithUsername(u.Username).ToSlice()...)
	return nil
}
