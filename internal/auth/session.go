// Package auth implements the login gate: bcrypt password checks, signed
// session tokens and the server-side session table used to revoke them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fornitori/internal/cache"
	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/store"
)

const (
	maxSessions = 1000
	minYear     = 1900
	maxYear     = 9999

	// MaxPasswordBytes is the longest password bcrypt can hash.
	MaxPasswordBytes = 72
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrInvalidYear        = errors.New("invalid year")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

// Session is the explicit per-login state. It lives only in the server-side
// session table and never in the data mirror.
type Session struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	IsAdmin      bool      `json:"isAdmin"`
	SelectedYear int       `json:"selectedYear"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type claims struct {
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// Users is the slice of the user store the gate needs.
type Users interface {
	FindUser(ctx context.Context, username string) (*core.User, error)
	InsertUser(ctx context.Context, u core.User) (core.User, error)
}

type Options struct {
	Secret            string
	TTL               time.Duration
	AdminUsername     string
	BootstrapPassword string
}

type Manager struct {
	users     Users
	sessions  *cache.LRUCache[Session]
	secret    []byte
	ttl       time.Duration
	admin     string
	bootstrap string
	logger    *applog.Logger
	now       func() time.Time
}

func NewManager(users Users, opts Options, logger *applog.Logger) *Manager {
	return &Manager{
		users:     users,
		sessions:  cache.NewLRUCache[Session](maxSessions, opts.TTL),
		secret:    []byte(opts.Secret),
		ttl:       opts.TTL,
		admin:     opts.AdminUsername,
		bootstrap: opts.BootstrapPassword,
		logger:    logger,
		now:       time.Now,
	}
}

// Sessions exposes the session table so it can be registered for cleanup.
func (m *Manager) Sessions() cache.Cleaner { return m.sessions }

// ActiveSessions returns the number of sessions in the table, expired ones
// included until the next sweep.
func (m *Manager) ActiveSessions() int { return m.sessions.Size() }

// AdminUsername is the name of the protected administrator account.
func (m *Manager) AdminUsername() string { return m.admin }

// Login checks the credentials and opens a session for the given year.
// A zero year selects the current year.
func (m *Manager) Login(ctx context.Context, username, password string, year int) (string, Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", Session{}, ErrInvalidCredentials
	}
	if year == 0 {
		year = m.now().Year()
	}
	if err := validateYear(year); err != nil {
		return "", Session{}, err
	}

	u, err := m.lookup(ctx, username, password)
	if err != nil {
		m.logger.Warn("Login failed", applog.NewFields().
			WithOperation(applog.OpLogin).WithUsername(username).WithError(err).ToSlice()...)
		return "", Session{}, err
	}

	now := m.now()
	s := Session{
		ID:           uuid.NewString(),
		Username:     u.Username,
		IsAdmin:      u.IsAdmin || u.Username == m.admin,
		SelectedYear: year,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}
	token, err := m.sign(s)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}
	m.sessions.SetUntil(s.ID, s, s.ExpiresAt)

	m.logger.Info("User logged in", applog.NewFields().
		WithOperation(applog.OpLogin).WithUsername(s.Username).ToSlice()...)
	return token, s, nil
}

func (m *Manager) lookup(ctx context.Context, username, password string) (*core.User, error) {
	u, err := m.users.FindUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return m.bootstrapAdmin(ctx, username, password)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// bootstrapAdmin creates the administrator row on the first successful login
// with the configured bootstrap password.
func (m *Manager) bootstrapAdmin(ctx context.Context, username, password string) (*core.User, error) {
	if username != m.admin || m.bootstrap == "" || password != m.bootstrap {
		return nil, ErrInvalidCredentials
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	created, err := m.users.InsertUser(ctx, core.User{Username: username, PasswordHash: hash, IsAdmin: true})
	if errors.Is(err, store.ErrDuplicate) {
		return m.lookup(ctx, username, password)
	}
	if err != nil {
		return nil, fmt.Errorf("create admin user: %w", err)
	}
	m.logger.Info("Administrator account created", applog.NewFields().WithUsername(username).ToSlice()...)
	return &created, nil
}

// Authenticate resolves a token to its live session.
func (m *Manager) Authenticate(token string) (Session, error) {
	c, err := m.parse(token, true)
	if err != nil {
		return Session{}, err
	}
	s, ok := m.sessions.Get(c.ID)
	if !ok || m.now().After(s.ExpiresAt) {
		return Session{}, ErrSessionExpired
	}
	return s, nil
}

// Logout destroys the session behind token. Unknown or expired tokens are
// not an error.
func (m *Manager) Logout(token string) error {
	c, err := m.parse(token, false)
	if err != nil {
		return err
	}
	m.sessions.Delete(c.ID)
	m.logger.Info("User logged out", applog.NewFields().
		WithOperation(applog.OpLogout).WithUsername(c.Username).ToSlice()...)
	return nil
}

// SetYear changes the year the session is working on.
func (m *Manager) SetYear(token string, year int) (Session, error) {
	if err := validateYear(year); err != nil {
		return Session{}, err
	}
	s, err := m.Authenticate(token)
	if err != nil {
		return Session{}, err
	}
	ok := m.sessions.Update(s.ID, func(cur Session) Session {
		cur.SelectedYear = year
		return cur
	})
	if !ok {
		return Session{}, ErrSessionExpired
	}
	s.SelectedYear = year
	return s, nil
}

func (m *Manager) sign(s Session) (string, error) {
	c := claims{
		Username: s.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.Username,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

func (m *Manager) parse(token string, validate bool) (*claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrSessionExpired
	case err != nil:
		return nil, ErrInvalidToken
	}
	if c.ID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func validateYear(year int) error {
	if year < minYear || year > maxYear {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

// HashPassword returns the bcrypt hash stored in the users table.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by the authentication middleware.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
