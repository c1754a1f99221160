package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"parley/internal/content"
	"parley/internal/directory"
	"parley/internal/models"

	"github.com/c-pro/geche"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenExpiry = 24 * time.Hour
	minPasswordLength  = 8
	loginFailedMessage = "login failed"
)

type Credentials struct {
	UserID       string
	Username     string
	PasswordHash string
	// Counter for consecutive failed login attempts to throttle brute force attacks.
	FailedLoginAttempts int64
	LastAttemptTime     int64
}

func (c *Credentials) resetFailedLoginAttempts(now time.Time) {
	c.FailedLoginAttempts = 0
	c.LastAttemptTime = now.Unix()
}

func (c *Credentials) incrementFailedLoginAttempts(now time.Time) {
	c.FailedLoginAttempts++
	c.LastAttemptTime = now.Unix()
}

type Config struct {
	TokenExpiry time.Duration
}

// Session is the result of a successful login.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expiresAt"`
	Identity  models.Identity `json:"identity"`
}

// Service is the session gate: it turns a name+password into an identity and
// maps live tokens back to identity ids. Every other component trusts the id
// it produces unconditionally.
type Service struct {
	Config
	dir        *directory.Directory
	creds      *geche.Locker[string, *Credentials]
	liveTokens geche.Geche[string, string]
	now        func() time.Time
}

func NewService(ctx context.Context, config Config, dir *directory.Directory) *Service {
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = DefaultTokenExpiry
	}
	return &Service{
		Config:     config,
		dir:        dir,
		creds:      geche.NewLocker[string, *Credentials](geche.NewMapCache[string, *Credentials]()),
		liveTokens: geche.NewMapTTLCache[string, string](ctx, config.TokenExpiry, time.Minute),
		now:        time.Now,
	}
}

// Register creates a new identity with credentials. It fails with
// ErrConflict when the name is taken and ErrInvalidArgument on a malformed
// name or a too-short password.
func (s *Service) Register(username, password string) (models.Identity, error) {
	username = strings.TrimSpace(username)
	if err := content.ValidateName(username); err != nil {
		return models.Identity{}, fmt.Errorf("%w: %s", models.ErrInvalidArgument, err)
	}
	if len(password) < minPasswordLength {
		return models.Identity{}, fmt.Errorf("%w: password must be at least %d characters", models.ErrInvalidArgument, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	tx := s.creds.Lock()
	defer tx.Unlock()

	key := strings.ToLower(username)
	if _, err := tx.Get(key); err == nil {
		return models.Identity{}, fmt.Errorf("%w: name %q is taken", models.ErrConflict, username)
	}

	ident, err := s.dir.Create(username, directory.Attributes{})
	if err != nil {
		return models.Identity{}, err
	}

	tx.Set(key, &Credentials{
		UserID:       ident.ID,
		Username:     username,
		PasswordHash: string(hash),
	})

	return ident, nil
}

// Provision registers an identity with a generated one-time password.
// Used by the admin surface.
func (s *Service) Provision(username string) (models.Identity, string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return models.Identity{}, "", fmt.Errorf("failed to generate password: %w", err)
	}
	password := base64.RawURLEncoding.EncodeToString(b)

	ident, err := s.Register(username, password)
	if err != nil {
		return models.Identity{}, "", err
	}
	return ident, password, nil
}

// Login verifies the credentials and issues a live token. The error message
// is identical for unknown names and wrong passwords.
func (s *Service) Login(username, password string) (Session, error) {
	now := s.now()

	tx := s.creds.Lock()
	defer tx.Unlock()

	user, err := tx.Get(strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %s", models.ErrUnauthorized, loginFailedMessage)
	}

	if user.FailedLoginAttempts > 3 {
		nextAttempt := user.LastAttemptTime + 30*(user.FailedLoginAttempts*user.FailedLoginAttempts)
		if now.Unix() < nextAttempt {
			return Session{}, fmt.Errorf("%w: too many failed login attempts, next attempt in %d seconds",
				models.ErrUnauthorized, nextAttempt-now.Unix())
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		user.incrementFailedLoginAttempts(now)
		slog.Warn("failed login attempt", "username", user.Username, "attempts", user.FailedLoginAttempts)
		return Session{}, fmt.Errorf("%w: %s", models.ErrUnauthorized, loginFailedMessage)
	}

	token, err := s.generateToken()
	if err != nil {
		slog.Error("login failed", "user_id", user.UserID, "error", err)
		return Session{}, fmt.Errorf("%w: internal error", models.ErrUnauthorized)
	}

	s.liveTokens.Set(token, user.UserID)
	user.resetFailedLoginAttempts(now)

	ident, ok := s.dir.Get(user.UserID)
	if !ok {
		return Session{}, fmt.Errorf("%w: identity missing for credentials", models.ErrUnauthorized)
	}

	return Session{
		Token:     token,
		ExpiresAt: now.Unix() + int64(s.TokenExpiry.Seconds()),
		Identity:  ident,
	}, nil
}

func (s *Service) Logoff(token string) error {
	return s.liveTokens.Del(token)
}

// GetUserID resolves a live token to the identity id it was issued for.
func (s *Service) GetUserID(token string) (string, error) {
	if token == "" {
		return "", models.ErrUnauthorized
	}
	userID, err := s.liveTokens.Get(token)
	if err != nil {
		if !errors.Is(err, geche.ErrNotFound) {
			slog.Error("token lookup failed", "error", err)
		}
		return "", models.ErrUnauthorized
	}
	return userID, nil
}

func (s *Service) generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
