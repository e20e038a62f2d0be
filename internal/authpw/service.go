// Package authpw provides username/password authentication for the incident
// log. Passwords are stored as bcrypt hashes.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"engcontrol/api/internal/store"
	"engcontrol/api/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the storage interface for auth.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
}

type Service struct {
	store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// RegisterRequest contains sign-up parameters. Sector is chosen once at
// registration and scopes everything the user sees afterwards.
type RegisterRequest struct {
	Username string
	Password string
	FullName string
	Sector   string
}

// Register creates a new account. Usernames are lowercased and must be
// unique; new accounts are never developers.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	fullName := strings.TrimSpace(req.FullName)
	sector := strings.TrimSpace(req.Sector)

	if username == "" || req.Password == "" || fullName == "" {
		return store.User{}, errors.New("username, password and full name are required")
	}
	if sector == "" {
		return store.User{}, errors.New("sector is required")
	}
	if len(req.Password) < 6 {
		return store.User{}, errors.New("password must be at least 6 characters")
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return store.User{}, errors.New("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           util.NewID("usr"),
		Username:     username,
		DisplayName:  fullName,
		PasswordHash: string(hash),
		Sector:       sector,
		IsDeveloper:  false,
		Avatar:       AvatarURL(username),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// SignIn authenticates a user by username and password.
func (s *Service) SignIn(ctx context.Context, username, password string) (store.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return store.User{}, errors.New("username and password are required")
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return store.User{}, errors.New("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, errors.New("invalid username or password")
	}
	return user, nil
}

// AvatarURL returns the generated avatar for accounts that never uploaded
// one.
func AvatarURL(username string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + username
}
