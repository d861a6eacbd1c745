package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/weatherlogger/apiserver/internal/auth"
	"github.com/weatherlogger/apiserver/internal/store"
	"github.com/weatherlogger/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService provisions accounts. Users are never created through the
// HTTP API.
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher
}

func NewUserService(repo UserRepository, hasher PasswordHasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

// MaxUsernameLength matches the users.username column.
const MaxUsernameLength = 50

// Create stores a new user after checking the password policy.
func (s *UserService) Create(ctx context.Context, username, password string, role types.Role) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength || !role.IsValid() {
		return types.User{}, ErrInvalidUser
	}
	if err := auth.ValidatePassword(password); err != nil {
		return types.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrUserExists
		}
		return types.User{}, err
	}
	return user, nil
}

// Exists reports whether a user with the given name is present.
func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}
