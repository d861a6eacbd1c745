package services

import (
	"context"
	"errors"

	"github.com/weatherlogger/apiserver/internal/auth"
	"github.com/weatherlogger/apiserver/internal/store"
	"github.com/weatherlogger/apiserver/types"
)

// CredentialStore is the subset of user persistence needed for
// authentication.
type CredentialStore interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	UpdatePasswordHash(ctx context.Context, id int, hash string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenManager issues and verifies bearer tokens.
type TokenManager interface {
	Issue(userID int, role types.Role) (string, error)
	Verify(token string) (auth.Identity, error)
}

// AuthService implements login, password change and token authorization.
type AuthService struct {
	users  CredentialStore
	hasher PasswordHasher
	tokens TokenManager
	tx     Transactor
}

func NewAuthService(users CredentialStore, hasher PasswordHasher, tokens TokenManager, tx Transactor) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		tx:     tx,
	}
}

// Login checks the credentials and returns a signed token together with
// the user's role. Unknown users and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, types.Role, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ChangePassword replaces the password of userID after checking the old
// one and the password policy, in that order.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, oldPassword, newPassword string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}

		if err := s.hasher.Compare(user.PasswordHash, oldPassword); err != nil {
			return ErrWrongPassword
		}

		if err := auth.ValidatePassword(newPassword); err != nil {
			return err
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}

		if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}
		return nil
	})
}

// Authorize verifies token and checks that its role satisfies required.
func (s *AuthService) Authorize(ctx context.Context, token string, required types.Role) (auth.Identity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Identity{}, ErrUnauthorized
	}
	if !auth.Satisfies(identity.Role, required) {
		return auth.Identity{}, ErrForbidden
	}
	return identity, nil
}
