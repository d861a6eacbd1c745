package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/weatherlogger/apiserver/types"
)

// ErrInvalidToken is returned for tokens that are malformed, expired,
// signed with another key, or missing required claims.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload: the standard registered claims with the user
// id in Subject, plus the user's role.
type Claims struct {
	jwt.RegisteredClaims
	Role types.Role `json:"role"`
}

// Identity is the caller extracted from a verified token.
type Identity struct {
	UserID int
	Role   types.Role
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager constructs a TokenManager. ttl is the lifetime of issued tokens.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the given user.
func (m *TokenManager) Issue(userID int, role types.Role) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks the signature and expiry of tokenString and returns the
// identity it carries.
func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || userID < 1 {
		return Identity{}, ErrInvalidToken
	}
	if !claims.Role.IsValid() {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: userID, Role: claims.Role}, nil
}
