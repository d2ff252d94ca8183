package tokens

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/qolzam/telar/apps/crud/internal/types"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// UserClaims carries the principal inside a signed token
type UserClaims struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	CreatedDate int64  `json:"createdDate"`
	jwt.RegisteredClaims
}

// CreateToken creates an HS256 signed JWT for the given user
func CreateToken(secret, issuer string, user types.UserContext, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.SystemRole,
		CreatedDate: user.CreatedDate,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies tokenString and returns the principal it carries
func ParseToken(secret, issuer, tokenString string) (*types.UserContext, error) {
	claims := &UserClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.FromString(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return &types.UserContext{
		UserID:      userID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		SystemRole:  claims.Role,
		CreatedDate: claims.CreatedDate,
	}, nil
}

// FromAuthorization reads the principal from an "Authorization: Bearer <token>" header value
func FromAuthorization(header, secret, issuer string) (*types.UserContext, error) {
	if !strings.HasPrefix(header, types.BearerPrefix) {
		return nil, ErrMissingToken
	}
	return ParseToken(secret, issuer, strings.TrimSpace(strings.TrimPrefix(header, types.BearerPrefix)))
}
