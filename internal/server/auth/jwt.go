// Package auth issues and verifies the signed access tokens carried in the
// Authorization header.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the identity of the bearer.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Role   string `json:"role"`
}

// GenerateToken signs an HS256 token for identity that expires after validity.
func GenerateToken(identity models.Identity, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID: identity.UserID,
		Role:   identity.Role.String(),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the identity it carries.
// Expired tokens yield common.ErrTokenExpired; every other failure yields
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (models.Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, common.ErrTokenExpired
		}
		return models.Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return models.Identity{}, common.ErrInvalidToken
	}

	role := models.Role(claims.Role)
	if !role.Valid() {
		return models.Identity{}, common.ErrInvalidToken
	}

	return models.Identity{UserID: claims.UserID, Role: role}, nil
}
