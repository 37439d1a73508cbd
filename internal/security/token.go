package security

import (
	"errors"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

const RoleAdmin = "admin"

// UserClaims are the claims carried by access tokens issued by the auth service.
// Subject holds the user id.
type UserClaims struct {
	Email string    `json:"email,omitempty"`
	Type  TokenType `json:"type"`
	Roles []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *UserClaims) UserID() string {
	return c.Subject
}

func (c *UserClaims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// TokenVerifier checks bearer tokens. This service never issues tokens.
type TokenVerifier interface {
	ValidateToken(tokenString string) (*UserClaims, error)
}

type tokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier verifies HS256 tokens signed with secret. A non-empty
// issuer must match the token's iss claim.
func NewTokenVerifier(secret, issuer string) TokenVerifier {
	return &tokenVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *tokenVerifier) ValidateToken(tokenString string) (*UserClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
