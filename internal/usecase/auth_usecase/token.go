package auth

import (
	"errors"
	"time"

	"sweetshop/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

// クライアントに返すトークン
type Tokens struct {
	AccessToken string
	ExpiresIn   int
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID string, isAdmin bool, now time.Time) (token string, expiresAt time.Time, err error)
}

// HS256で署名するJWT発行
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

// DI
func NewJWTIssuer(secret string, ttl time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}, nil
}

func (i *JWTIssuer) Issue(userID string, isAdmin bool, now time.Time) (string, time.Time, error) {
	exp := now.Add(i.ttl)
	claims := jwt.MapClaims{
		"sub":      userID,
		"is_admin": isAdmin,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func issueTokens(issuer AccessTokenIssuer, user model.User, now time.Time) (Tokens, error) {
	accessToken, exp, err := issuer.Issue(user.ID, user.IsAdmin, now)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken: accessToken,
		ExpiresIn:   int(exp.Sub(now).Seconds()),
	}, nil
}
