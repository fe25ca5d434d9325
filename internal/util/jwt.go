package util

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of our own session token.
type Claims struct {
	UID       string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// IdentityClaims is what the sign-in provider puts in its ID token.
type IdentityClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

var ErrMissingSubject = errors.New("identity token has no subject")

// GenerateToken 生成用户的 JWT，可指定有效期
func GenerateToken(secret, issuer, uid, sessionID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := &Claims{
		UID:       uid,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 解析并验证 JWT，返回 Claims
func ParseToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := parseHS256(secret, tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseIdentityToken verifies a provider ID token. When issuer is set the
// token's iss claim must match it.
func ParseIdentityToken(secret, issuer, tokenStr string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	var opts []jwt.ParserOption
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if err := parseHS256(secret, tokenStr, claims, opts...); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

func parseHS256(secret, tokenStr string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}
