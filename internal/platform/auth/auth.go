package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 管理接口的令牌服务。没有用户体系：令牌由运维用 cmd/tools/admintoken
// 离线签发，subject 是操作者标识，role 固定校验为 operator。

type Claims struct {
	Subject string
	Role    string
}

type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService interface {
	Sign(subject string, role string) (string, error)
	Verify(token string) (Claims, error)
}

type hs256Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewHS256Service(secret, issuer string, ttl time.Duration) (TokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if issuer == "" {
		return nil, errors.New("jwt issuer is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt ttl must be > 0")
	}
	return &hs256Service{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

func (h *hs256Service) Sign(subject string, role string) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}
	now := time.Now()

	claims := jwtClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    h.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(h.secret)
}

func (h *hs256Service) Verify(tokenString string) (Claims, error) {
	var parsed jwtClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(h.issuer),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(tokenString, &parsed, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected jwt signing method")
		}
		return h.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	return Claims{Subject: parsed.Subject, Role: parsed.Role}, nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, identityKey{}, c)
}

func GetIdentity(ctx context.Context) (Claims, bool) {
	v, ok := ctx.Value(identityKey{}).(Claims)
	return v, ok
}
