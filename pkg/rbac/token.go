package rbac

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingToken 请求未携带 Bearer token
var ErrMissingToken = errors.New("missing bearer token")

// Claims token 中携带的身份信息，sub 为用户 id
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Principal 已认证的调用方
type Principal struct {
	UserID int64
	Role   string
}

// GenerateToken 签发 HS256 token（供测试与运维脚本使用，业务侧 token 由外部系统签发）
func GenerateToken(userID int64, role string, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken 校验 token 并提取调用方
func ParseToken(tokenStr, secret string) (Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("parse token: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Principal{}, fmt.Errorf("parse token: invalid subject %q: %w", claims.Subject, jwt.ErrTokenInvalidClaims)
	}
	if _, ok := rolePermissions[claims.Role]; !ok {
		return Principal{}, fmt.Errorf("parse token: unknown role %q: %w", claims.Role, jwt.ErrTokenInvalidClaims)
	}
	return Principal{UserID: userID, Role: claims.Role}, nil
}

// ExtractBearer 从 Authorization 头中取出 token
func ExtractBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
