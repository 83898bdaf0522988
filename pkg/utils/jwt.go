package utils

import (
	"errors"
	"time"

	"gamevault/internal/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 店铺认证服务签发的访问令牌，sub 为用户 ID
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID 返回令牌主体
func (c *Claims) UserID() string {
	return c.Subject
}

// GenerateToken 生成JWT Token（沙箱与测试使用）
func GenerateToken(userID, email string) (string, *time.Time, error) {
	now := time.Now()
	expireTime := now.Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)
	if config.GlobalConfig.JWT.Expire <= 0 {
		expireTime = now.Add(24 * time.Hour)
	}

	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireTime),
			Issuer:    "gamevault",
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := tokenClaims.SignedString([]byte(config.GlobalConfig.JWT.Secret))
	if err != nil {
		return "", nil, err
	}

	return token, &expireTime, nil
}

// ParseToken 验证JWT Token
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(config.GlobalConfig.JWT.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
