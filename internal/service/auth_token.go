package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserJWTClaims 用户令牌声明
type UserJWTClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueUserToken 签发用户令牌
// 登录/注册属于独立的认证子系统，这里只保留签发能力供其调用与种子数据使用。
func IssueUserToken(secretKey string, userID uint, role string, expireHours int) (string, error) {
	now := time.Now()
	claims := UserJWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}
