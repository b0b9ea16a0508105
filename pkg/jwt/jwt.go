package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

// Manager JWT管理器
// 设计说明：
// 本服务不做完整的用户认证（由网关负责），只消费Token中的已验证声明。
// 预留引擎关心两个自定义字段：
// - AccountID：调用方账户（审计用）
// - Region：签发时写入的区域归属，是区域路由的第4优先级输入
type Manager struct {
	secret string        // JWT签名密钥
	expire time.Duration // Token有效期
}

// NewManager 创建JWT管理器
func NewManager(secret string, expire time.Duration) *Manager {
	return &Manager{
		secret: secret,
		expire: expire,
	}
}

// Claims 自定义JWT Claims
// 嵌入jwt.RegisteredClaims获取标准字段（exp、iat、nbf等）
type Claims struct {
	AccountID uint   `json:"account_id"`
	Region    string `json:"region"` // 区域代码（US/EU/ASIA），可为空
	jwt.RegisteredClaims
}

// GenerateToken 生成Token（主要供测试与内部工具使用）
func (m *Manager) GenerateToken(accountID uint, region string) (string, error) {
	now := time.Now()

	claims := Claims{
		AccountID: accountID,
		Region:    region,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "inventory-engine",
			Subject:   fmt.Sprintf("%d", accountID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return "", apperrors.Wrap(err, "生成Token失败")
	}

	return tokenString, nil
}

// ParseToken 解析并验证Token
// 验证签名（防止伪造声明区域）、过期时间（exp）、生效时间（nbf）
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})

	if err != nil {
		if err == jwt.ErrTokenExpired {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, apperrors.ErrInvalidToken
}
