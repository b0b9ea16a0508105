package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/pkg/jwt"
)

// requestContextKey gin上下文中区域线索的键
const requestContextKey = "region_request_context"

// RegionMiddleware 区域线索收集中间件
// 设计说明:
// 1. 中间件只负责收集线索:X-Region头、Token里的区域声明、客户端IP
// 2. 优先级裁决在Router里统一做(显式>请求范围>Header>Token>IP>默认),
//    这里不做任何取舍
// 3. Token是可选线索:解析失败不拒绝请求,只是少一条线索——
//    预留接口对匿名调用方同样开放
type RegionMiddleware struct {
	jwtManager *jwt.Manager
}

// NewRegionMiddleware 创建区域中间件
func NewRegionMiddleware(jwtManager *jwt.Manager) *RegionMiddleware {
	return &RegionMiddleware{jwtManager: jwtManager}
}

// Collect 收集本次请求的区域线索并注入Context
func (m *RegionMiddleware) Collect() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := region.RequestContext{
			Scoped:   region.ID(strings.ToUpper(c.Query("region"))),
			Header:   c.GetHeader("X-Region"),
			ClientIP: c.ClientIP(),
		}

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				if claims, err := m.jwtManager.ParseToken(parts[1]); err == nil {
					rc.TokenClaim = claims.Region
					rc.AccountID = claims.AccountID
				}
			}
		}

		c.Set(requestContextKey, rc)
		c.Next()
	}
}

// RequestContext 从gin上下文取出区域线索
// 未经过Collect的路由退化为只有客户端IP一条线索
func RequestContext(c *gin.Context) region.RequestContext {
	if v, exists := c.Get(requestContextKey); exists {
		if rc, ok := v.(region.RequestContext); ok {
			return rc
		}
	}
	return region.RequestContext{ClientIP: c.ClientIP()}
}
