package regional

import (
	"net"
	"strings"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
)

// Router 区域路由器
// 设计说明:
// 把一次调用映射到某个地理分区。解析优先级(先匹配先赢):
// 1. 调用方显式指定的区域(管理/跨区工具,绝不能被环境上下文覆盖)
// 2. 上游中间件解析好的请求级区域
// 3. 入站请求头携带的区域代码
// 4. 身份令牌中已验证的区域声明
// 5. 客户端IP网段启发(粗粒度)
// 6. 配置的默认区域
type Router struct {
	defaultRegion region.ID
	ipRules       []ipRule
}

// ipRule IP网段到区域的映射
type ipRule struct {
	cidr   *net.IPNet
	region region.ID
}

// NewRouter 创建路由器
// ipPrefixes是CIDR到区域的映射(如 "10.1.0.0/16" → US),
// 非法的CIDR直接跳过,不影响其余规则。
func NewRouter(defaultRegion region.ID, ipPrefixes map[string]region.ID) *Router {
	if !defaultRegion.IsValid() {
		defaultRegion = region.US
	}

	rules := make([]ipRule, 0, len(ipPrefixes))
	for prefix, id := range ipPrefixes {
		_, cidr, err := net.ParseCIDR(prefix)
		if err != nil || !id.IsValid() {
			continue
		}
		rules = append(rules, ipRule{cidr: cidr, region: id})
	}

	return &Router{
		defaultRegion: defaultRegion,
		ipRules:       rules,
	}
}

// Resolve 解析请求的目标区域
func (r *Router) Resolve(rc region.RequestContext) region.ID {
	// 1. 显式指定优先级最高
	if rc.Explicit.IsValid() {
		return rc.Explicit
	}

	// 2. 请求级区域(上游中间件已解析)
	if rc.Scoped.IsValid() {
		return rc.Scoped
	}

	// 3. 请求头区域代码(大小写不敏感)
	if id := region.ID(strings.ToUpper(strings.TrimSpace(rc.Header))); id.IsValid() {
		return id
	}

	// 4. 令牌中的区域声明(已由网关验证签名)
	if id := region.ID(strings.ToUpper(strings.TrimSpace(rc.TokenClaim))); id.IsValid() {
		return id
	}

	// 5. IP网段启发
	if ip := net.ParseIP(rc.ClientIP); ip != nil {
		for _, rule := range r.ipRules {
			if rule.cidr.Contains(ip) {
				return rule.region
			}
		}
	}

	// 6. 默认区域兜底
	return r.defaultRegion
}

// DefaultRegion 配置的默认区域
func (r *Router) DefaultRegion() region.ID {
	return r.defaultRegion
}
