// Package region 定义地理分区及其降级环
//
// 每个区域是一套独立部署,独占持有一部分库存和预留数据。
// 区域故障时按固定环降级:US→EU→ASIA→US。
package region

// ID 区域标识
type ID string

const (
	US   ID = "US"
	EU   ID = "EU"
	Asia ID = "ASIA"
)

// All 返回全部区域(顺序固定,便于测试和健康上报)
func All() []ID {
	return []ID{US, EU, Asia}
}

// IsValid 判断是否为已知区域
func (id ID) IsValid() bool {
	switch id {
	case US, EU, Asia:
		return true
	default:
		return false
	}
}

// SecondaryFor 返回主区域对应的备用区域(固定环)
// 未知区域兜底到US,保证降级路径总是存在
func SecondaryFor(primary ID) ID {
	switch primary {
	case US:
		return EU
	case EU:
		return Asia
	case Asia:
		return US
	default:
		return US
	}
}

// RequestContext 请求级区域上下文
// 设计说明:
// 显式结构体随调用链传递,取代线程局部的隐式区域状态——
// 协程复用下隐式状态会跨请求泄漏,显式传参从根上消除这类问题。
// 字段对应Router解析优先级的各路输入,由各来源的提取方填充。
type RequestContext struct {
	Explicit   ID     // 调用方显式指定的区域(管理/跨区工具用,优先级最高)
	Scoped     ID     // 上游中间件解析好的请求级区域
	Header     string // 入站请求头携带的区域代码(X-Region)
	TokenClaim string // 身份令牌中已验证的区域声明
	ClientIP   string // 客户端IP(粗粒度兜底启发)
	AccountID  uint   // 调用方账户(审计用,不参与路由)
}
