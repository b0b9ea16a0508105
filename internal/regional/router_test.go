package regional

import (
	"testing"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
)

func newTestRouter() *Router {
	return NewRouter(region.US, map[string]region.ID{
		"10.1.0.0/16": region.EU,
		"10.2.0.0/16": region.Asia,
	})
}

// TestRouter_Precedence 测试解析优先级:显式>请求级>请求头>令牌>IP>默认
func TestRouter_Precedence(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		name string
		rc   region.RequestContext
		want region.ID
	}{
		{
			name: "显式指定压过一切环境上下文",
			rc: region.RequestContext{
				Explicit:   region.Asia,
				Scoped:     region.EU,
				Header:     "EU",
				TokenClaim: "EU",
				ClientIP:   "10.1.0.8",
			},
			want: region.Asia,
		},
		{
			name: "请求级区域压过请求头",
			rc: region.RequestContext{
				Scoped: region.EU,
				Header: "ASIA",
			},
			want: region.EU,
		},
		{
			name: "请求头压过令牌声明",
			rc: region.RequestContext{
				Header:     "asia", // 大小写不敏感
				TokenClaim: "EU",
			},
			want: region.Asia,
		},
		{
			name: "令牌声明压过IP启发",
			rc: region.RequestContext{
				TokenClaim: "EU",
				ClientIP:   "10.2.0.1",
			},
			want: region.EU,
		},
		{
			name: "IP网段匹配",
			rc:   region.RequestContext{ClientIP: "10.2.3.4"},
			want: region.Asia,
		},
		{
			name: "全部缺失时兜底到默认区域",
			rc:   region.RequestContext{},
			want: region.US,
		},
		{
			name: "非法请求头跳到下一优先级",
			rc: region.RequestContext{
				Header:     "MARS",
				TokenClaim: "EU",
			},
			want: region.EU,
		},
		{
			name: "未命中任何网段时兜底到默认区域",
			rc:   region.RequestContext{ClientIP: "192.168.1.1"},
			want: region.US,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Resolve(tc.rc); got != tc.want {
				t.Errorf("期望%s,实际%s", tc.want, got)
			}
		})
	}
}

// TestNewRouter_BadConfig 测试非法配置的容错
func TestNewRouter_BadConfig(t *testing.T) {
	r := NewRouter("", map[string]region.ID{
		"not-a-cidr":  region.EU,
		"10.9.0.0/16": "MARS", // 非法区域
		"10.1.0.0/16": region.EU,
	})

	// 非法默认区域兜底到US
	if r.DefaultRegion() != region.US {
		t.Errorf("期望默认区域US,实际%s", r.DefaultRegion())
	}

	// 非法规则被跳过,合法规则仍生效
	if got := r.Resolve(region.RequestContext{ClientIP: "10.1.0.1"}); got != region.EU {
		t.Errorf("期望EU,实际%s", got)
	}
	if got := r.Resolve(region.RequestContext{ClientIP: "10.9.0.1"}); got != region.US {
		t.Errorf("非法规则不应生效,期望US,实际%s", got)
	}
}
