// Package metrics 提供基于Prometheus的指标收集
//
// 指标分组：
// - 预留单生命周期：创建/确认/取消/过期的计数与耗时
// - 乐观并发：版本冲突重试次数、重试耗尽次数
// - 熔断器：各区域状态、请求结果
// - 跨区域降级：降级路径命中（secondary/cache/stale）、回写结果
//
// 命名规范：
// - Counter以_total结尾
// - Histogram以单位结尾（_seconds）
// - 标签只用低基数维度（region、result、operation），不要用SKU/预留单ID
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initialized 标记是否已初始化（防止重复注册）
	initialized bool

	// 预留单生命周期指标

	// ReservationsTotal 预留单操作总数（Counter）
	// 标签：operation（reserve/confirm/cancel/expire）、result（success/failure）
	ReservationsTotal *prometheus.CounterVec

	// ReservationDuration 预留操作耗时（Histogram）
	// 标签：operation
	ReservationDuration *prometheus.HistogramVec

	// ReservationCompensationsTotal 预留补偿（部分失败回滚）总数（Counter）
	ReservationCompensationsTotal prometheus.Counter

	// 乐观并发指标

	// MutatorConflictsTotal 版本冲突重试总数（Counter）
	MutatorConflictsTotal prometheus.Counter

	// MutatorExhaustedTotal 重试耗尽总数（Counter）
	MutatorExhaustedTotal prometheus.Counter

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（Gauge）
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	// 标签：region
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数（Counter）
	// 标签：region、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// 跨区域降级指标

	// FallbackTotal 降级路径命中总数（Counter）
	// 标签：path（secondary/cache/stale_cache/exhausted）
	FallbackTotal *prometheus.CounterVec

	// ReplicationTotal 恢复后回写主区域的结果总数（Counter）
	// 标签：result（success/failure/abandoned）
	ReplicationTotal *prometheus.CounterVec
)

// InitMetrics 初始化所有Prometheus指标
//
// 必须在程序启动时调用一次，用于注册所有指标到全局Registry
func InitMetrics() {
	// 防止重复初始化
	if initialized {
		return
	}
	initialized = true

	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "预留单操作总数",
		},
		[]string{"operation", "result"},
	)

	ReservationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "reservation_duration_seconds",
			Help: "预留操作耗时（秒）",
			// 多行项预留涉及多次区域调用，耗时偏长
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"operation"},
	)

	ReservationCompensationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_compensations_total",
			Help: "预留部分失败触发补偿释放的总数",
		},
	)

	MutatorConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_mutator_conflicts_total",
			Help: "库存乐观锁版本冲突重试总数",
		},
	)

	MutatorExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_mutator_exhausted_total",
			Help: "库存乐观锁重试耗尽总数",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"region"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"region", "result"},
	)

	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "region_fallback_total",
			Help: "跨区域降级路径命中总数",
		},
		[]string{"path"},
	)

	ReplicationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "region_replication_total",
			Help: "区域恢复后回写主区域的结果总数",
		},
		[]string{"result"},
	)
}
