// Package circuitbreaker 实现熔断器模式（Circuit Breaker Pattern）
//
// 熔断器核心思想：
// 1. 统计滚动窗口内的调用成功/失败
// 2. 失败率超过阈值时快速失败（打开熔断器），不再调用故障区域
// 3. 冷却时间过后进入半开状态，放行少量探测请求
//
// 为什么需要熔断器？
// - 防止雪崩效应：某个区域数据库故障时，调用方不应阻塞等待超时
// - 快速失败：区域故障时立即切换备用区域，不浪费调用配额
// - 自动恢复：区域恢复后，熔断器经半开探测自动关闭
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态（正常）
	// - 所有请求正常通过
	// - 统计滚动窗口内的失败率
	// - 达到阈值时转为OPEN
	StateClosed State = iota

	// StateOpen 打开状态（熔断）
	// - 所有请求快速失败，不调用下游
	// - 冷却时间（coolDown）过后转为HALF_OPEN
	StateOpen

	// StateHalfOpen 半开状态（探测）
	// - 允许有限数量的探测请求通过
	// - 探测请求全部成功后转为CLOSED
	// - 任一探测请求失败，立即转回OPEN
	StateHalfOpen
)

// String 状态转字符串（便于日志）
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config 熔断器配置
type Config struct {
	// FailureRateThreshold 失败率阈值（0.0-1.0）
	// 窗口内失败率达到该值时熔断，默认0.5
	FailureRateThreshold float64

	// WindowSize 滚动窗口大小（按调用次数计）
	// 窗口满后重新开始统计，默认10
	WindowSize uint32

	// MinRequests 熔断判定的最小调用数
	// 窗口内调用数低于该值时不触发熔断（样本太少不可信），默认5
	MinRequests uint32

	// CoolDown 熔断冷却时间（OPEN状态持续时间）
	// 过了这个时间转为HALF_OPEN尝试恢复，默认30s
	CoolDown time.Duration

	// MaxTrialCalls 半开状态允许的探测请求数
	// 需要连续成功这么多次才会关闭熔断器，默认3
	MaxTrialCalls uint32

	// ReadyToTrip 自定义熔断判定（可选）
	// 不设置时使用默认策略：调用数>=MinRequests 且 失败率>=FailureRateThreshold
	ReadyToTrip func(counts Counts) bool
}

// withDefaults 填充默认参数
func (c Config) withDefaults() Config {
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = 0.5
	}
	if c.WindowSize == 0 {
		c.WindowSize = 10
	}
	if c.MinRequests == 0 {
		c.MinRequests = 5
	}
	if c.CoolDown <= 0 {
		c.CoolDown = 30 * time.Second
	}
	if c.MaxTrialCalls == 0 {
		c.MaxTrialCalls = 3
	}
	return c
}

// Counts 统计数据
type Counts struct {
	Requests             uint32 // 总请求数
	TotalSuccesses       uint32 // 总成功数
	TotalFailures        uint32 // 总失败数
	ConsecutiveSuccesses uint32 // 连续成功数
	ConsecutiveFailures  uint32 // 连续失败数
}

// FailureRate 计算失败率
func (c *Counts) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.TotalFailures) / float64(c.Requests)
}

// Reset 重置统计
func (c *Counts) Reset() {
	c.Requests = 0
	c.TotalSuccesses = 0
	c.TotalFailures = 0
	c.ConsecutiveSuccesses = 0
	c.ConsecutiveFailures = 0
}

// onSuccess 记录成功
func (c *Counts) onSuccess() {
	// Requests已在beforeRequest中递增，这里不再重复
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

// onFailure 记录失败
func (c *Counts) onFailure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// ErrOpenState 熔断器打开错误
var ErrOpenState = errors.New("circuit breaker is open")

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	name          string // 熔断器名称（通常为区域标识）
	config        Config
	state         State
	generation    uint64 // 生成号（每次状态切换递增，防止跨代统计污染）
	counts        Counts
	expiry        time.Time // OPEN状态的冷却截止时间
	mu            sync.Mutex
	onStateChange func(name string, from State, to State)
}

// New 创建熔断器
//
// 示例：
//
//	cb := circuitbreaker.New("region-us", circuitbreaker.Config{
//	    FailureRateThreshold: 0.5,
//	    WindowSize:           10,
//	    MinRequests:          5,
//	    CoolDown:             30 * time.Second,
//	    MaxTrialCalls:        3,
//	})
func New(name string, config Config) *CircuitBreaker {
	return &CircuitBreaker{
		name:          name,
		config:        config.withDefaults(),
		state:         StateClosed,
		counts:        Counts{},
		onStateChange: func(name string, from State, to State) {},
	}
}

// SetStateChangeCallback 设置状态变化回调
//
// 用途：记录日志、发送告警、更新监控指标
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(name string, from State, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Name 熔断器名称
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute 执行请求（核心方法）
//
// 执行流程：
// 1. 检查当前状态是否允许执行
// 2. 执行实际请求
// 3. 记录结果，更新状态
func (cb *CircuitBreaker) Execute(req func() error) error {
	generation, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	err = req()

	cb.afterRequest(generation, err == nil)

	return err
}

// beforeRequest 请求前检查
//
// 返回当前生成号（用于afterRequest）；熔断器打开时返回ErrOpenState
func (cb *CircuitBreaker) beforeRequest() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	state, generation := cb.currentState(now)

	if state == StateOpen {
		return generation, ErrOpenState
	} else if state == StateHalfOpen && cb.counts.Requests >= cb.config.MaxTrialCalls {
		// 半开状态，探测名额已用完
		return generation, ErrOpenState
	}

	cb.counts.Requests++
	return generation, nil
}

// afterRequest 请求后处理
func (cb *CircuitBreaker) afterRequest(before uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	state, generation := cb.currentState(now)

	// 生成号不匹配说明状态已切换，结果作废
	if generation != before {
		return
	}

	if success {
		cb.handleSuccess(state, now)
	} else {
		cb.handleFailure(state, now)
	}
}

// handleSuccess 处理成功请求
func (cb *CircuitBreaker) handleSuccess(state State, now time.Time) {
	cb.counts.onSuccess()

	switch state {
	case StateClosed:
		cb.rollWindow()
	case StateHalfOpen:
		// 探测请求需全部成功才关闭
		if cb.counts.ConsecutiveSuccesses >= cb.config.MaxTrialCalls {
			cb.setState(StateClosed, now)
		}
	}
}

// handleFailure 处理失败请求
func (cb *CircuitBreaker) handleFailure(state State, now time.Time) {
	cb.counts.onFailure()

	switch state {
	case StateClosed:
		if cb.readyToTrip() {
			cb.setState(StateOpen, now)
			return
		}
		cb.rollWindow()
	case StateHalfOpen:
		// 半开状态下任一失败，立即转回打开状态
		cb.setState(StateOpen, now)
	}
}

// readyToTrip 判断是否应该熔断
func (cb *CircuitBreaker) readyToTrip() bool {
	if cb.config.ReadyToTrip != nil {
		return cb.config.ReadyToTrip(cb.counts)
	}
	return cb.counts.Requests >= cb.config.MinRequests &&
		cb.counts.FailureRate() >= cb.config.FailureRateThreshold
}

// rollWindow 滚动统计窗口
// 窗口按调用次数翻滚：满WindowSize次后重新统计
// 熔断判定在翻滚之前完成，因此不会漏掉窗口边界上的熔断条件
func (cb *CircuitBreaker) rollWindow() {
	if cb.counts.Requests >= cb.config.WindowSize {
		cb.counts.Reset()
	}
}

// currentState 获取当前状态
//
// OPEN状态下冷却时间到期时自动转为HALF_OPEN
func (cb *CircuitBreaker) currentState(now time.Time) (State, uint64) {
	if cb.state == StateOpen && cb.expiry.Before(now) {
		cb.setState(StateHalfOpen, now)
	}
	return cb.state, cb.generation
}

// setState 设置状态
func (cb *CircuitBreaker) setState(state State, now time.Time) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state
	cb.generation++
	cb.counts.Reset()

	if state == StateOpen {
		cb.expiry = now.Add(cb.config.CoolDown)
	} else {
		cb.expiry = time.Time{}
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, prev, state)
	}
}

// State 获取当前状态（只读）
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, _ := cb.currentState(time.Now())
	return state
}

// Counts 获取当前统计数据（只读）
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.counts
}
