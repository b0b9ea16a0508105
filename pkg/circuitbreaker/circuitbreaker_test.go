package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errUnavailable = errors.New("region unavailable")

func newTestBreaker(coolDown time.Duration) *CircuitBreaker {
	return New("test", Config{
		FailureRateThreshold: 0.5,
		WindowSize:           10,
		MinRequests:          5,
		CoolDown:             coolDown,
		MaxTrialCalls:        3,
	})
}

// TestCircuitBreaker_ClosedState 测试关闭状态（正常）
func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := newTestBreaker(30 * time.Second)

	for i := 0; i < 9; i++ {
		err := cb.Execute(func() error {
			return nil
		})
		if err != nil {
			t.Fatalf("期望成功，实际失败: %v", err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("期望状态为CLOSED，实际%s", cb.State())
	}

	counts := cb.Counts()
	if counts.TotalSuccesses != 9 {
		t.Errorf("期望成功9次，实际%d次", counts.TotalSuccesses)
	}
}

// TestCircuitBreaker_TripOnFailureRate 测试失败率达标后熔断
// 最小调用数5、失败率阈值50%：5次调用中3次失败即应熔断
func TestCircuitBreaker_TripOnFailureRate(t *testing.T) {
	cb := newTestBreaker(30 * time.Second)

	// 2次成功 + 3次失败 = 5次调用，失败率60%
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return nil })
	}
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errUnavailable })
	}

	if cb.State() != StateOpen {
		t.Fatalf("期望状态为OPEN，实际%s", cb.State())
	}

	// 熔断后请求应该立即失败（不调用实际函数）
	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	if err != ErrOpenState {
		t.Errorf("期望返回ErrOpenState，实际%v", err)
	}
	if called {
		t.Error("熔断器打开时不应该调用实际函数")
	}
}

// TestCircuitBreaker_BelowMinRequests 测试最小调用数保护
// 样本不足时即使全部失败也不应熔断
func TestCircuitBreaker_BelowMinRequests(t *testing.T) {
	cb := newTestBreaker(30 * time.Second)

	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return errUnavailable })
	}

	if cb.State() != StateClosed {
		t.Errorf("调用数不足5次不应熔断，实际状态%s", cb.State())
	}
}

// TestCircuitBreaker_HalfOpenRecovery 测试半开状态恢复
// 冷却时间过后进入半开，3次连续探测成功后关闭
func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := newTestBreaker(100 * time.Millisecond)

	// 触发熔断
	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return errUnavailable })
	}
	if cb.State() != StateOpen {
		t.Fatalf("期望状态为OPEN，实际%s", cb.State())
	}

	// 等待冷却，转为半开
	time.Sleep(150 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("冷却后期望状态为HALF_OPEN，实际%s", cb.State())
	}

	// 前2次探测成功后仍应处于半开（需要3次连续成功）
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("半开状态探测请求期望成功，实际%v", err)
		}
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("2次成功后期望仍为HALF_OPEN，实际%s", cb.State())
	}

	// 第3次探测成功后关闭
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("第3次探测请求期望成功，实际%v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("3次连续成功后期望状态为CLOSED，实际%s", cb.State())
	}
}

// TestCircuitBreaker_HalfOpenToOpen 测试半开状态失败后转回打开
func TestCircuitBreaker_HalfOpenToOpen(t *testing.T) {
	cb := newTestBreaker(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return errUnavailable })
	}

	time.Sleep(150 * time.Millisecond)

	// 半开状态下探测失败
	_ = cb.Execute(func() error { return errUnavailable })

	if cb.State() != StateOpen {
		t.Errorf("期望状态转回OPEN，实际%s", cb.State())
	}
}

// TestCircuitBreaker_HalfOpenTrialLimit 测试半开状态探测名额限制
func TestCircuitBreaker_HalfOpenTrialLimit(t *testing.T) {
	cb := newTestBreaker(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return errUnavailable })
	}

	time.Sleep(150 * time.Millisecond)

	// 占用全部3个探测名额（探测中，既不成功也不失败的话名额不归还；
	// 这里用失败前的计数模拟：3次请求后第4次应被拒绝）
	var wg sync.WaitGroup
	blocked := make(chan struct{})
	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(func() error {
				blocked <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	for i := 0; i < 3; i++ {
		<-blocked
	}

	err := cb.Execute(func() error { return nil })
	if err != ErrOpenState {
		t.Errorf("探测名额用尽后期望ErrOpenState，实际%v", err)
	}

	close(release)
	wg.Wait()
}

// TestCircuitBreaker_StateChangeCallback 测试状态变化回调
func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	cb := newTestBreaker(100 * time.Millisecond)

	stateChanges := make([]string, 0)
	cb.SetStateChangeCallback(func(name string, from State, to State) {
		stateChanges = append(stateChanges, from.String()+"->"+to.String())
	})

	// CLOSED -> OPEN
	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return errUnavailable })
	}

	// OPEN -> HALF_OPEN -> CLOSED
	time.Sleep(150 * time.Millisecond)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return nil })
	}

	expectedChanges := []string{
		"CLOSED->OPEN",
		"OPEN->HALF_OPEN",
		"HALF_OPEN->CLOSED",
	}

	if len(stateChanges) != len(expectedChanges) {
		t.Fatalf("期望%d次状态变化，实际%d次: %v", len(expectedChanges), len(stateChanges), stateChanges)
	}
	for i, expected := range expectedChanges {
		if stateChanges[i] != expected {
			t.Errorf("第%d次状态变化期望%s，实际%s", i, expected, stateChanges[i])
		}
	}
}

// TestCircuitBreaker_WindowRoll 测试滚动窗口翻滚
// 窗口满10次后重新统计，早期失败不应影响新窗口
func TestCircuitBreaker_WindowRoll(t *testing.T) {
	cb := newTestBreaker(30 * time.Second)

	// 4次失败 + 6次成功填满窗口（失败率40%，不熔断）
	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return errUnavailable })
	}
	for i := 0; i < 6; i++ {
		_ = cb.Execute(func() error { return nil })
	}

	if cb.State() != StateClosed {
		t.Fatalf("失败率40%%不应熔断，实际状态%s", cb.State())
	}

	// 窗口已翻滚，新窗口统计从零开始
	counts := cb.Counts()
	if counts.Requests != 0 {
		t.Errorf("窗口翻滚后期望统计清零，实际Requests=%d", counts.Requests)
	}

	// 新窗口中4次失败不应熔断（调用数不足）
	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return errUnavailable })
	}
	if cb.State() != StateClosed {
		t.Errorf("新窗口调用数不足不应熔断，实际状态%s", cb.State())
	}
}

// BenchmarkCircuitBreaker 性能基准测试
func BenchmarkCircuitBreaker(b *testing.B) {
	cb := newTestBreaker(30 * time.Second)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(func() error {
			return nil
		})
	}
}
