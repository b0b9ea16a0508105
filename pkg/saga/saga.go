// Package saga 实现通用的补偿事务框架
//
// 核心思想：
// 1. 将跨资源的长操作拆分为多个独立短操作
// 2. 每个短操作有对应的补偿操作
// 3. 某步失败时，按逆序执行已完成步骤的补偿操作
//
// 多SKU预留正是这种形态：每个行项的库存扣减是独立的物理原子操作，
// 预留单整体只有逻辑原子性，后面的行项失败时必须逆序释放前面已扣减的行项。
//
// 注意事项：
// 1. Action和Compensate都必须幂等（允许重试）
// 2. 补偿失败只记录不中断（尽最大努力），需要时由上层告警介入
// 3. 框架保证"最终一致性"，而非"强一致性"
package saga

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Step 表示Saga中的一个步骤
//
// Action是正向操作（如扣减某个SKU的库存）
// Compensate是补偿操作（如释放该SKU已扣减的库存）
type Step struct {
	Name       string                          // 步骤名称（用于日志和调试）
	Action     func(ctx context.Context) error // 正向操作
	Compensate func(ctx context.Context) error // 补偿操作
}

// Saga 表示一次补偿事务
type Saga struct {
	steps    []Step
	executed []Step        // 已执行的步骤（用于补偿）
	timeout  time.Duration // 整体超时时间

	// onCompensateError 补偿失败回调（可选）
	// 补偿失败不会中断后续补偿，通过回调上报
	onCompensateError func(stepName string, err error)
}

// New 创建一个新的Saga事务
//
// 示例：
//
//	s := saga.New(30 * time.Second)
//	s.AddStep("reserve sku-a", reserveA, releaseA)
//	s.AddStep("reserve sku-b", reserveB, releaseB)
//	err := s.Execute(ctx)
func New(timeout time.Duration) *Saga {
	return &Saga{
		steps:   make([]Step, 0),
		timeout: timeout,
	}
}

// AddStep 添加一个Saga步骤
//
// 步骤顺序很重要：按添加顺序执行，按逆序补偿。
// Action和Compensate都可以为nil（如最后一步通常无需补偿）。
// 补偿操作必须完全独立，只依赖自己Action的结果。
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// SetCompensateErrorCallback 设置补偿失败回调
func (s *Saga) SetCompensateErrorCallback(fn func(stepName string, err error)) {
	s.onCompensateError = fn
}

// Execute 执行Saga事务
//
// 执行流程：
// 1. 按顺序执行每个步骤的Action
// 2. 某步失败时，逆序执行已完成步骤的Compensate，返回触发失败的原始错误
// 3. 超时同样触发补偿流程
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		select {
		case <-ctx.Done():
			// 补偿使用新Context，避免补偿也被同一个超时取消
			s.compensate(context.Background())
			return fmt.Errorf("saga timeout at step[%d:%s]: %w", i, step.Name, ctx.Err())
		default:
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				s.compensate(context.Background())
				// 返回原始错误，调用方需要按错误类型区分处理
				return err
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// compensate 逆序执行补偿流程
//
// 为什么逆序？后执行的步骤可能依赖先执行的步骤。
// 补偿失败时记录日志并继续执行后续补偿（尽最大努力）。
func (s *Saga) compensate(ctx context.Context) {
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]

		if step.Compensate == nil {
			continue
		}

		if err := step.Compensate(ctx); err != nil {
			// 补偿失败：记录日志，继续执行后续补偿
			log.Printf("saga: compensate failed [step:%s]: %v", step.Name, err)
			if s.onCompensateError != nil {
				s.onCompensateError(step.Name, err)
			}
		}
	}

	s.executed = nil
}
