package inventory

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

const (
	// DefaultMaxAttempts 默认重试上限
	// 冲突是短暂的,立即重试即可,不做退避
	DefaultMaxAttempts = 3

	// maxAttemptsCeiling 配置允许的重试上限
	maxAttemptsCeiling = 10
)

// Mutator 乐观并发变更器
// 设计说明:
// 1. 所有库存变更的唯一入口:读取→Transform→条件写,冲突则整轮重试
// 2. 不加悲观锁,并发写者靠版本戳检测冲突,输家重读最新数据再试
// 3. 只重试版本冲突;库存不足等业务性拒绝原样返回,由调用方决定
type Mutator struct {
	store       Store
	maxAttempts int

	// OnConflict 每次版本冲突重试前回调(指标埋点用),可为nil
	OnConflict func()
	// OnExhausted 重试耗尽时回调,可为nil
	OnExhausted func()
}

// NewMutator 创建变更器
// maxAttempts<=0时取默认值,超出上限时截断
func NewMutator(store Store, maxAttempts int) *Mutator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxAttempts > maxAttemptsCeiling {
		maxAttempts = maxAttemptsCeiling
	}
	return &Mutator{
		store:       store,
		maxAttempts: maxAttempts,
	}
}

// Mutate 对指定SKU应用一次变更,返回写入成功后的记录
//
// 每轮重试都重新读取最新快照,Transform在新数据上重新判定前置条件,
// 因此"读到旧数据以为库存够"的假成功不可能发生。
// 重试耗尽返回ConcurrencyExhausted,对调用方是可安全重试的瞬时错误。
func (m *Mutator) Mutate(ctx context.Context, sku string, tf Transform) (*Record, error) {
	var lastErr error

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		// 1. 读取最新快照
		current, err := m.store.Get(ctx, sku)
		if err != nil {
			return nil, err
		}

		// 2. 对副本应用变更(纯内存,无外部调用)
		next := current.Clone()
		if err := tf(next); err != nil {
			// 业务性拒绝(库存不足等):不重试,原样上抛
			return nil, err
		}
		if err := next.Validate(); err != nil {
			return nil, err
		}

		// 3. 条件写,版本不匹配则整轮重试
		err = m.store.CompareAndSave(ctx, next, current.Version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		if m.OnConflict != nil {
			m.OnConflict()
		}
	}

	if m.OnExhausted != nil {
		m.OnExhausted()
	}
	return nil, &apperrors.AppError{
		Code:    apperrors.ErrCodeConcurrencyExhausted,
		Message: fmt.Sprintf("并发冲突重试耗尽(尝试%d次)", m.maxAttempts),
		Err:     lastErr,
	}
}
