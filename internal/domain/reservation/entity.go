package reservation

import (
	"time"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
)

// Status 预留单状态
// 设计说明:
// 1. 使用int类型而非string(节省存储空间,便于索引)
// 2. PENDING是唯一的非终态;CONFIRMED/CANCELLED/EXPIRED都是终态
type Status int

const (
	StatusPending   Status = 1 // 待确认(库存已从可售转入预留)
	StatusConfirmed Status = 2 // 已确认(预留已转为售出)
	StatusCancelled Status = 3 // 已取消(预留已释放回可售)
	StatusExpired   Status = 4 // 已过期(超时未确认,预留已释放)
)

// String 实现Stringer接口(方便日志输出)
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "待确认"
	case StatusConfirmed:
		return "已确认"
	case StatusCancelled:
		return "已取消"
	case StatusExpired:
		return "已过期"
	default:
		return "未知状态"
	}
}

// Reservation 预留单实体(聚合根)
// 设计说明:
// 1. ID使用UUID(跨区域全局唯一,无需中心化发号)
// 2. Items是聚合内的子实体,随预留单一起持久化
// 3. 预留单只有逻辑原子性:每个行项的库存变更是独立的物理原子操作,
//    部分失败靠补偿释放兜底,不依赖跨行项事务
// 4. Version是乐观锁版本戳:懒过期和后台清扫可能并发转移同一张单,
//    靠版本CAS保证恰好一方生效
type Reservation struct {
	ID          string
	Items       []Item // 行项,保持传入顺序
	Status      Status
	OrderID     string // 确认时回填的订单号,确认前为空
	ExpiresAt   time.Time
	CreatedAt   time.Time
	ConfirmedAt *time.Time
	CancelledAt *time.Time
	Version     int64
}

// Item 预留单行项
// 不独立存在,必须通过预留单访问。
// SKU和Region是创建时从商品目录解析出的快照,后续生命周期操作
// 直接使用,不再反查目录。
type Item struct {
	ID        uint
	ProductID uint
	VariantID uint
	SKU       string
	Region    region.ID
	Quantity  int
	Confirmed bool
}

// New 创建新预留单(工厂方法)
// 初始状态为PENDING,过期时间为now+ttl(ttl<=0表示立即过期,用于测试)
func New(id string, items []Item, ttl time.Duration) *Reservation {
	now := time.Now()
	return &Reservation{
		ID:        id,
		Items:     items,
		Status:    StatusPending,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// Clone 深拷贝(行项切片独立)
// 状态转移前留快照,失败回退时用
func (r *Reservation) Clone() *Reservation {
	clone := *r
	clone.Items = make([]Item, len(r.Items))
	copy(clone.Items, r.Items)
	if r.ConfirmedAt != nil {
		t := *r.ConfirmedAt
		clone.ConfirmedAt = &t
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		clone.CancelledAt = &t
	}
	return &clone
}

// CanTransitionTo 检查是否可以转换到目标状态
// PENDING是唯一可离开的状态,三个终态互不可达
func (r *Reservation) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled, StatusExpired},
		StatusConfirmed: {},
		StatusCancelled: {},
		StatusExpired:   {},
	}

	allowed, exists := transitions[r.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换(先校验业务规则,再更新状态)
func (r *Reservation) TransitionTo(target Status) error {
	if !r.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	r.Status = target
	return nil
}

// Confirm 确认预留单(领域行为)
// 回填订单号并记录确认时间
func (r *Reservation) Confirm(orderID string) error {
	if err := r.TransitionTo(StatusConfirmed); err != nil {
		return err
	}
	now := time.Now()
	r.OrderID = orderID
	r.ConfirmedAt = &now
	for i := range r.Items {
		r.Items[i].Confirmed = true
	}
	return nil
}

// Cancel 取消预留单(领域行为)
func (r *Reservation) Cancel() error {
	if err := r.TransitionTo(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	r.CancelledAt = &now
	return nil
}

// Expire 过期预留单(领域行为)
// 与Cancel等价的库存效果,但终态是EXPIRED,便于区分主动取消和超时
func (r *Reservation) Expire() error {
	if err := r.TransitionTo(StatusExpired); err != nil {
		return err
	}
	now := time.Now()
	r.CancelledAt = &now
	return nil
}

// IsExpired 判断是否已超过有效期(只看时间,不看状态)
func (r *Reservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsValid 判断预留单当前是否有效
// PENDING未超时或CONFIRMED视为有效;终态(除CONFIRMED)一律无效
func (r *Reservation) IsValid(now time.Time) bool {
	switch r.Status {
	case StatusConfirmed:
		return true
	case StatusPending:
		return !r.IsExpired(now)
	default:
		return false
	}
}
