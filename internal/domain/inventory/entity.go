package inventory

import (
	"time"
)

// Record 库存记录实体(聚合根)
// 设计说明:
// 1. 每个SKU一行,由其所属区域的数据库独占持有
// 2. 三个计数器描述一件商品的完整去向:可售/已预留/已售出
// 3. Version是乐观锁版本戳,所有变更必须经过Mutator的条件写
// 4. 记录只调整不删除(下架商品库存归零,保留历史)
type Record struct {
	ID        uint
	SKU       string
	Available int   // 可售数量
	Reserved  int   // 已预留数量(挂在PENDING预留单上)
	Sold      int   // 已售出数量
	Version   int64 // 乐观锁版本戳,单调递增
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone 复制一份快照
// Mutator对副本应用Transform,失败时原快照不受污染
func (r *Record) Clone() *Record {
	clone := *r
	return &clone
}

// Total 三个计数器之和
// 不变式:无外部补货时,任意reserve/confirm/cancel序列下Total不变
func (r *Record) Total() int {
	return r.Available + r.Reserved + r.Sold
}

// Validate 校验计数器合法性
// 任何字段都不允许为负,这是条件写之前的最后一道防线
func (r *Record) Validate() error {
	if r.Available < 0 || r.Reserved < 0 || r.Sold < 0 {
		return ErrNegativeQuantity
	}
	return nil
}
