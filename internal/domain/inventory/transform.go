package inventory

// Transform 库存变更函数
// 设计说明:
// 1. 对Record的快照副本做纯内存修改,不做任何外部调用
// 2. 前置条件不满足时返回错误,Mutator不会重试业务性拒绝
// 3. 每次重试都对最新快照重新执行,库存充足性总是基于新数据判定
type Transform func(r *Record) error

// Reserve 可售→预留(创建预留单时逐行项执行)
// 可售数量不足时返回*InsufficientInventoryError,携带最新的可售数
func Reserve(qty int) Transform {
	return func(r *Record) error {
		if qty <= 0 {
			return ErrInvalidQuantity
		}
		if r.Available < qty {
			return &InsufficientInventoryError{
				SKU:       r.SKU,
				Requested: qty,
				Available: r.Available,
			}
		}
		r.Available -= qty
		r.Reserved += qty
		return nil
	}
}

// ConfirmSale 预留→售出(确认预留单时执行)
// 预留数不足说明预留单与库存已不一致,属于数据异常而非正常缺货
func ConfirmSale(qty int) Transform {
	return func(r *Record) error {
		if qty <= 0 {
			return ErrInvalidQuantity
		}
		if r.Reserved < qty {
			return ErrNegativeQuantity
		}
		r.Reserved -= qty
		r.Sold += qty
		return nil
	}
}

// Release 预留→可售(取消、过期、补偿释放时执行)
func Release(qty int) Transform {
	return func(r *Record) error {
		if qty <= 0 {
			return ErrInvalidQuantity
		}
		if r.Reserved < qty {
			return ErrNegativeQuantity
		}
		r.Reserved -= qty
		r.Available += qty
		return nil
	}
}

// Restock 外部补货,直接增加可售数量
// 这是唯一允许Total增长的变更
func Restock(qty int) Transform {
	return func(r *Record) error {
		if qty <= 0 {
			return ErrInvalidQuantity
		}
		r.Available += qty
		return nil
	}
}
