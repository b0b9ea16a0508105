package inventory

import (
	"errors"
	"testing"
)

// TestTransform_Conservation 测试reserve/confirm/release序列下总量守恒
func TestTransform_Conservation(t *testing.T) {
	rec := &Record{SKU: "sku-1", Available: 10}
	before := rec.Total()

	steps := []Transform{
		Reserve(4),
		ConfirmSale(2),
		Release(2),
		Reserve(3),
		Release(3),
	}
	for i, tf := range steps {
		if err := tf(rec); err != nil {
			t.Fatalf("第%d步失败: %v", i, err)
		}
		if rec.Total() != before {
			t.Fatalf("第%d步后总量不守恒: %d != %d", i, rec.Total(), before)
		}
		if err := rec.Validate(); err != nil {
			t.Fatalf("第%d步后出现负数: %+v", i, rec)
		}
	}

	if rec.Available != 8 || rec.Reserved != 0 || rec.Sold != 2 {
		t.Errorf("最终状态错误: %+v", rec)
	}
}

// TestReserve_Insufficient 测试可售不足时的拒绝
func TestReserve_Insufficient(t *testing.T) {
	rec := &Record{SKU: "sku-1", Available: 3}

	err := Reserve(5)(rec)
	var insufficient *InsufficientInventoryError
	if !errors.As(err, &insufficient) {
		t.Fatalf("期望InsufficientInventoryError,实际: %v", err)
	}

	// 拒绝后快照不应被修改
	if rec.Available != 3 || rec.Reserved != 0 {
		t.Errorf("拒绝后快照被修改: %+v", rec)
	}
}

// TestTransform_InvalidQuantity 测试非正数量
func TestTransform_InvalidQuantity(t *testing.T) {
	rec := &Record{SKU: "sku-1", Available: 10, Reserved: 5}

	for name, tf := range map[string]Transform{
		"Reserve":     Reserve(0),
		"ConfirmSale": ConfirmSale(-1),
		"Release":     Release(0),
		"Restock":     Restock(-2),
	} {
		if err := tf(rec); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("%s: 期望ErrInvalidQuantity,实际: %v", name, err)
		}
	}
}

// TestTransform_ReservedUnderflow 测试预留数不足时确认/释放被拒绝
func TestTransform_ReservedUnderflow(t *testing.T) {
	rec := &Record{SKU: "sku-1", Available: 10, Reserved: 1}

	if err := ConfirmSale(2)(rec); !errors.Is(err, ErrNegativeQuantity) {
		t.Errorf("ConfirmSale: 期望ErrNegativeQuantity,实际: %v", err)
	}
	if err := Release(2)(rec); !errors.Is(err, ErrNegativeQuantity) {
		t.Errorf("Release: 期望ErrNegativeQuantity,实际: %v", err)
	}
}

// TestRestock 测试补货是唯一允许总量增长的路径
func TestRestock(t *testing.T) {
	rec := &Record{SKU: "sku-1", Available: 2, Sold: 8}
	before := rec.Total()

	if err := Restock(5)(rec); err != nil {
		t.Fatalf("补货失败: %v", err)
	}
	if rec.Total() != before+5 {
		t.Errorf("期望总量增加5,实际从%d变为%d", before, rec.Total())
	}
	if rec.Available != 7 {
		t.Errorf("期望可售7件,实际%d", rec.Available)
	}
}
