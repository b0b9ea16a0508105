package reservation

import (
	"errors"
	"testing"
	"time"
)

func newTestReservation(ttl time.Duration) *Reservation {
	return New("resv-1", []Item{
		{ProductID: 1, VariantID: 10, SKU: "sku-a", Region: "US", Quantity: 2},
		{ProductID: 2, VariantID: 20, SKU: "sku-b", Region: "US", Quantity: 1},
	}, ttl)
}

// TestReservation_New 测试工厂方法
func TestReservation_New(t *testing.T) {
	r := newTestReservation(30 * time.Minute)

	if r.Status != StatusPending {
		t.Errorf("期望初始状态PENDING,实际%v", r.Status)
	}
	if r.OrderID != "" {
		t.Error("确认前OrderID应为空")
	}
	if len(r.Items) != 2 {
		t.Errorf("期望2个行项,实际%d", len(r.Items))
	}
	if r.IsExpired(time.Now()) {
		t.Error("新建的预留单不应已过期")
	}
}

// TestReservation_Confirm 测试确认转移
func TestReservation_Confirm(t *testing.T) {
	r := newTestReservation(30 * time.Minute)

	if err := r.Confirm("order-100"); err != nil {
		t.Fatalf("确认失败: %v", err)
	}

	if r.Status != StatusConfirmed {
		t.Errorf("期望CONFIRMED,实际%v", r.Status)
	}
	if r.OrderID != "order-100" {
		t.Errorf("期望回填订单号,实际%q", r.OrderID)
	}
	if r.ConfirmedAt == nil {
		t.Error("应记录确认时间")
	}
	for i, item := range r.Items {
		if !item.Confirmed {
			t.Errorf("行项%d应标记为已确认", i)
		}
	}
}

// TestReservation_TerminalStates 测试终态不可再转移
func TestReservation_TerminalStates(t *testing.T) {
	cases := []struct {
		name string
		move func(r *Reservation) error
	}{
		{"确认后取消", func(r *Reservation) error { r.Confirm("o1"); return r.Cancel() }},
		{"取消后确认", func(r *Reservation) error { r.Cancel(); return r.Confirm("o1") }},
		{"过期后确认", func(r *Reservation) error { r.Expire(); return r.Confirm("o1") }},
		{"取消后过期", func(r *Reservation) error { r.Cancel(); return r.Expire() }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestReservation(30 * time.Minute)
			if err := tc.move(r); !errors.Is(err, ErrInvalidStatusTransition) {
				t.Errorf("期望ErrInvalidStatusTransition,实际: %v", err)
			}
		})
	}
}

// TestReservation_IsValid 测试有效性判定
func TestReservation_IsValid(t *testing.T) {
	now := time.Now()

	t.Run("PENDING未超时有效", func(t *testing.T) {
		r := newTestReservation(30 * time.Minute)
		if !r.IsValid(now) {
			t.Error("未超时的PENDING应有效")
		}
	})

	t.Run("PENDING超时无效", func(t *testing.T) {
		r := newTestReservation(0) // ttl=0立即过期
		if r.IsValid(now.Add(time.Millisecond)) {
			t.Error("超时的PENDING应无效")
		}
	})

	t.Run("CONFIRMED超时仍有效", func(t *testing.T) {
		r := newTestReservation(0)
		r.Confirm("o1")
		if !r.IsValid(now.Add(time.Hour)) {
			t.Error("CONFIRMED不受过期时间影响")
		}
	})

	t.Run("CANCELLED和EXPIRED无效", func(t *testing.T) {
		cancelled := newTestReservation(time.Hour)
		cancelled.Cancel()
		expired := newTestReservation(time.Hour)
		expired.Expire()

		if cancelled.IsValid(now) || expired.IsValid(now) {
			t.Error("终态(除CONFIRMED)应无效")
		}
	})
}

// TestReservation_Expire 测试过期转移记录时间戳
func TestReservation_Expire(t *testing.T) {
	r := newTestReservation(0)

	if err := r.Expire(); err != nil {
		t.Fatalf("过期转移失败: %v", err)
	}
	if r.Status != StatusExpired {
		t.Errorf("期望EXPIRED,实际%v", r.Status)
	}
	if r.CancelledAt == nil {
		t.Error("过期应记录释放时间")
	}
}
