package saga

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestSaga_AllStepsSucceed 测试全部步骤成功时不触发补偿
func TestSaga_AllStepsSucceed(t *testing.T) {
	executed := make([]string, 0)
	compensated := make([]string, 0)

	s := New(5 * time.Second)
	for _, name := range []string{"a", "b", "c"} {
		name := name
		s.AddStep(name,
			func(ctx context.Context) error {
				executed = append(executed, name)
				return nil
			},
			func(ctx context.Context) error {
				compensated = append(compensated, name)
				return nil
			})
	}

	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("期望成功，实际失败: %v", err)
	}

	if len(executed) != 3 {
		t.Errorf("期望执行3个步骤，实际%d个", len(executed))
	}
	if len(compensated) != 0 {
		t.Errorf("成功路径不应触发补偿，实际补偿了%v", compensated)
	}
}

// TestSaga_CompensateInReverseOrder 测试失败时逆序补偿已完成步骤
func TestSaga_CompensateInReverseOrder(t *testing.T) {
	compensated := make([]string, 0)
	stepErr := errors.New("step c failed")

	s := New(5 * time.Second)
	s.AddStep("a",
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error {
			compensated = append(compensated, "a")
			return nil
		})
	s.AddStep("b",
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error {
			compensated = append(compensated, "b")
			return nil
		})
	s.AddStep("c",
		func(ctx context.Context) error { return stepErr },
		func(ctx context.Context) error {
			compensated = append(compensated, "c")
			return nil
		})

	err := s.Execute(context.Background())
	if !errors.Is(err, stepErr) {
		t.Fatalf("期望返回触发失败的原始错误，实际%v", err)
	}

	// 失败步骤自身的Action未完成，不应被补偿
	if len(compensated) != 2 || compensated[0] != "b" || compensated[1] != "a" {
		t.Errorf("期望逆序补偿[b a]，实际%v", compensated)
	}
}

// TestSaga_CompensateFailureContinues 测试补偿失败不中断后续补偿
func TestSaga_CompensateFailureContinues(t *testing.T) {
	compensated := make([]string, 0)
	failedSteps := make([]string, 0)

	s := New(5 * time.Second)
	s.SetCompensateErrorCallback(func(stepName string, err error) {
		failedSteps = append(failedSteps, stepName)
	})

	s.AddStep("a",
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error {
			compensated = append(compensated, "a")
			return nil
		})
	s.AddStep("b",
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error {
			return errors.New("compensate b failed")
		})
	s.AddStep("c",
		func(ctx context.Context) error { return errors.New("boom") },
		nil)

	_ = s.Execute(context.Background())

	// b的补偿失败后，a的补偿仍应执行
	if len(compensated) != 1 || compensated[0] != "a" {
		t.Errorf("期望a被补偿，实际%v", compensated)
	}
	if len(failedSteps) != 1 || failedSteps[0] != "b" {
		t.Errorf("期望上报b补偿失败，实际%v", failedSteps)
	}
}

// TestSaga_NilCompensate 测试无补偿操作的步骤
func TestSaga_NilCompensate(t *testing.T) {
	s := New(5 * time.Second)
	s.AddStep("a", func(ctx context.Context) error { return nil }, nil)
	s.AddStep("b", func(ctx context.Context) error { return errors.New("boom") }, nil)

	if err := s.Execute(context.Background()); err == nil {
		t.Fatal("期望返回错误")
	}
}

// TestSaga_Timeout 测试整体超时触发补偿
func TestSaga_Timeout(t *testing.T) {
	compensated := false

	s := New(50 * time.Millisecond)
	s.AddStep("slow",
		func(ctx context.Context) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		},
		func(ctx context.Context) error {
			compensated = true
			return nil
		})
	s.AddStep("never",
		func(ctx context.Context) error { return nil }, nil)

	err := s.Execute(context.Background())
	if err == nil {
		t.Fatal("期望超时错误")
	}
	if !compensated {
		t.Error("超时后应补偿已完成的步骤")
	}
}
