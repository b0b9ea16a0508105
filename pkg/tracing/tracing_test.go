package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// 测试不依赖运行中的Collector：exporter懒连接，Span在本地创建即有效

func initTestTracer(t *testing.T) {
	shutdown, err := InitTracer("inventory-engine-test", "localhost:4317")
	if err != nil {
		t.Fatalf("初始化Tracer失败: %v", err)
	}
	t.Cleanup(func() {
		shutdown(context.Background())
	})
}

// TestStartSpan 测试Span创建与父子关系
func TestStartSpan(t *testing.T) {
	initTestTracer(t)

	t.Run("创建根Span", func(t *testing.T) {
		ctx, span := StartSpan(context.Background(), "inventory-engine", "ReserveStock")
		defer span.End()
		_ = ctx

		if !span.SpanContext().IsValid() {
			t.Error("Span无效")
		}

		traceID := span.SpanContext().TraceID().String()
		if traceID == "" || traceID == "00000000000000000000000000000000" {
			t.Errorf("TraceID无效: %s", traceID)
		}
	})

	t.Run("创建子Span", func(t *testing.T) {
		ctx, rootSpan := StartSpan(context.Background(), "inventory-engine", "ReserveStock")
		defer rootSpan.End()

		rootTraceID := rootSpan.SpanContext().TraceID().String()
		rootSpanID := rootSpan.SpanContext().SpanID().String()

		_, childSpan := StartSpan(ctx, "inventory-engine", "RegionCall")
		defer childSpan.End()

		// 子Span继承根Span的TraceID
		if got := childSpan.SpanContext().TraceID().String(); got != rootTraceID {
			t.Errorf("子Span的TraceID不匹配: root=%s, child=%s", rootTraceID, got)
		}
		if childSpan.SpanContext().SpanID().String() == rootSpanID {
			t.Error("子Span的SpanID不应与根Span相同")
		}
	})
}

// TestSpanAttributes 测试降级路径的属性标注
func TestSpanAttributes(t *testing.T) {
	initTestTracer(t)

	ctx, span := StartSpan(context.Background(), "inventory-engine", "RegionFallback")
	defer span.End()
	_ = ctx

	span.SetAttributes(
		attribute.String("region.primary", "US"),
		attribute.String("region.served_by", "EU"),
		attribute.String("fallback.path", "secondary"),
		attribute.Int("mutator.attempts", 2),
	)
	span.SetStatus(codes.Ok, "降级到备用区域成功")
}

// TestExtractTraceID 测试TraceID提取
func TestExtractTraceID(t *testing.T) {
	initTestTracer(t)

	t.Run("有效Context", func(t *testing.T) {
		ctx, span := StartSpan(context.Background(), "inventory-engine", "ConfirmReservation")
		defer span.End()

		traceID := ExtractTraceID(ctx)
		if len(traceID) != 32 {
			t.Errorf("TraceID长度错误: expected=32, got=%d", len(traceID))
		}

		spanID := ExtractSpanID(ctx)
		if len(spanID) != 16 {
			t.Errorf("SpanID长度错误: expected=16, got=%d", len(spanID))
		}
	})

	t.Run("无Span的Context", func(t *testing.T) {
		if got := ExtractTraceID(context.Background()); got != "" {
			t.Errorf("期望空字符串，实际: %s", got)
		}
		if got := ExtractSpanID(context.Background()); got != "" {
			t.Errorf("期望空字符串，实际: %s", got)
		}
	})
}
