package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateTraceID(t *testing.T) {
	id := generateTraceID()
	if len(id) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(id))
	}
}

func TestGenerateSpanID(t *testing.T) {
	id := generateSpanID()
	if len(id) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(id))
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateTraceID()
		if seen[id] {
			t.Error("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should have new span ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be parent's span ID")
	}
}

func TestContextPropagation(t *testing.T) {
	tc := New()
	ctx := WithContext(context.Background(), tc)

	extracted, ok := FromContext(ctx)
	if !ok {
		t.Fatal("should extract trace context")
	}
	if extracted.TraceID != tc.TraceID {
		t.Error("extracted trace ID mismatch")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("should not find trace context in empty context")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if len(tc.TraceID) != 32 {
		t.Error("should create trace ID")
	}

	_, tc2 := EnsureContext(ctx)
	if tc2.TraceID != tc.TraceID {
		t.Error("should return existing trace")
	}
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test_op")
	if span.Name != "test_op" {
		t.Errorf("span name = %q, want %q", span.Name, "test_op")
	}
	span.SetAttr("key", 42)
	span.End()
	if span.Duration() < 0 {
		t.Error("span duration should not be negative")
	}

	tc, ok := FromContext(ctx)
	if !ok || tc.SpanID != span.Ctx.SpanID {
		t.Error("span context should be injected into the returned context")
	}
}

func TestMiddlewarePropagatesHeaders(t *testing.T) {
	var got Context
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(TraceIDKey, "abc123")
	req.Header.Set(SpanIDKey, "parent456")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID != "abc123" {
		t.Errorf("TraceID = %q, want abc123", got.TraceID)
	}
	if got.ParentSpanID != "parent456" {
		t.Errorf("ParentSpanID = %q, want parent456", got.ParentSpanID)
	}
	if len(got.SpanID) != 16 {
		t.Error("middleware should generate a fresh span ID")
	}
}

func TestMiddlewareCreatesTrace(t *testing.T) {
	var got Context
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(got.TraceID) != 32 {
		t.Error("middleware should create a trace ID when none is supplied")
	}
}
