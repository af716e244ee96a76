package middleware

import (
	"context"
	"encoding/json"
	"netbridge/errs"
	"netbridge/message"
	"testing"

	"go.uber.org/zap/zaptest"
)

// 模拟一个简单的 handler：直接返回成功响应
func echoHandler(ctx context.Context, req *message.Request) (*message.Response, error) {
	return message.Success(json.RawMessage(`"ok"`)), nil
}

func panicHandler(ctx context.Context, req *message.Request) (*message.Response, error) {
	var m map[string]int
	m["boom"]++
	return nil, nil
}

func failingHandler(ctx context.Context, req *message.Request) (*message.Response, error) {
	return message.Failure(string(errs.CategoryCrypto), "X", "Y"), nil
}

func TestLogging(t *testing.T) {
	logger := zaptest.NewLogger(t)
	req := &message.Request{Type: message.OpStore}

	resp, err := LoggingMiddleware(logger)(echoHandler)(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Response) != `"ok"` {
		t.Fatalf("expect response \"ok\", got '%s'", resp.Response)
	}

	resp, err = LoggingMiddleware(logger)(failingHandler)(context.Background(), req)
	if err != nil || resp.Error == nil || resp.Error.Code != "X" {
		t.Fatalf("expect error envelope to pass through, got %+v (%v)", resp, err)
	}
}

func TestRateLimit(t *testing.T) {
	// rate=1 per second, burst=2 → 前 2 个立刻放行，第 3 个被拒
	handler := RateLimitMiddleware(1, 2)(echoHandler)
	req := &message.Request{Type: message.OpPoll}

	for i := 0; i < 2; i++ {
		resp, err := handler(context.Background(), req)
		if err != nil || resp.Error != nil {
			t.Fatalf("request %d should pass, got %+v (%v)", i, resp, err)
		}
	}

	resp, err := handler(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Instance != "RuntimeError" || resp.Error.Code != errs.CodeRateLimited {
		t.Fatalf("request 3 should be rate limited, got: %+v", resp)
	}
	if resp.Error.Message != "rate limit exceeded" {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
}

func TestRecovery(t *testing.T) {
	handler := RecoveryMiddleware(zaptest.NewLogger(t))(panicHandler)

	resp, err := handler(context.Background(), &message.Request{Type: message.OpStore})
	if err == nil {
		t.Fatal("expect a fault after panic")
	}
	if resp != nil {
		t.Fatalf("expect no envelope after panic, got %+v", resp)
	}
	if _, typed := errs.As(err); typed {
		t.Fatal("a panic must not look like a bridge error")
	}
}

func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *message.Request) (*message.Response, error) {
				order = append(order, name+".before")
				resp, err := next(ctx, req)
				order = append(order, name+".after")
				return resp, err
			}
		}
	}

	handler := Chain(mark("A"), mark("B"), LoggingMiddleware(zaptest.NewLogger(t)))(echoHandler)
	resp, err := handler(context.Background(), &message.Request{Type: message.OpStore})
	if err != nil || resp == nil {
		t.Fatalf("expect response, got %+v (%v)", resp, err)
	}

	want := []string{"A.before", "B.before", "B.after", "A.after"}
	if len(order) != len(want) {
		t.Fatalf("expect %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expect %v, got %v", want, order)
		}
	}
}
