// Package executor defines what the bridge server runs requests against.
//
// The bridge never knows how an operation is carried out. It hands the validated
// body to an Executor and only cares about the outcome:
//
//	result, nil        → {"response": result}   (message.Raw is sent as raw bytes)
//	nil, *errs.Error   → {"error": {...}}       recoverable, reported to the caller
//	nil, other error   → infrastructure fault, never wrapped in an envelope
package executor

import (
	"context"
	"fmt"
	"netbridge/errs"
	"netbridge/message"
	"sync"
)

// Executor carries out one validated request.
//
// body is the value produced by the operation's schema (a pointer to the typed
// body) or an empty map[string]any for operations without a schema.
type Executor interface {
	Execute(ctx context.Context, op message.Op, body any) (any, error)
}

// Func adapts a plain function to Executor.
type Func func(ctx context.Context, op message.Op, body any) (any, error)

func (f Func) Execute(ctx context.Context, op message.Op, body any) (any, error) {
	return f(ctx, op, body)
}

// HandlerFunc serves one operation.
type HandlerFunc func(ctx context.Context, body any) (any, error)

// Mux is an Executor that routes each operation to its own handler.
type Mux struct {
	mu       sync.RWMutex
	handlers map[message.Op]HandlerFunc
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[message.Op]HandlerFunc)}
}

// HandleFunc registers fn for op, replacing any previous handler.
func (m *Mux) HandleFunc(op message.Op, fn HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[op] = fn
}

// Handle registers a handler taking the typed body *T. A body of any other type
// reaching it means the schema registry and the handler disagree, which is a
// programming fault rather than a request error.
func Handle[T any](m *Mux, op message.Op, fn func(ctx context.Context, body *T) (any, error)) {
	m.HandleFunc(op, func(ctx context.Context, body any) (any, error) {
		typed, ok := body.(*T)
		if !ok {
			return nil, fmt.Errorf("executor: %s expects %T, got %T", op, typed, body)
		}
		return fn(ctx, typed)
	})
}

// Execute implements Executor. Operations without a handler are reported as a
// recoverable runtime error.
func (m *Mux) Execute(ctx context.Context, op message.Op, body any) (any, error) {
	m.mu.RLock()
	fn, ok := m.handlers[op]
	m.mu.RUnlock()
	if !ok {
		return nil, errs.Runtime(errs.CodeUnsupportedRequest, "unsupported request: "+string(op))
	}
	return fn(ctx, body)
}
