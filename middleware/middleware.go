// Package middleware wraps the server's dispatch step.
//
// A handler receives a request whose envelope already passed the gate and returns
// either a response envelope or a fault. A fault is an error that is not a bridge
// error at all (a crash, a broken executor) and is never turned into an envelope.
package middleware

import (
	"context"
	"netbridge/message"
)

type HandlerFunc func(ctx context.Context, req *message.Request) (*message.Response, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain 将多个中间件组合成一个中间件
//
//	Chain(A, B, C)(handler) → A(B(C(handler)))
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
