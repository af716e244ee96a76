package middleware

import (
	"context"
	"fmt"
	"netbridge/message"

	"go.uber.org/zap"
)

// RecoveryMiddleware turns a panic below it into a fault so the server answers
// with a bare 500 instead of dropping the connection.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (resp *message.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic while handling request",
						zap.String("op", string(req.Type)),
						zap.Any("panic", r),
						zap.Stack("stack"))
					resp, err = nil, fmt.Errorf("middleware: panic in %s: %v", req.Type, r)
				}
			}()
			return next(ctx, req)
		}
	}
}
