package middleware

import (
	"context"
	"netbridge/errs"
	"netbridge/message"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware 创建一个基于令牌桶算法的限流中间件
// A rejected request gets a RuntimeError(RateLimited) envelope; the executor is not called.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			if !limiter.Allow() {
				return message.Failure(string(errs.CategoryRuntime), errs.CodeRateLimited, "rate limit exceeded"), nil
			}
			return next(ctx, req)
		}
	}
}
