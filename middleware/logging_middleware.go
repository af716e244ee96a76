package middleware

import (
	"context"
	"netbridge/message"
	"time"

	"go.uber.org/zap"
)

func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			fields := []zap.Field{
				zap.String("op", string(req.Type)),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case err != nil:
				logger.Error("request fault", append(fields, zap.Error(err))...)
			case resp != nil && resp.Error != nil:
				logger.Info("request failed", append(fields,
					zap.String("instance", resp.Error.Instance),
					zap.String("code", resp.Error.Code),
					zap.String("message", resp.Error.Message))...)
			default:
				logger.Debug("request served", append(fields, zap.Bool("raw", resp != nil && resp.Raw != nil))...)
			}
			return resp, err
		}
	}
}
