package server

import (
	"context"
	"fmt"
	"netbridge/codec"
	"netbridge/errs"
	"netbridge/message"

	"go.uber.org/zap"
)

// Handle runs one raw envelope through the gate, the middleware chain and the
// executor. It is the transport-agnostic entry behind the HTTP handler.
//
// The returned response carries either an envelope or Raw bytes. A non-nil
// error is an infrastructure fault and has no envelope.
func (svr *Server) Handle(ctx context.Context, raw []byte) (*message.Response, error) {
	req, gateErr := parseEnvelope(raw)
	if gateErr != nil {
		svr.logger.Debug("rejected envelope", zap.Int("size", len(raw)))
		return failure(gateErr), nil
	}
	return svr.chain()(ctx, req)
}

// serveRequest is the innermost handler of the chain: body validation, then
// dispatch.
func (svr *Server) serveRequest(ctx context.Context, req *message.Request) (*message.Response, error) {
	body, gateErr := svr.validateBody(req)
	if gateErr != nil {
		svr.logger.Debug("rejected body", zap.String("op", string(req.Type)), zap.Error(gateErr.Cause))
		return failure(gateErr), nil
	}
	return svr.dispatch(ctx, req.Type, body)
}

// dispatch executes a validated request and shapes the outcome.
func (svr *Server) dispatch(ctx context.Context, op message.Op, body any) (*message.Response, error) {
	result, err := svr.exec.Execute(ctx, op, body)
	if err != nil {
		if e, ok := errs.As(err); ok {
			return failure(e), nil
		}
		return nil, fmt.Errorf("server: execute %s: %w", op, err)
	}

	if raw, ok := result.(message.Raw); ok {
		if raw == nil {
			raw = message.Raw{}
		}
		return &message.Response{Raw: raw}, nil
	}

	encoded, err := codec.GetCodec(codec.CodecTypeJSON).Encode(result)
	if err != nil {
		return nil, fmt.Errorf("server: encode %s result: %w", op, err)
	}
	return message.Success(encoded), nil
}

func failure(e *errs.Error) *message.Response {
	return message.Failure(e.Name(), e.Code, e.Message)
}
