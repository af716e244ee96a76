package server

import (
	"encoding/json"
	"netbridge/errs"
	"netbridge/message"
)

// parseEnvelope is step 1 of the gate: raw must be a JSON object whose "type" is
// a known operation and which carries a "body" member (null allowed).
func parseEnvelope(raw []byte) (*message.Request, *errs.Error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, errs.Validation(errs.CodeGeneric, errs.MsgInvalidPayload)
	}

	var op message.Op
	if err := json.Unmarshal(fields["type"], &op); err != nil || !op.Valid() {
		return nil, errs.Validation(errs.CodeGeneric, errs.MsgInvalidPayload)
	}
	body, ok := fields["body"]
	if !ok {
		return nil, errs.Validation(errs.CodeGeneric, errs.MsgInvalidPayload)
	}
	return &message.Request{Type: op, Body: body}, nil
}

// validateBody is step 2: decode the body with the operation's schema. An
// operation without a schema gets an empty object, whatever was sent.
func (svr *Server) validateBody(req *message.Request) (any, *errs.Error) {
	s, ok := svr.schemas.Lookup(req.Type)
	if !ok {
		return map[string]any{}, nil
	}
	body, err := s.Decode(req.Body)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryValidation, errs.CodeGeneric, errs.MsgInvalidBody, err)
	}
	return body, nil
}
