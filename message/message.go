// Package message defines the envelopes exchanged between bridge client and server.
//
// One HTTP POST carries a Request envelope; the reply carries either a Response
// envelope or, for binary results, raw bytes with a non-JSON content type:
//
//	→ {"type":"Store","body":{...}}
//	← {"response":{...}}                                   success
//	← {"error":{"instance":"...","code":"...","message":"..."}}  failure
//	← <octet-stream bytes>                                 raw success
package message

import (
	"encoding/json"
	"errors"
)

// Op identifies one remote operation. The set is closed.
type Op string

const (
	OpPoll               Op = "Poll"
	OpStore              Op = "Store"
	OpGetSnodes          Op = "GetSnodes"
	OpGetSwarms          Op = "GetSwarms"
	OpUploadAttachment   Op = "UploadAttachment"
	OpDownloadAttachment Op = "DownloadAttachment"
)

// Ops lists every known operation.
var Ops = []Op{OpPoll, OpStore, OpGetSnodes, OpGetSwarms, OpUploadAttachment, OpDownloadAttachment}

// Valid reports whether op is a member of the operation set.
func (op Op) Valid() bool {
	switch op {
	case OpPoll, OpStore, OpGetSnodes, OpGetSwarms, OpUploadAttachment, OpDownloadAttachment:
		return true
	}
	return false
}

// Request carries the data for a single bridge call.
//
// Body stays undecoded until the server picks the operation's schema.
type Request struct {
	Type Op              `json:"type"`
	Body json.RawMessage `json:"body"`
}

// ErrorBody is the wire form of a typed error.
type ErrorBody struct {
	Instance string `json:"instance"` // category name, e.g. "CryptoError"
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Response is the reply envelope. Exactly one of Response and Error is set.
//
// Raw never travels inside the envelope: when set by the server, the bytes are
// written instead of the JSON form.
type Response struct {
	Response json.RawMessage `json:"response,omitempty"`
	Error    *ErrorBody      `json:"error,omitempty"`
	Raw      Raw             `json:"-"`
}

// Raw is a binary result sent as-is instead of a JSON envelope.
type Raw []byte

// ContentType values understood by both ends.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"
)

var (
	ErrBothSet    = errors.New("message: envelope carries both response and error")
	ErrNeitherSet = errors.New("message: envelope carries neither response nor error")
)

// Check enforces the exactly-one-of rule.
func (r *Response) Check() error {
	hasResponse := len(r.Response) > 0
	if hasResponse && r.Error != nil {
		return ErrBothSet
	}
	if !hasResponse && r.Error == nil {
		return ErrNeitherSet
	}
	return nil
}

// Success wraps an already encoded result.
func Success(result json.RawMessage) *Response {
	return &Response{Response: result}
}

// Failure wraps an error body.
func Failure(instance, code, msg string) *Response {
	return &Response{Error: &ErrorBody{Instance: instance, Code: code, Message: msg}}
}
