package client

import (
	"netbridge/codec"
	"netbridge/errs"
)

// Result is a successful reply: either the JSON "response" member or raw bytes.
type Result struct {
	raw         bool
	data        []byte
	contentType string
}

// IsRaw reports whether the server answered with raw bytes instead of an envelope.
func (r *Result) IsRaw() bool {
	return r.raw
}

// Bytes returns the raw reply, or the JSON text of the response member.
func (r *Result) Bytes() []byte {
	return r.data
}

// ContentType is the reply's declared content type.
func (r *Result) ContentType() string {
	return r.contentType
}

// Decode stores the result in v. JSON results decode like encoding/json (use
// codec.Bytes for byte-array fields); raw results only fit *[]byte-like targets.
func (r *Result) Decode(v any) error {
	c := codec.GetCodec(codec.CodecTypeJSON)
	if r.raw {
		c = codec.GetCodec(codec.CodecTypeBinary)
	}
	if err := c.Decode(r.data, v); err != nil {
		return errs.Wrap(errs.CategoryFetch, errs.CodeInvalidResponse, "Invalid response body: "+err.Error(), err)
	}
	return nil
}
