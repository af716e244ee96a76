// Package codec turns bridge values into wire bytes and back.
//
// Two codecs exist, one per response shape on the wire:
//
//	JSONCodec    application/json          envelopes; binary buffers become [0..255] int arrays
//	BinaryCodec  application/octet-stream  raw results, bytes passed through untouched
package codec

import (
	"mime"
	"netbridge/message"
)

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeBinary CodecType = 1
)

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType // 0=JSON, 1=Binary
	ContentType() string
}

func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}

	return &BinaryCodec{}
}

// ForContentType picks the codec for a response's declared content type.
// Only application/json (parameters ignored) selects JSON; everything else,
// including a missing header, is opaque binary.
func ForContentType(contentType string) Codec {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType == message.ContentTypeJSON {
		return &JSONCodec{}
	}
	return &BinaryCodec{}
}
