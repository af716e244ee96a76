package codec

import (
	"encoding/json"
	"netbridge/message"
)

// JSONCodec uses Go's standard library encoding/json for serialization.
// Values are passed through Normalize first so byte buffers leave as integer
// arrays instead of encoding/json's default base64 strings.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(Normalize(v))
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}

func (c *JSONCodec) ContentType() string {
	return message.ContentTypeJSON
}
