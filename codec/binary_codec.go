package codec

import (
	"fmt"
	"netbridge/message"
)

// BinaryCodec carries raw results. Nothing is interpreted: the bytes on the wire
// are the bytes the executor returned.
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	switch b := v.(type) {
	case message.Raw:
		return b, nil
	case []byte:
		return b, nil
	case Bytes:
		return b, nil
	}
	return nil, fmt.Errorf("BinaryCodec: cannot encode %T", v)
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	switch p := v.(type) {
	case *[]byte:
		*p = buf
	case *message.Raw:
		*p = buf
	case *Bytes:
		*p = buf
	default:
		return fmt.Errorf("BinaryCodec: cannot decode into %T", v)
	}
	return nil
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}

func (c *BinaryCodec) ContentType() string {
	return message.ContentTypeBinary
}
