package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Bytes is a byte buffer whose JSON form is an array of byte values, e.g.
// []byte("hi") ⇄ [104,105].
//
// The wire carries no marker saying "this array is bytes": a field declared as
// Bytes is what tells the decoder to reinterpret the array.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	buf.Grow(len(b)*4 + 2)
	buf.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(v)))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts only arrays of integers in [0,255].
func (b *Bytes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	var values []json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return fmt.Errorf("codec: byte array expected: %w", err)
	}
	out := make([]byte, len(values))
	for i, n := range values {
		v, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("codec: byte %d is not an integer: %s", i, n)
		}
		if v < 0 || v > 255 {
			return fmt.Errorf("codec: byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
