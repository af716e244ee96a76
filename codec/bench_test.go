package codec

import (
	"bytes"
	"testing"
)

// 场景: JSON 编解码性能（不走网络，纯 codec）. Byte buffers dominate the cost.
func BenchmarkCodecJSON(b *testing.B) {
	cdc := GetCodec(CodecTypeJSON)
	msg := map[string]any{
		"type": "UploadAttachment",
		"body": map[string]any{"data": bytes.Repeat([]byte{0xab}, 4096)},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, _ := cdc.Encode(msg)
		var out struct {
			Body struct {
				Data Bytes `json:"data"`
			} `json:"body"`
		}
		cdc.Decode(data, &out)
	}
}

// 场景: Binary 编解码性能（不走网络，纯 codec）
func BenchmarkCodecBinary(b *testing.B) {
	cdc := GetCodec(CodecTypeBinary)
	msg := bytes.Repeat([]byte{0xab}, 4096)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, _ := cdc.Encode(msg)
		var out []byte
		cdc.Decode(data, &out)
	}
}
