package codec

import (
	"bytes"
	"encoding/json"
	"netbridge/message"
	"reflect"
	"testing"
	"time"
)

type attachmentBody struct {
	Name  string  `json:"name"`
	Data  Bytes   `json:"data"`
	Parts []Bytes `json:"parts"`
}

func TestJSONCodecEncodesBuffersAsByteArrays(t *testing.T) {
	jsonCodec := &JSONCodec{}

	body := map[string]any{
		"raw":    []byte{0, 1, 255},
		"nested": map[string]any{"deep": []any{Bytes{7, 8}, "x", 3}},
		"fixed":  [4]byte{9, 9, 9, 9},
		"text":   "hello",
		"n":      42,
		"flag":   true,
		"none":   nil,
	}

	data, err := jsonCodec.Encode(map[string]any{"type": message.OpUploadAttachment, "body": body})
	if err != nil {
		t.Fatalf("JSONCodec Encode failed: %v", err)
	}

	var decoded map[string]any
	if err := jsonCodec.Decode(data, &decoded); err != nil {
		t.Fatalf("JSONCodec Decode failed: %v", err)
	}

	got := decoded["body"].(map[string]any)
	if !reflect.DeepEqual(got["raw"], []any{0.0, 1.0, 255.0}) {
		t.Errorf("raw mismatch: got %v", got["raw"])
	}
	if !reflect.DeepEqual(got["fixed"], []any{9.0, 9.0, 9.0, 9.0}) {
		t.Errorf("fixed mismatch: got %v", got["fixed"])
	}
	deep := got["nested"].(map[string]any)["deep"].([]any)
	if !reflect.DeepEqual(deep, []any{[]any{7.0, 8.0}, "x", 3.0}) {
		t.Errorf("deep mismatch: got %v", deep)
	}
	if got["text"] != "hello" || got["n"] != 42.0 || got["flag"] != true || got["none"] != nil {
		t.Errorf("scalars changed: %v", got)
	}
}

// Encoding and then decoding through a schema that declares Bytes fields must
// give back the exact buffers.
func TestBytesRoundTripThroughSchema(t *testing.T) {
	original := attachmentBody{
		Name:  "blob",
		Data:  Bytes{0x00, 0x7f, 0x80, 0xff},
		Parts: []Bytes{{1}, {}, {2, 3, 4}},
	}
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	original.Parts = append(original.Parts, all)

	data, err := (&JSONCodec{}).Encode(original)
	if err != nil {
		t.Fatal(err)
	}

	var decoded attachmentBody
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(decoded.Data, original.Data) {
		t.Fatalf("Data mismatch: got %v, want %v", decoded.Data, original.Data)
	}
	if len(decoded.Parts) != len(original.Parts) {
		t.Fatalf("Parts length mismatch: got %d", len(decoded.Parts))
	}
	for i := range original.Parts {
		if !bytes.Equal(decoded.Parts[i], original.Parts[i]) {
			t.Fatalf("Parts[%d] mismatch: got %v, want %v", i, decoded.Parts[i], original.Parts[i])
		}
	}
}

func TestBytesUnmarshalRejects(t *testing.T) {
	for _, in := range []string{`[256]`, `[-1]`, `[1.5]`, `"AQID"`, `{"0":1}`, `[true]`} {
		var b Bytes
		if err := json.Unmarshal([]byte(in), &b); err == nil {
			t.Errorf("expect %s to be rejected, got %v", in, b)
		}
	}

	var b Bytes
	if err := json.Unmarshal([]byte(`[1,2,3]`), &b); err != nil || !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Fatalf("expect [1 2 3], got %v (%v)", b, err)
	}
}

func TestNormalizeLeavesRawMessage(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)
	got := Normalize(map[string]any{"r": raw})
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"r":{"a":1}}` {
		t.Fatalf("expect RawMessage untouched, got %s", data)
	}
}

func TestNormalizeTypedContainers(t *testing.T) {
	type blob struct{ N int }
	got := Normalize(map[string][]byte{"k": {5}})
	if !reflect.DeepEqual(got, map[string]any{"k": []int{5}}) {
		t.Fatalf("map of buffers: got %#v", got)
	}

	b := &blob{N: 1}
	if !reflect.DeepEqual(Normalize(b), map[string]any{"N": 1}) {
		t.Fatalf("struct pointers must be walked, got %#v", Normalize(b))
	}
	var nilBlob *blob
	if Normalize(nilBlob) != any(nilBlob) {
		t.Fatalf("nil pointers must pass through")
	}
	if !reflect.DeepEqual(Normalize(map[int][]byte{7: {1}}), map[string]any{"7": []int{1}}) {
		t.Fatalf("integer map keys must be rendered as strings")
	}
	if Normalize(message.Raw{1, 2}) == nil {
		t.Fatalf("named byte slices must be normalized")
	}
}

type stamped struct {
	At time.Time `json:"at"`
}

type innerDigest struct {
	Digest []byte `json:"digest"`
	Shadow string `json:"id"`
}

type uploadResult struct {
	innerDigest
	ID      string `json:"id"`
	Size    int    `json:"size,omitempty"`
	Secret  string `json:"-"`
	Dash    string `json:"-,"`
	Count   int64  `json:"count,string"`
	Note    *string
	private int
}

func TestNormalizeStructsEncodeBuffersAsByteArrays(t *testing.T) {
	res := uploadResult{
		innerDigest: innerDigest{Digest: []byte{0, 127, 255}, Shadow: "hidden"},
		ID:          "a",
		Secret:      "s",
		Dash:        "d",
		Count:       3,
		private:     1,
	}

	for name, v := range map[string]any{"value": res, "pointer": &res} {
		data, err := (&JSONCodec{}).Encode(v)
		if err != nil {
			t.Fatalf("%s: encode failed: %v", name, err)
		}
		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		want := map[string]any{
			"id":     "a",
			"digest": []any{float64(0), float64(127), float64(255)},
			"-":      "d",
			"count":  "3",
			"Note":   nil,
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %s", name, data)
		}
	}
}

func TestNormalizeKeepsSelfEncodingValues(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := (&JSONCodec{}).Encode(stamped{At: at})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"at":"2024-01-02T03:04:05Z"}` {
		t.Fatalf("expect time to marshal itself, got %s", data)
	}

	data, err = (&JSONCodec{}).Encode(struct {
		Data Bytes `json:"data"`
	}{Data: Bytes{9}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"data":[9]}` {
		t.Fatalf("expect Bytes field as byte values, got %s", data)
	}
}

func TestBinaryCodec(t *testing.T) {
	binaryCodec := &BinaryCodec{}

	original := message.Raw{0xde, 0xad, 0xbe, 0xef}
	data, err := binaryCodec.Encode(original)
	if err != nil {
		t.Fatalf("BinaryCodec Encode failed: %v", err)
	}

	var decoded []byte
	if err := binaryCodec.Decode(data, &decoded); err != nil {
		t.Fatalf("BinaryCodec Decode failed: %v", err)
	}
	if !bytes.Equal(decoded, original) {
		t.Errorf("Payload mismatch: got %x, want %x", decoded, original)
	}

	if _, err := binaryCodec.Encode("text"); err == nil {
		t.Errorf("expect error encoding a string")
	}
}

func TestForContentType(t *testing.T) {
	cases := map[string]CodecType{
		"application/json":                CodecTypeJSON,
		"application/json; charset=utf-8": CodecTypeJSON,
		"Application/JSON":                CodecTypeJSON,
		"application/octet-stream":        CodecTypeBinary,
		"text/plain":                      CodecTypeBinary,
		"":                                CodecTypeBinary,
	}
	for ct, want := range cases {
		if got := ForContentType(ct).Type(); got != want {
			t.Errorf("%q: expect %d, got %d", ct, want, got)
		}
	}
}
