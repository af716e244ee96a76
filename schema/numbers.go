package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

var (
	errNotIntegral = errors.New("schema: not an integer")

	// jsonNumber is the JSON number grammar, without surrounding space.
	jsonNumber = regexp.MustCompile(`^-?(?:0|[1-9][0-9]*)(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?$`)
)

// maxExponent bounds the exponent handed to big.Rat; anything larger cannot be
// an integer in int64 range once ParseFloat has accepted it.
const maxExponent = 400

// integral parses a JSON number whose value is a whole number in int64 range,
// however it is written: 5, 5.0, 5e0 and 0.5e1 are all 5.
func integral(text string) (int64, error) {
	if !jsonNumber.MatchString(text) {
		return 0, errNotIntegral
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, errNotIntegral
	}
	if i := strings.IndexAny(text, "eE"); i >= 0 {
		exp, err := strconv.Atoi(text[i+1:])
		if err != nil || exp > maxExponent || exp < -maxExponent {
			return 0, errNotIntegral
		}
	}
	// ParseFloat rounds; big.Rat is exact, so 1.0000000000000000001 is refused.
	r, ok := new(big.Rat).SetString(text)
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return 0, errNotIntegral
	}
	return r.Num().Int64(), nil
}

// canonicalIntegers rewrites every integral number in raw written with a
// fraction or exponent into plain integer form, so typed integer fields accept
// 1.0 and 1e3. Other numbers are kept verbatim. Input that does not parse is
// returned unchanged for the decoder to reject.
func canonicalIntegers(raw json.RawMessage) json.RawMessage {
	if !bytes.ContainsAny(raw, ".eE") {
		return raw
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	if _, err := dec.Token(); err != io.EOF {
		return raw
	}
	v, changed := rewriteIntegers(v)
	if !changed {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

func rewriteIntegers(v any) (any, bool) {
	switch t := v.(type) {
	case json.Number:
		if !strings.ContainsAny(string(t), ".eE") {
			return t, false
		}
		if n, err := integral(string(t)); err == nil {
			return json.Number(strconv.FormatInt(n, 10)), true
		}
		return t, false
	case []any:
		changed := false
		for i, e := range t {
			var c bool
			t[i], c = rewriteIntegers(e)
			changed = changed || c
		}
		return t, changed
	case map[string]any:
		changed := false
		for k, e := range t {
			var c bool
			t[k], c = rewriteIntegers(e)
			changed = changed || c
		}
		return t, changed
	}
	return v, false
}
