package device

import (
	"encoding/json"
	"fmt"
)

// An extractor returns a message for v, or false when v does not match.
type extractor func(v any) (string, bool)

// errorExtractors is tried in order and the first match wins. Callers rely
// on this order for the text they show, so it must not be rearranged.
var errorExtractors = []extractor{
	fromString,
	fromField("message"),
	fromField("error"),
	fromStringer,
}

// ErrorMessage turns an arbitrary failure value reported by a toolchain into
// display text:
//
//  1. a string is used as is;
//  2. an object with a non-empty "message" field yields that field;
//  3. an object with a non-empty "error" field yields that field;
//  4. a value with a meaningful string form (error, fmt.Stringer, scalar)
//     yields that form;
//  5. anything else is serialized as JSON.
func ErrorMessage(v any) string {
	for _, extract := range errorExtractors {
		if msg, ok := extract(v); ok {
			return msg
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}

func fromString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func fromField(name string) extractor {
	return func(v any) (string, bool) {
		obj, ok := v.(map[string]any)
		if !ok {
			return "", false
		}
		s, ok := obj[name].(string)
		if !ok || s == "" {
			return "", false
		}
		return s, true
	}
}

func fromStringer(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case error:
		s = t.Error()
	case fmt.Stringer:
		s = t.String()
	case bool, float64, float32, int, int64, int32, uint, uint64, uint32, json.Number:
		s = fmt.Sprint(t)
	default:
		return "", false
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// DecodeErrorValue parses a raw JSON failure value into the generic form
// ErrorMessage understands. Undecodable input is returned as a string.
func DecodeErrorValue(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
