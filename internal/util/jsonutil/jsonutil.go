package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

const fence = "```"

// StripCodeFence removes a Markdown code fence (```json ... ``` or ``` ... ```)
// around model output. Text that is already valid JSON is returned trimmed
// and untouched, even when a string value contains a fence. Otherwise leading
// prose before the opening fence and trailing prose after the closing fence
// are dropped.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if json.Valid([]byte(s)) {
		return s
	}
	open := strings.Index(s, fence)
	if open < 0 {
		return s
	}
	body := s[open+len(fence):]
	body = skipFenceTag(body)
	if end := strings.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// skipFenceTag drops the info string right after an opening fence ("json",
// "JSON", "jsonc") so that the payload starts at its first real character.
func skipFenceTag(s string) string {
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			i++
			continue
		}
		break
	}
	return s[i:]
}

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c, etc.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnescapeUnicodeString converts JSON unicode escapes like "\u003e" into actual characters.
// Strings that are not a valid JSON string body once quoted return an error.
func UnescapeUnicodeString(s string) (string, error) {
	if !strings.Contains(s, `\u`) {
		return s, nil
	}
	esc := strings.ReplaceAll(s, `"`, `\"`)
	var out string
	if err := json.Unmarshal([]byte(`"`+esc+`"`), &out); err != nil {
		return "", err
	}
	return out, nil
}

// NormalizeJSONUnicode parses JSON bytes and recursively unescapes any remaining
// double-escaped unicode sequences (e.g. "\\u003e") inside string values.
// A payload that is itself a JSON string holding an object is unwrapped once.
func NormalizeJSONUnicode(raw []byte) ([]byte, error) {
	var anyVal any
	if err := json.Unmarshal(raw, &anyVal); err != nil {
		return nil, err
	}
	if s, ok := anyVal.(string); ok {
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal([]byte(trimmed), &anyVal); err != nil {
				return nil, errors.New("jsonutil: cannot parse quoted JSON payload")
			}
		}
	}
	return MarshalNoEscape(deepUnescape(anyVal))
}

// UnmarshalFlex tries a direct unmarshal first and falls back to
// NormalizeJSONUnicode. Models occasionally return the whole object as a
// quoted string, or with double-escaped unicode.
func UnmarshalFlex(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	} else if !json.Valid(raw) {
		return err
	}
	norm, err := NormalizeJSONUnicode(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, v)
}

func deepUnescape(v any) any {
	switch x := v.(type) {
	case string:
		if s, err := UnescapeUnicodeString(x); err == nil {
			return s
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = deepUnescape(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = deepUnescape(vv)
		}
		return out
	default:
		return v
	}
}
