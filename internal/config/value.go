package config

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind discriminates the Value union.
type Kind int

const (
	KindUnset Kind = iota
	KindString
	KindBool
	KindNumber
	KindJSON
)

// Value is a typed configuration value. The zero Value is "unset".
// Untrusted input becomes a Value only through ParseAndValidate or
// ParseFromStorage; nothing past that boundary handles raw input.
type Value struct {
	kind Kind
	str  string
	b    bool
	num  float64
	obj  map[string]any
}

// StringValue wraps s. Secret values use StringValue as well.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue wraps n.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// JSONValue wraps a JSON object.
func JSONValue(m map[string]any) Value { return Value{kind: KindJSON, obj: m} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload ("" for other kinds).
func (v Value) Str() string { return v.str }

// Bool returns the boolean payload (false for other kinds).
func (v Value) Bool() bool { return v.b }

// Num returns the numeric payload (0 for other kinds).
func (v Value) Num() float64 { return v.num }

// JSON returns the object payload (nil for other kinds).
func (v Value) JSON() map[string]any { return v.obj }

// IsEmpty reports whether the value is unset or an empty string.
// Mirrors the "isSet" semantics of resolved settings.
func (v Value) IsEmpty() bool {
	return v.kind == KindUnset || (v.kind == KindString && v.str == "")
}

// Display renders the value for humans and for non-secret audit rows.
func (v Value) Display() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindJSON:
		data, err := json.Marshal(v.obj)
		if err != nil {
			return ""
		}
		return string(data)
	}
	return ""
}

// MarshalJSON encodes the payload directly; unset encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.num)
	case KindJSON:
		return json.Marshal(v.obj)
	}
	return []byte("null"), nil
}

// ParseAndValidate converts untyped input (typically from a decoded JSON
// body or an environment string) into a validated Value for key.
func ParseAndValidate(key Key, raw any) (Value, error) {
	def, err := DefinitionOf(key)
	if err != nil {
		return Value{}, err
	}

	var v Value
	switch def.Type {
	case TypeBoolean:
		v, err = parseBool(key, raw)
	case TypeNumber:
		v, err = parseNumber(key, raw)
	case TypeJSON:
		v, err = parseJSONObject(key, raw)
	default: // string and secret
		v, err = parseString(key, raw)
	}
	if err != nil {
		return Value{}, err
	}

	if err := validateTyped(def, v); err != nil {
		return Value{}, err
	}
	return v, nil
}

// validateTyped applies enum and URL rules to an already-typed value.
// Also used when re-validating values read back from storage.
func validateTyped(def Definition, v Value) error {
	if (def.Type == TypeString || def.Type == TypeSecret) && v.kind == KindString {
		if def.Options != nil && !containsString(def.Options, v.str) {
			return &ValidationError{
				Key:    def.Key,
				Reason: "expected one of: " + strings.Join(def.Options, ", "),
			}
		}
		if def.Key == KeySiteBaseURL && v.str != "" {
			u, err := url.Parse(v.str)
			if err != nil || u.Host == "" {
				return &ValidationError{Key: def.Key, Reason: "must be a valid absolute URL"}
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return &ValidationError{Key: def.Key, Reason: "must use http or https"}
			}
		}
	}
	return nil
}

func parseBool(key Key, raw any) (Value, error) {
	switch t := raw.(type) {
	case bool:
		return BoolValue(t), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
	}
	return Value{}, &ValidationError{Key: key, Reason: "expected boolean value (true/false)"}
}

func parseNumber(key Key, raw any) (Value, error) {
	switch t := raw.(type) {
	case float64:
		if isFinite(t) {
			return NumberValue(t), nil
		}
	case float32:
		if isFinite(float64(t)) {
			return NumberValue(float64(t)), nil
		}
	case int:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err == nil && isFinite(n) {
			return NumberValue(n), nil
		}
	case string:
		// ParseFloat accepts "NaN" and "Inf"; neither is a valid setting.
		s := strings.TrimSpace(t)
		if s != "" {
			n, err := strconv.ParseFloat(s, 64)
			if err == nil && isFinite(n) {
				return NumberValue(n), nil
			}
		}
	}
	return Value{}, &ValidationError{Key: key, Reason: "expected finite numeric value"}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func parseJSONObject(key Key, raw any) (Value, error) {
	switch t := raw.(type) {
	case map[string]any:
		return JSONValue(t), nil
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(t), &obj); err == nil {
			return JSONValue(obj), nil
		}
		return Value{}, &ValidationError{Key: key, Reason: "invalid JSON value"}
	}
	return Value{}, &ValidationError{Key: key, Reason: "expected JSON object"}
}

func parseString(key Key, raw any) (Value, error) {
	switch t := raw.(type) {
	case string:
		return StringValue(strings.TrimSpace(t)), nil
	case nil:
		return StringValue(""), nil
	}
	return Value{}, &ValidationError{Key: key, Reason: "expected string value"}
}

// SerializeForStorage renders a typed value as storage text. It is the
// left inverse of ParseFromStorage for every value type.
func SerializeForStorage(def Definition, v Value) string {
	switch def.Type {
	case TypeJSON:
		data, err := json.Marshal(v.JSON())
		if err != nil {
			return "{}"
		}
		return string(data)
	case TypeBoolean:
		return strconv.FormatBool(v.Bool())
	case TypeNumber:
		return strconv.FormatFloat(v.Num(), 'f', -1, 64)
	}
	return v.Str()
}

// ParseFromStorage decodes storage text back into a typed value.
// Missing or malformed text yields the unset Value rather than an error:
// storage corruption degrades resolution, it must not crash it.
func ParseFromStorage(def Definition, text *string) Value {
	if text == nil {
		return Value{}
	}
	switch def.Type {
	case TypeBoolean:
		return BoolValue(*text == "true")
	case TypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(*text), 64)
		if err != nil || !isFinite(n) {
			return Value{}
		}
		return NumberValue(n)
	case TypeJSON:
		var obj map[string]any
		if err := json.Unmarshal([]byte(*text), &obj); err != nil {
			return Value{}
		}
		return JSONValue(obj)
	}
	return StringValue(*text)
}

// maxAuditValueLen bounds non-secret audit row size.
const maxAuditValueLen = 160

// RedactForAudit renders a value for an audit row. Secrets collapse to
// [set]/[empty]; non-secrets are truncated beyond maxAuditValueLen.
func RedactForAudit(v Value, isSecret bool) string {
	if isSecret {
		if v.IsEmpty() {
			return "[empty]"
		}
		return "[set]"
	}
	if v.kind == KindUnset {
		return "[empty]"
	}
	return truncateForAudit(v.Display())
}

// RedactStoredText redacts raw storage text the same way RedactForAudit
// redacts typed values. Used for "old value" audit columns where only
// the stored row is at hand.
func RedactStoredText(text string, isSecret bool) string {
	if isSecret {
		if text == "" {
			return "[empty]"
		}
		return "[set]"
	}
	return truncateForAudit(text)
}

func truncateForAudit(s string) string {
	if utf8.RuneCountInString(s) <= maxAuditValueLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxAuditValueLen-3]) + "..."
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
