package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/eventsim/internal/engine"
)

// MarshalCanonical produces canonical JSON in the style of RFC 8785.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Floats are rejected
//
// Unlike content-addressed formats, null is allowed: event values are
// frequently nil.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case engine.MachineID:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case engine.StateID:
		return writeCanonicalString(buf, string(val))
	case Kind:
		return writeCanonicalString(buf, string(val))
	case json.Number:
		if strings.ContainsAny(val.String(), ".eE") {
			return fmt.Errorf("floats are forbidden in canonical JSON: %s", val)
		}
		buf.WriteString(val.String())
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		return writeCanonicalObject(buf, val)
	default:
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		return writeCanonical(buf, generic)
	}
	return nil
}

// toGeneric round-trips an arbitrary value through encoding/json so structs,
// typed slices and typed maps reduce to the cases writeCanonical handles.
func toGeneric(v any) (any, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func || rv.Kind() == reflect.Chan {
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators undoes encoding/json's \u2028 and \u2029 escapes,
// which RFC 8785 leaves literal. An escape preceded by an odd run of
// backslashes is literal text and stays.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			run := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				run++
			}
			if run%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

func writeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

// CanonicalEvent renders one trace event as canonical JSON. Zero-valued
// fields are omitted, as with the struct's json tags.
func CanonicalEvent(ev Event) ([]byte, error) {
	obj := map[string]any{
		"index": ev.Index,
		"cycle": ev.Cycle,
		"kind":  ev.Kind,
	}
	if ev.Seq != 0 {
		obj["seq"] = ev.Seq
	}
	if ev.Machine != engine.NoMachine {
		obj["machine"] = ev.Machine
	}
	if ev.MachineKind != "" {
		obj["machine_kind"] = ev.MachineKind
	}
	if ev.Type != "" {
		obj["type"] = ev.Type
	}
	if ev.Emitter != engine.NoMachine {
		obj["emitter"] = ev.Emitter
	}
	if ev.Destination != engine.NoMachine {
		obj["destination"] = ev.Destination
	}
	if len(ev.Recipients) > 0 {
		ids := make([]any, len(ev.Recipients))
		for i, id := range ev.Recipients {
			ids[i] = id
		}
		obj["recipients"] = ids
	}
	if ev.Ack {
		obj["ack"] = true
	}
	if ev.From != "" {
		obj["from"] = ev.From
	}
	if ev.To != "" {
		obj["to"] = ev.To
	}
	if ev.Vars != "" {
		obj["vars"] = ev.Vars
	}
	if ev.Value != nil {
		obj["value"] = ev.Value
	}
	return MarshalCanonical(obj)
}

// MarshalTrace renders a trace as canonical JSON lines.
func MarshalTrace(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	for _, ev := range events {
		line, err := CanonicalEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("trace event %d: %w", ev.Index, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
