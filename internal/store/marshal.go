package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/eventsim/internal/engine"
	"github.com/roach88/eventsim/internal/trace"
)

func marshalParams(params map[string]int) (string, error) {
	obj := make(map[string]any, len(params))
	for k, v := range params {
		obj[k] = v
	}
	data, err := trace.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

func unmarshalParams(data string) (map[string]int, error) {
	params := map[string]int{}
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return params, nil
}

func marshalOutput(lines []string) (string, error) {
	if lines == nil {
		lines = []string{}
	}
	items := make([]any, len(lines))
	for i, l := range lines {
		items[i] = l
	}
	data, err := trace.MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	return string(data), nil
}

func unmarshalOutput(data string) ([]string, error) {
	var lines []string
	if err := json.Unmarshal([]byte(data), &lines); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

func marshalValue(v any) (string, error) {
	data, err := trace.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue decodes a stored value. Numbers come back as json.Number,
// which re-serializes to the same canonical bytes.
func unmarshalValue(data string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func marshalRecipients(ids []engine.MachineID) (string, error) {
	if ids == nil {
		ids = []engine.MachineID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal recipients: %w", err)
	}
	return string(data), nil
}

func unmarshalRecipients(data string) ([]engine.MachineID, error) {
	var ids []engine.MachineID
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal recipients: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}
