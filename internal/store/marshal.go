package store

import (
	"encoding/json"
	"fmt"

	"github.com/Jerry0022/PYCO/internal/ir"
)

// marshalBody converts a field map to its stored JSON TEXT form.
// Keys are written in RFC 8785 order; strings are kept byte for byte so that
// decoding returns the exact text that was put.
func marshalBody(fields ir.IRObject) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	data, err := fields.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody parses stored JSON TEXT to a field map.
// Uses ir.IRObject.UnmarshalJSON which keeps integers as int64 via json.Number.
func unmarshalBody(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	return obj, nil
}

func marshalFieldList(fields []string) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal field list: %w", err)
	}
	return string(data), nil
}

func unmarshalFieldList(data string) ([]string, error) {
	var fields []string
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal field list: %w", err)
	}
	return fields, nil
}
