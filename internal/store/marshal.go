package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/rete/internal/ir"
)

func marshalFields(fields ir.IRArray) (string, error) {
	if fields == nil {
		fields = ir.IRArray{}
	}
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

func unmarshalFields(data string) (ir.IRArray, error) {
	var fields ir.IRArray
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return fields, nil
}

func marshalBinding(binding ir.IRObject) (string, error) {
	if binding == nil {
		binding = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(binding)
	if err != nil {
		return "", fmt.Errorf("marshal binding: %w", err)
	}
	return string(data), nil
}

func unmarshalBinding(data string) (ir.IRObject, error) {
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal binding: %w", err)
	}
	return obj, nil
}

func marshalFactIDs(ids []string) (string, error) {
	arr := make(ir.IRArray, len(ids))
	for i, id := range ids {
		arr[i] = ir.IRString(id)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal fact ids: %w", err)
	}
	return string(data), nil
}

func unmarshalFactIDs(data string) ([]string, error) {
	ids := []string{}
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal fact ids: %w", err)
	}
	return ids, nil
}
