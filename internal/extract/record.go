package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is the untyped mapping recovered from model output.
type Record map[string]any

// SchemaError reports a key the caller relies on that the model left out or
// filled with the wrong kind of value.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("response field %q %s", e.Path, e.Reason)
}

// Lookup walks nested objects along path.
func (r Record) Lookup(path ...string) (any, error) {
	var cur any = map[string]any(r)
	for i, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, &SchemaError{Path: joinPath(path[:i]), Reason: "is not an object"}
		}
		v, ok := obj[key]
		if !ok || v == nil {
			return nil, &SchemaError{Path: joinPath(path[:i+1]), Reason: "is missing"}
		}
		cur = v
	}
	return cur, nil
}

// String returns the string at path. Numbers are formatted; nested values are
// re-encoded as JSON so a model that returns an object for a prose field
// still yields text.
func (r Record) String(path ...string) (string, error) {
	v, err := r.Lookup(path...)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", &SchemaError{Path: joinPath(path), Reason: "is not text"}
		}
		return string(b), nil
	}
}

// Bool returns the boolean at path. "true"/"false" strings are accepted in
// any case since models often quote them.
func (r Record) Bool(path ...string) (bool, error) {
	v, err := r.Lookup(path...)
	if err != nil {
		return false, err
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, &SchemaError{Path: joinPath(path), Reason: "is not a boolean"}
}

func joinPath(path []string) string {
	if len(path) == 0 {
		return "$"
	}
	return strings.Join(path, ".")
}
