package planner

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Trace params arrive as loosely typed JSON objects. These helpers read them
// with a default instead of failing the whole compilation.

func stringParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func intParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

func intParamOr(params map[string]any, def int, keys ...string) int {
	for _, key := range keys {
		if n, ok := intParam(params, key); ok {
			return n
		}
	}
	return def
}

func boolParam(params map[string]any, key string) bool {
	switch t := params[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

// copyParams returns params in the shape a stored plan decodes back to:
// numbers become float64, nested values become maps and slices.
func copyParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	if raw, err := json.Marshal(params); err == nil {
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err == nil {
			return out
		}
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
