package sink

import (
	"time"

	"github.com/loggate/loggate/core"
)

// FieldValue converts a context field into a plain value suitable for
// encoding/json marshalling in sink wire payloads.
func FieldValue(f core.Field) interface{} {
	switch f.Type {
	case core.StringType, core.ErrorType:
		return f.Str
	case core.IntType, core.Int64Type:
		return f.Int64
	case core.Float64Type:
		return f.Float64
	case core.BoolType:
		return f.Int64 == 1
	case core.TimeType:
		return time.Unix(0, f.Int64).UTC().Format(time.RFC3339Nano)
	case core.DurationType:
		return time.Duration(f.Int64).String()
	case core.AnyType:
		return f.Any
	default:
		return f.StringValue()
	}
}

// ContextMap flattens an event's ordered context into a map for wire
// formats that carry a free-form properties object. Returns nil for an
// empty context so callers can rely on omitempty.
func ContextMap(fields []core.Field) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = FieldValue(f)
	}
	return m
}
