package vectorstore

import (
	qdrant "github.com/qdrant/go-client/qdrant"
)

// Record is one persisted index entry: a point ID, its vector, and the
// chunk payload. The store owns the lifecycle of persisted records;
// uniqueness of ID comes from UUID generation at write time, not from
// content.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is one search result, valid only for the duration of one query.
type Hit struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// payloadFromQdrant converts a Qdrant payload into plain Go values.
// Only the kinds the toolchain writes (strings, integers, doubles, bools,
// lists and nested maps) are mapped; anything else decodes to nil.
func payloadFromQdrant(payload map[string]*qdrant.Value) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = valueToAny(value)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, 0, len(values))
		for _, item := range values {
			list = append(list, valueToAny(item))
		}
		return list
	case *qdrant.Value_StructValue:
		return payloadFromQdrant(kind.StructValue.GetFields())
	default:
		return nil
	}
}
