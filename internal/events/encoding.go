package events

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Encode serializes a payload to JSON. Temporal values become ISO-8601 strings
// and identifiers become their string form.
func Encode(payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(normalize(payload))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

func normalize(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339Nano)
	case civil.Date:
		return v.String()
	case *civil.Date:
		if v == nil {
			return nil
		}
		return v.String()
	case uuid.UUID:
		return v.String()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = normalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = normalize(inner)
		}
		return out
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}
