package sdkchat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CoerceOutput flattens the SDK's heterogeneous output shapes into a single
// string. Precedence per element: string passthrough, then .text, then
// .content, then structured serialization. Lists are joined by newline with
// empty entries dropped. A nil output yields "", which the adapter treats
// as no result.
func CoerceOutput(v any) string {
	switch out := v.(type) {
	case nil:
		return ""
	case string:
		return out
	case []any:
		parts := make([]string, 0, len(out))
		for _, item := range out {
			if s := CoerceOutput(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		if s, ok := out["text"].(string); ok && s != "" {
			return s
		}
		if s, ok := out["content"].(string); ok && s != "" {
			return s
		}
		return marshal(out)
	default:
		return marshal(out)
	}
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
