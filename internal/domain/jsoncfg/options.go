// Package jsoncfg owns the free-form JSON payloads that travel with a
// generation request and the sanitization applied before they are persisted.
package jsoncfg

import (
	"fmt"
	"strings"
)

// DataURLScheme marks inline-encoded image payloads.
const DataURLScheme = "data:"

// MaxInlineOptionBytes is the largest data-URL string value allowed to reach
// persisted metadata. Anything bigger is replaced with a placeholder.
const MaxInlineOptionBytes = 100 * 1024

// SanitizeOptions walks an options map and strips oversized inline payloads so
// persisted metadata never retains large base64 blobs. The input map is not
// modified; a sanitized copy is returned.
func SanitizeOptions(options map[string]any) map[string]any {
	if options == nil {
		return nil
	}
	out := make(map[string]any, len(options))
	for k, v := range options {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, DataURLScheme) && len(val) > MaxInlineOptionBytes {
			return fmt.Sprintf("[BASE64_DATA_FILTERED_%d_BYTES]", len(val))
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	case map[string]any:
		return SanitizeOptions(val)
	default:
		return v
	}
}
