package rag

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/moviebox/ragchat/internal/vectorindex"
)

// MissingField replaces metadata values that are absent from a match.
const MissingField = "N/A"

const resultsHeader = "\n\nReturned results from vector db (done automatically):\n\n"

// MetadataField renders metadata[key] as prompt text, or MissingField when
// the key is absent or null.
func MetadataField(metadata map[string]any, key string) string {
	v, ok := metadata[key]
	if !ok || v == nil {
		return MissingField
	}

	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = MetadataField(map[string]any{"v": item}, "v")
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// FormatMatches builds the augmentation appended to the user's query: a fixed
// header followed by one block per match, in the order the index returned them.
func FormatMatches(fields []Field, matches []vectorindex.Match) string {
	var b strings.Builder
	b.WriteString(resultsHeader)
	for _, m := range matches {
		b.WriteString("\nReturned Results:\n")
		fmt.Fprintf(&b, "name: %s\n", m.ID)
		for _, f := range fields {
			fmt.Fprintf(&b, "%s: %s\n", f.Label, MetadataField(m.Metadata, f.Key))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}
