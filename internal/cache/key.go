package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// keyPrefix versions the key namespace so a format change never collides
// with entries written by an older build.
const keyPrefix = "jn:v1"

// MaxKeyLength bounds generated keys. Tools with many optional filters can
// otherwise produce arbitrarily long keys; anything past the limit is
// replaced by a digest of the full parameter string.
const MaxKeyLength = 512

// nullSentinel encodes an absent parameter. A nil value and an omitted
// key render identically, while an explicit empty string renders as ""
// and therefore never collides with absence.
const nullSentinel = "null"

// Key builds a deterministic cache key from the entity/operation namespace,
// the instance identifier, and every parameter that affects the result.
// Pure and total: identical inputs yield identical keys across restarts,
// and any difference in an output-affecting parameter changes the key.
func Key(entity, op, instance string, params map[string]any) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteByte(':')
	b.WriteString(entity)
	b.WriteByte(':')
	b.WriteString(op)
	b.WriteByte(':')
	if instance == "" {
		b.WriteString(nullSentinel)
	} else {
		b.WriteString(instance)
	}
	b.WriteByte(':')

	paramStr := stableValue(params)
	if b.Len()+len(paramStr) > MaxKeyLength {
		sum := sha256.Sum256([]byte(paramStr))
		b.WriteString("sha256:")
		b.WriteString(hex.EncodeToString(sum[:]))
		return b.String()
	}

	b.WriteString(paramStr)
	return b.String()
}

// stableValue renders any JSON-shaped value deterministically: map keys
// sorted, slices in caller order, nil as the null sentinel.
func stableValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return nullSentinel
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+"="+stableValue(typed[key]))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case map[string]string:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+"="+typed[key])
		}
		return "{" + strings.Join(parts, ",") + "}"
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, stableValue(item))
		}
		return "[" + strings.Join(parts, ",") + "]"
	case []string:
		return "[" + strings.Join(typed, ",") + "]"
	case string:
		return fmt.Sprintf("%q", typed)
	case *string:
		if typed == nil {
			return nullSentinel
		}
		return fmt.Sprintf("%q", *typed)
	case *int:
		if typed == nil {
			return nullSentinel
		}
		return fmt.Sprintf("%d", *typed)
	case *bool:
		if typed == nil {
			return nullSentinel
		}
		return fmt.Sprintf("%t", *typed)
	case float64:
		// JSON numbers decode as float64; render integers without a
		// fractional part so 5 and 5.0 produce the same key.
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%g", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
