package etl

import (
	"strconv"

	"github.com/mbruun/artsearch/internal/domain"
)

// Helpers for reading raw payloads. Payloads round-trip through JSON, so
// nested objects arrive as map[string]interface{}, lists as []interface{},
// and all numbers as float64.

func payloadString(m domain.JSONMap, key string) string {
	s, _ := m[key].(string)
	return s
}

func payloadBool(m domain.JSONMap, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func payloadList(m domain.JSONMap, key string) []interface{} {
	l, _ := m[key].([]interface{})
	return l
}

func payloadMap(v interface{}) domain.JSONMap {
	switch m := v.(type) {
	case map[string]interface{}:
		return domain.JSONMap(m)
	case domain.JSONMap:
		return m
	default:
		return nil
	}
}

func payloadStrings(m domain.JSONMap, key string) []string {
	var out []string
	for _, v := range payloadList(m, key) {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// payloadNumber reads a numeric field as a string ID, tolerating both JSON
// numbers and strings.
func payloadNumber(m domain.JSONMap, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// payloadInt reads an integer field, returning nil when absent or
// non-numeric.
func payloadInt(m domain.JSONMap, key string) *int {
	switch v := m[key].(type) {
	case float64:
		i := int(v)
		return &i
	case int:
		i := v
		return &i
	case string:
		return YearFromString(v)
	default:
		return nil
	}
}
