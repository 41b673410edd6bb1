package telemetry

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// denyKeys are attribute names that can carry question or answer content or
// credentials; they never reach a span.
var denyKeys = []string{
	"question",
	"answer",
	"summary",
	"reasoning",
	"content",
	"authorization",
	"api_key",
	"token",
	"email",
	"phone",
	"ssn",
}

// SafeAttributes filters out unsafe keys and oversized values and returns
// OTEL attributes.
func SafeAttributes(values map[string]interface{}) []attribute.KeyValue {
	if len(values) == 0 {
		return nil
	}
	var attrs []attribute.KeyValue
	for k, v := range values {
		lk := strings.ToLower(k)
		skip := false
		for _, bad := range denyKeys {
			if strings.Contains(lk, bad) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		switch val := v.(type) {
		case string:
			if len(val) > 512 {
				continue
			}
			attrs = append(attrs, attribute.String(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case []string:
			s := val
			if len(s) > 32 {
				s = s[:32]
			}
			attrs = append(attrs, attribute.StringSlice(k, s))
		default:
			// unsupported types ignored for safety
		}
	}
	return attrs
}
