package telemetry

import "testing"

func TestSafeAttributesFiltering(t *testing.T) {
	attrs := SafeAttributes(map[string]interface{}{
		"decision":         "allow",
		"record_count":     3,
		"grounded":         true,
		"question_text":    "should never appear",
		"member_email":     "jane@example.com",
		"api_key":          "mw-secret",
		"huge":             string(make([]byte, 600)),
		"unsupported_type": struct{}{},
	})

	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d: %v", len(attrs), attrs)
	}
	for _, a := range attrs {
		switch string(a.Key) {
		case "decision", "record_count", "grounded":
		default:
			t.Fatalf("unexpected attribute %q", a.Key)
		}
	}
}
