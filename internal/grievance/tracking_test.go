package grievance

import (
	"strings"
	"testing"
)

func TestNewTrackingID_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		id, err := NewTrackingID()
		if err != nil {
			t.Fatalf("NewTrackingID error: %v", err)
		}
		if !ValidTrackingID(id) {
			t.Fatalf("tracking ID %q does not match GR-#### format", id)
		}
		if !strings.HasPrefix(id, "GR-") {
			t.Fatalf("tracking ID %q missing prefix", id)
		}
	}
}

func TestValidTrackingID(t *testing.T) {
	cases := map[string]bool{
		"GR-0001":  true,
		"GR-9999":  true,
		"GR-123":   false,
		"GR-12345": false,
		"gr-1234":  false,
		"GR-12a4":  false,
		"1234":     false,
		"":         false,
	}
	for input, want := range cases {
		if got := ValidTrackingID(input); got != want {
			t.Errorf("ValidTrackingID(%q) = %v, want %v", input, got, want)
		}
	}
}
