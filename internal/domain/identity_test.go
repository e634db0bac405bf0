package domain

import (
	"encoding/json"
	"testing"
)

func TestParseIdentity_RoundTrip(t *testing.T) {
	const key = "13avuvj2qnHq6CwsuYFR7jLrKbbzgGXxscfZCBQR7kJW"

	id, err := ParseIdentity(key)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if id.String() != key {
		t.Errorf("String mismatch: got %s, want %s", id.String(), key)
	}
	if id.IsZero() {
		t.Error("parsed identity should not be zero")
	}
}

func TestParseIdentity_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bad alphabet", "0OIl"},
		{"too short", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseIdentity(tt.input); err == nil {
				t.Errorf("expected error for %q", tt.input)
			}
		})
	}
}

func TestIdentity_JSON(t *testing.T) {
	id := Identity{7, 7, 7}

	data, err := json.Marshal(struct {
		Caller Identity `json:"caller"`
	}{Caller: id})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		Caller Identity `json:"caller"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Caller.Equal(id) {
		t.Errorf("identity mismatch after JSON: got %s, want %s", decoded.Caller, id)
	}
}
