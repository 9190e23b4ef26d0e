package model

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected Kind
		wantErr  bool
	}{
		{"url", "url", KindURL, false},
		{"message", "message", KindMessage, false},
		{"upper case with spaces", "  URL ", KindURL, false},
		{"unknown kind", "email", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseKind(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrUnknownKind) {
					t.Errorf("expected ErrUnknownKind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestKindValid(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds() {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if Kind("sms").Valid() {
		t.Error("sms should not be valid")
	}
}
