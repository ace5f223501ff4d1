package core

import (
	"errors"
	"testing"
)

func TestNormalizeIdentity(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain digits", raw: "447700900000", want: "447700900000"},
		{name: "spaces stripped", raw: "44 7700 900000", want: "447700900000"},
		{name: "plus and punctuation stripped", raw: "+44 (7700) 900-000", want: "447700900000"},
		{name: "short sequence", raw: "999", want: "999"},
		{name: "long sequence", raw: "1234567890123456789", want: "1234567890123456789"},
		{name: "empty", raw: "", wantErr: true},
		{name: "no digits", raw: "not-a-number", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeIdentity(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidIdentity) {
					t.Fatalf("NormalizeIdentity(%q) error = %v, want ErrInvalidIdentity", tc.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeIdentity(%q) error = %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeIdentity(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestSanitizeDigits(t *testing.T) {
	if got := sanitizeDigits("+44 7700 900-000 ext"); got != "447700900000" {
		t.Fatalf("sanitizeDigits() = %q, want 447700900000", got)
	}
	if got := sanitizeDigits("garbage"); got != "" {
		t.Fatalf("sanitizeDigits(garbage) = %q, want empty", got)
	}
}
