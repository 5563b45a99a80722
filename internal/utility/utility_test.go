package utility

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestParsePgUUID(t *testing.T) {
	got, err := ParsePgUUID("a2f1c6de-43b1-4f07-9e1c-8f4be2a11c55")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Valid {
		t.Errorf("parsed UUID not marked valid")
	}

	roundTrip, err := PgtypeUUIDToString(got)
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if roundTrip != "a2f1c6de-43b1-4f07-9e1c-8f4be2a11c55" {
		t.Errorf("round trip = %q", roundTrip)
	}

	for _, bad := range []string{"", "not-a-uuid", "a2f1c6de-43b1"} {
		if _, err := ParsePgUUID(bad); err == nil {
			t.Errorf("ParsePgUUID(%q) accepted invalid input", bad)
		}
	}
}

func TestPgtypeUUIDToString_Invalid(t *testing.T) {
	if _, err := PgtypeUUIDToString(pgtype.UUID{}); err == nil {
		t.Errorf("expected error for invalid UUID value")
	}
}

func TestCheckIPRateLimit(t *testing.T) {
	ip := "203.0.113.77" // unique per test run, limiter state is package-global

	for i := 0; i < 10; i++ {
		if err := CheckIPRateLimit(ip); err != nil {
			t.Fatalf("attempt %d unexpectedly limited: %v", i+1, err)
		}
	}
	if err := CheckIPRateLimit(ip); err == nil {
		t.Errorf("11th attempt was not limited")
	}

	if err := CheckIPRateLimit("198.51.100.9"); err != nil {
		t.Errorf("different IP was limited: %v", err)
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(a))
	}

	b, _ := GenerateSecureToken(32)
	if a == b {
		t.Errorf("two tokens were identical")
	}
}
