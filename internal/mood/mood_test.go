package mood

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"zhi-server/internal/database"
)

func entryOn(day time.Time) database.MoodEntry {
	return database.MoodEntry{EntryDate: pgtype.Date{Time: day, Valid: true}}
}

func TestCurrentStreak(t *testing.T) {
	now := time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)
	today := now.Truncate(24 * time.Hour)

	tests := []struct {
		name    string
		entries []database.MoodEntry
		want    int
	}{
		{"no entries", nil, 0},
		{"today only", []database.MoodEntry{entryOn(today)}, 1},
		{
			"three consecutive days ending today",
			[]database.MoodEntry{
				entryOn(today),
				entryOn(today.AddDate(0, 0, -1)),
				entryOn(today.AddDate(0, 0, -2)),
			},
			3,
		},
		{
			"today missing but yesterday logged keeps streak",
			[]database.MoodEntry{
				entryOn(today.AddDate(0, 0, -1)),
				entryOn(today.AddDate(0, 0, -2)),
			},
			2,
		},
		{
			"gap two days ago breaks streak",
			[]database.MoodEntry{
				entryOn(today),
				entryOn(today.AddDate(0, 0, -1)),
				entryOn(today.AddDate(0, 0, -3)),
			},
			2,
		},
		{
			"only old entries",
			[]database.MoodEntry{entryOn(today.AddDate(0, 0, -5))},
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurrentStreak(tt.entries, now); got != tt.want {
				t.Errorf("CurrentStreak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", defaultSummaryDays},
		{"7", 7},
		{"365", 365},
		{"366", defaultSummaryDays},
		{"0", defaultSummaryDays},
		{"-3", defaultSummaryDays},
		{"abc", defaultSummaryDays},
		{"30d", defaultSummaryDays},
	}
	for _, tt := range tests {
		if got := parseDays(tt.raw); got != tt.want {
			t.Errorf("parseDays(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
