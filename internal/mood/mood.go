/*
Package mood implements the daily mood check-in, the summary the home screen
renders, and the two fixed daily reminder slots.
*/
package mood

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"zhi-server/internal/database"
	"zhi-server/internal/utility"
)

const (
	defaultSummaryDays = 30
	maxSummaryDays     = 365

	defaultMorningTime = "09:00"
	defaultEveningTime = "21:00"
)

// validMoods are the five faces the check-in screen offers.
var validMoods = map[string]bool{
	"muy_mal":  true,
	"mal":      true,
	"neutral":  true,
	"bien":     true,
	"muy_bien": true,
}

var queries *database.Queries

// MoodRequest records one check-in. Date defaults to today when omitted.
type MoodRequest struct {
	Mood string `json:"mood" form:"mood"`
	Date string `json:"date" form:"date"` // YYYY-MM-DD
}

// ReminderRequest updates the two daily reminder slots.
type ReminderRequest struct {
	MorningTime string `json:"morning_time" form:"morning_time"`
	EveningTime string `json:"evening_time" form:"evening_time"`
	Enabled     *bool  `json:"enabled" form:"enabled"`
}

// SummaryResponse aggregates recent check-ins for the home screen.
type SummaryResponse struct {
	Days          int                  `json:"days"`
	Entries       []database.MoodEntry `json:"entries"`
	Counts        map[string]int       `json:"counts"`
	CurrentStreak int                  `json:"current_streak"`
}

// InitMoodPackage prepares the package for operation.
func InitMoodPackage(dbpool *pgxpool.Pool) {
	queries = database.New(dbpool)
	log.Info().Msg("Mood package initialized.")
}

// RecordMoodHandler upserts the check-in for a day. One entry per day;
// checking in again replaces the earlier mood.
func RecordMoodHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req MoodRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if !validMoods[req.Mood] {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid mood value"})
	}

	entryDate := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Date must be YYYY-MM-DD"})
		}
		if parsed.After(entryDate) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Date cannot be in the future"})
		}
		entryDate = parsed
	}

	entry, err := queries.UpsertMoodEntry(ctx, database.UpsertMoodEntryParams{
		UserID:    userID,
		Mood:      req.Mood,
		EntryDate: pgtype.Date{Time: entryDate, Valid: true},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to record mood entry")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record mood"})
	}

	return c.JSON(http.StatusOK, entry)
}

// ListMoodsHandler returns check-ins in a date window, newest first.
func ListMoodsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	days := parseDays(c.QueryParam("days"))
	entries, err := entriesInWindow(ctx, userID, days)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list moods"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"entries": entries})
}

// MoodSummaryHandler aggregates the window into counts plus the current
// consecutive-day streak ending today (or yesterday, if today is unlogged).
func MoodSummaryHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	days := parseDays(c.QueryParam("days"))
	entries, err := entriesInWindow(ctx, userID, days)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load moods"})
	}

	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Mood]++
	}

	return c.JSON(http.StatusOK, SummaryResponse{
		Days:          days,
		Entries:       entries,
		Counts:        counts,
		CurrentStreak: CurrentStreak(entries, time.Now().UTC()),
	})
}

// DeleteMoodHandler removes the check-in for one date.
func DeleteMoodHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	parsed, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Date must be YYYY-MM-DD"})
	}

	if err := queries.DeleteMoodEntry(ctx, userID, pgtype.Date{Time: parsed, Valid: true}); err != nil {
		log.Error().Err(err).Msg("Failed to delete mood entry")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete mood"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Mood entry deleted"})
}

// GetRemindersHandler returns the reminder slots, falling back to defaults
// for users who never changed them.
func GetRemindersHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	settings, err := queries.GetReminderSettings(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Error().Err(err).Msg("Failed to fetch reminder settings")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch reminders"})
		}
		settings = database.ReminderSettings{
			UserID:      userID,
			MorningTime: defaultMorningTime,
			EveningTime: defaultEveningTime,
			Enabled:     true,
		}
	}

	return c.JSON(http.StatusOK, settings)
}

// UpdateRemindersHandler validates and saves the two slots.
func UpdateRemindersHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req ReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	morning := req.MorningTime
	if morning == "" {
		morning = defaultMorningTime
	}
	evening := req.EveningTime
	if evening == "" {
		evening = defaultEveningTime
	}

	for _, t := range []string{morning, evening} {
		if _, err := time.Parse("15:04", t); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Times must be HH:MM (24h)"})
		}
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	settings, err := queries.UpsertReminderSettings(ctx, database.UpsertReminderSettingsParams{
		UserID:      userID,
		MorningTime: morning,
		EveningTime: evening,
		Enabled:     enabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to save reminder settings")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save reminders"})
	}

	return c.JSON(http.StatusOK, settings)
}

// CurrentStreak counts consecutive logged days walking back from today.
// A missing entry for today does not break the streak until tomorrow.
func CurrentStreak(entries []database.MoodEntry, now time.Time) int {
	logged := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.EntryDate.Valid {
			logged[e.EntryDate.Time.Format("2006-01-02")] = true
		}
	}

	day := now
	if !logged[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for logged[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func parseDays(raw string) int {
	if raw == "" {
		return defaultSummaryDays
	}
	days := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return defaultSummaryDays
		}
		days = days*10 + int(r-'0')
	}
	if days < 1 || days > maxSummaryDays {
		return defaultSummaryDays
	}
	return days
}

func entriesInWindow(ctx context.Context, userID string, days int) ([]database.MoodEntry, error) {
	now := time.Now().UTC()
	entries, err := queries.ListMoodEntries(ctx, database.ListMoodEntriesParams{
		UserID:    userID,
		StartDate: pgtype.Date{Time: now.AddDate(0, 0, -(days - 1)), Valid: true},
		EndDate:   pgtype.Date{Time: now, Valid: true},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list mood entries")
		return nil, err
	}
	if entries == nil {
		entries = []database.MoodEntry{}
	}
	return entries, nil
}
