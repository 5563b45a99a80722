package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// User is an account row. Password is NULL for OAuth-only accounts.
type User struct {
	UserID         string             `json:"user_id"`
	Username       pgtype.Text        `json:"username"`
	Password       pgtype.Text        `json:"-"`
	Email          pgtype.Text        `json:"email"`
	DisplayName    pgtype.Text        `json:"display_name"`
	AvatarURL      pgtype.Text        `json:"avatar_url"`
	Provider       pgtype.Text        `json:"provider,omitempty"`
	ProviderUserID pgtype.Text        `json:"-"`
	RawData        []byte             `json:"-"`
	AccountType    pgtype.Int2        `json:"account_type"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	LastLoginAt    pgtype.Timestamptz `json:"last_login_at"`
}

type RefreshToken struct {
	ID         pgtype.UUID
	UserID     string
	TokenHash  string
	DeviceInfo pgtype.Text
	IPAddress  pgtype.Text
	ExpiresAt  pgtype.Timestamptz
	RevokedAt  pgtype.Timestamptz
	CreatedAt  pgtype.Timestamptz
}

// UserProfile holds the onboarding answers that personalize the chat prompt.
type UserProfile struct {
	UserID               string             `json:"user_id"`
	MainGoal             pgtype.Text        `json:"main_goal"`
	LowMoodFrequency     pgtype.Text        `json:"low_mood_frequency"`
	LowInterestFrequency pgtype.Text        `json:"low_interest_frequency"`
	EnergyLevel          pgtype.Text        `json:"energy_level"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
}

type Conversation struct {
	ConversationID pgtype.UUID        `json:"conversation_id"`
	UserID         string             `json:"-"`
	Title          string             `json:"title"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type Message struct {
	MessageID      pgtype.UUID        `json:"message_id"`
	ConversationID pgtype.UUID        `json:"-"`
	Role           string             `json:"role"`
	Text           string             `json:"text"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
}

type MoodEntry struct {
	UserID    string             `json:"-"`
	Mood      string             `json:"mood"`
	EntryDate pgtype.Date        `json:"entry_date"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

// ReminderSettings stores the two fixed daily reminder slots the client
// schedules local notifications for.
type ReminderSettings struct {
	UserID      string             `json:"-"`
	MorningTime string             `json:"morning_time"`
	EveningTime string             `json:"evening_time"`
	Enabled     bool               `json:"enabled"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type Psychologist struct {
	PsychologistID  pgtype.UUID `json:"psychologist_id"`
	Name            string      `json:"name"`
	Specialty       string      `json:"specialty"`
	Bio             pgtype.Text `json:"bio"`
	PhotoURL        pgtype.Text `json:"photo_url"`
	Rating          float64     `json:"rating"`
	YearsExperience int32       `json:"years_experience"`
	Available       bool        `json:"available"`
}

type ContactRequest struct {
	RequestID      pgtype.UUID        `json:"request_id"`
	PsychologistID pgtype.UUID        `json:"psychologist_id"`
	UserID         string             `json:"-"`
	Message        pgtype.Text        `json:"message"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
}

type ContactMessage struct {
	MessageID pgtype.UUID        `json:"message_id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Body      string             `json:"body"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}
