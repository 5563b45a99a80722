package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// ---- users ----

const createUser = `
INSERT INTO users (user_id, username, password, email, display_name, account_type)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING user_id, username, password, email, display_name, avatar_url, provider, provider_user_id, raw_data, account_type, created_at, last_login_at
`

type CreateUserParams struct {
	UserID      string
	Username    pgtype.Text
	Password    pgtype.Text
	Email       pgtype.Text
	DisplayName pgtype.Text
	AccountType pgtype.Int2
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.UserID,
		arg.Username,
		arg.Password,
		arg.Email,
		arg.DisplayName,
		arg.AccountType,
	)
	var i User
	err := row.Scan(
		&i.UserID,
		&i.Username,
		&i.Password,
		&i.Email,
		&i.DisplayName,
		&i.AvatarURL,
		&i.Provider,
		&i.ProviderUserID,
		&i.RawData,
		&i.AccountType,
		&i.CreatedAt,
		&i.LastLoginAt,
	)
	return i, err
}

const getUserByID = `
SELECT user_id, username, password, email, display_name, avatar_url, provider, provider_user_id, raw_data, account_type, created_at, last_login_at
FROM users WHERE user_id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, userID)
	var i User
	err := row.Scan(
		&i.UserID,
		&i.Username,
		&i.Password,
		&i.Email,
		&i.DisplayName,
		&i.AvatarURL,
		&i.Provider,
		&i.ProviderUserID,
		&i.RawData,
		&i.AccountType,
		&i.CreatedAt,
		&i.LastLoginAt,
	)
	return i, err
}

const getUserByUsername = `
SELECT user_id, username, password, email, display_name, avatar_url, provider, provider_user_id, raw_data, account_type, created_at, last_login_at
FROM users WHERE username = $1
`

func (q *Queries) GetUserByUsername(ctx context.Context, username pgtype.Text) (User, error) {
	row := q.db.QueryRow(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(
		&i.UserID,
		&i.Username,
		&i.Password,
		&i.Email,
		&i.DisplayName,
		&i.AvatarURL,
		&i.Provider,
		&i.ProviderUserID,
		&i.RawData,
		&i.AccountType,
		&i.CreatedAt,
		&i.LastLoginAt,
	)
	return i, err
}

const getUserByEmail = `
SELECT user_id, username, password, email, display_name, avatar_url, provider, provider_user_id, raw_data, account_type, created_at, last_login_at
FROM users WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email pgtype.Text) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.UserID,
		&i.Username,
		&i.Password,
		&i.Email,
		&i.DisplayName,
		&i.AvatarURL,
		&i.Provider,
		&i.ProviderUserID,
		&i.RawData,
		&i.AccountType,
		&i.CreatedAt,
		&i.LastLoginAt,
	)
	return i, err
}

const checkUsernameExists = `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

func (q *Queries) CheckUsernameExists(ctx context.Context, username pgtype.Text) (bool, error) {
	row := q.db.QueryRow(ctx, checkUsernameExists, username)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const checkEmailExists = `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

func (q *Queries) CheckEmailExists(ctx context.Context, email pgtype.Text) (bool, error) {
	row := q.db.QueryRow(ctx, checkEmailExists, email)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const upsertOAuthUser = `
INSERT INTO users (user_id, email, display_name, avatar_url, provider, provider_user_id, raw_data, account_type, last_login_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (provider, provider_user_id) DO UPDATE SET
    email = EXCLUDED.email,
    display_name = EXCLUDED.display_name,
    avatar_url = EXCLUDED.avatar_url,
    raw_data = EXCLUDED.raw_data,
    last_login_at = now()
RETURNING user_id, username, password, email, display_name, avatar_url, provider, provider_user_id, raw_data, account_type, created_at, last_login_at
`

type UpsertOAuthUserParams struct {
	UserID         string
	Email          pgtype.Text
	DisplayName    pgtype.Text
	AvatarURL      pgtype.Text
	Provider       pgtype.Text
	ProviderUserID pgtype.Text
	RawData        []byte
	AccountType    pgtype.Int2
}

func (q *Queries) UpsertOAuthUser(ctx context.Context, arg UpsertOAuthUserParams) (User, error) {
	row := q.db.QueryRow(ctx, upsertOAuthUser,
		arg.UserID,
		arg.Email,
		arg.DisplayName,
		arg.AvatarURL,
		arg.Provider,
		arg.ProviderUserID,
		arg.RawData,
		arg.AccountType,
	)
	var i User
	err := row.Scan(
		&i.UserID,
		&i.Username,
		&i.Password,
		&i.Email,
		&i.DisplayName,
		&i.AvatarURL,
		&i.Provider,
		&i.ProviderUserID,
		&i.RawData,
		&i.AccountType,
		&i.CreatedAt,
		&i.LastLoginAt,
	)
	return i, err
}

const updateUserLastLogin = `UPDATE users SET last_login_at = now() WHERE user_id = $1`

func (q *Queries) UpdateUserLastLogin(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, updateUserLastLogin, userID)
	return err
}

// ---- refresh tokens ----

const createRefreshToken = `
INSERT INTO refresh_tokens (user_id, token_hash, device_info, ip_address, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, token_hash, device_info, ip_address, expires_at, revoked_at, created_at
`

type CreateRefreshTokenParams struct {
	UserID     string
	TokenHash  string
	DeviceInfo pgtype.Text
	IPAddress  pgtype.Text
	ExpiresAt  pgtype.Timestamptz
}

func (q *Queries) CreateRefreshToken(ctx context.Context, arg CreateRefreshTokenParams) (RefreshToken, error) {
	row := q.db.QueryRow(ctx, createRefreshToken,
		arg.UserID,
		arg.TokenHash,
		arg.DeviceInfo,
		arg.IPAddress,
		arg.ExpiresAt,
	)
	var i RefreshToken
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.TokenHash,
		&i.DeviceInfo,
		&i.IPAddress,
		&i.ExpiresAt,
		&i.RevokedAt,
		&i.CreatedAt,
	)
	return i, err
}

const getRefreshTokenByHash = `
SELECT id, user_id, token_hash, device_info, ip_address, expires_at, revoked_at, created_at
FROM refresh_tokens
WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > now()
`

func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (RefreshToken, error) {
	row := q.db.QueryRow(ctx, getRefreshTokenByHash, tokenHash)
	var i RefreshToken
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.TokenHash,
		&i.DeviceInfo,
		&i.IPAddress,
		&i.ExpiresAt,
		&i.RevokedAt,
		&i.CreatedAt,
	)
	return i, err
}

const revokeRefreshToken = `UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1`

func (q *Queries) RevokeRefreshToken(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, revokeRefreshToken, id)
	return err
}

const revokeAllUserRefreshTokens = `UPDATE refresh_tokens SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL`

func (q *Queries) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, revokeAllUserRefreshTokens, userID)
	return err
}

// ---- profiles ----

const getUserProfile = `
SELECT user_id, main_goal, low_mood_frequency, low_interest_frequency, energy_level, updated_at
FROM user_profiles WHERE user_id = $1
`

func (q *Queries) GetUserProfile(ctx context.Context, userID string) (UserProfile, error) {
	row := q.db.QueryRow(ctx, getUserProfile, userID)
	var i UserProfile
	err := row.Scan(
		&i.UserID,
		&i.MainGoal,
		&i.LowMoodFrequency,
		&i.LowInterestFrequency,
		&i.EnergyLevel,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertUserProfile = `
INSERT INTO user_profiles (user_id, main_goal, low_mood_frequency, low_interest_frequency, energy_level, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (user_id) DO UPDATE SET
    main_goal = EXCLUDED.main_goal,
    low_mood_frequency = EXCLUDED.low_mood_frequency,
    low_interest_frequency = EXCLUDED.low_interest_frequency,
    energy_level = EXCLUDED.energy_level,
    updated_at = now()
RETURNING user_id, main_goal, low_mood_frequency, low_interest_frequency, energy_level, updated_at
`

type UpsertUserProfileParams struct {
	UserID               string
	MainGoal             pgtype.Text
	LowMoodFrequency     pgtype.Text
	LowInterestFrequency pgtype.Text
	EnergyLevel          pgtype.Text
}

func (q *Queries) UpsertUserProfile(ctx context.Context, arg UpsertUserProfileParams) (UserProfile, error) {
	row := q.db.QueryRow(ctx, upsertUserProfile,
		arg.UserID,
		arg.MainGoal,
		arg.LowMoodFrequency,
		arg.LowInterestFrequency,
		arg.EnergyLevel,
	)
	var i UserProfile
	err := row.Scan(
		&i.UserID,
		&i.MainGoal,
		&i.LowMoodFrequency,
		&i.LowInterestFrequency,
		&i.EnergyLevel,
		&i.UpdatedAt,
	)
	return i, err
}

// ---- conversations ----

const createConversation = `
INSERT INTO conversations (user_id, title)
VALUES ($1, $2)
RETURNING conversation_id, user_id, title, created_at, updated_at
`

type CreateConversationParams struct {
	UserID string
	Title  string
}

func (q *Queries) CreateConversation(ctx context.Context, arg CreateConversationParams) (Conversation, error) {
	row := q.db.QueryRow(ctx, createConversation, arg.UserID, arg.Title)
	var i Conversation
	err := row.Scan(
		&i.ConversationID,
		&i.UserID,
		&i.Title,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listConversations = `
SELECT conversation_id, user_id, title, created_at, updated_at
FROM conversations WHERE user_id = $1
ORDER BY updated_at DESC
`

func (q *Queries) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := q.db.Query(ctx, listConversations, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Conversation
	for rows.Next() {
		var i Conversation
		if err := rows.Scan(
			&i.ConversationID,
			&i.UserID,
			&i.Title,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getConversation = `
SELECT conversation_id, user_id, title, created_at, updated_at
FROM conversations WHERE conversation_id = $1
`

func (q *Queries) GetConversation(ctx context.Context, conversationID pgtype.UUID) (Conversation, error) {
	row := q.db.QueryRow(ctx, getConversation, conversationID)
	var i Conversation
	err := row.Scan(
		&i.ConversationID,
		&i.UserID,
		&i.Title,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateConversationTitle = `UPDATE conversations SET title = $2, updated_at = now() WHERE conversation_id = $1`

func (q *Queries) UpdateConversationTitle(ctx context.Context, conversationID pgtype.UUID, title string) error {
	_, err := q.db.Exec(ctx, updateConversationTitle, conversationID, title)
	return err
}

const touchConversation = `UPDATE conversations SET updated_at = now() WHERE conversation_id = $1`

func (q *Queries) TouchConversation(ctx context.Context, conversationID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, touchConversation, conversationID)
	return err
}

const deleteConversation = `DELETE FROM conversations WHERE conversation_id = $1`

func (q *Queries) DeleteConversation(ctx context.Context, conversationID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteConversation, conversationID)
	return err
}

// ---- messages ----

const createMessage = `
INSERT INTO messages (conversation_id, role, text)
VALUES ($1, $2, $3)
RETURNING message_id, conversation_id, role, text, created_at
`

type CreateMessageParams struct {
	ConversationID pgtype.UUID
	Role           string
	Text           string
}

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	row := q.db.QueryRow(ctx, createMessage, arg.ConversationID, arg.Role, arg.Text)
	var i Message
	err := row.Scan(
		&i.MessageID,
		&i.ConversationID,
		&i.Role,
		&i.Text,
		&i.CreatedAt,
	)
	return i, err
}

const listMessages = `
SELECT message_id, conversation_id, role, text, created_at
FROM messages WHERE conversation_id = $1
ORDER BY created_at ASC
`

func (q *Queries) ListMessages(ctx context.Context, conversationID pgtype.UUID) ([]Message, error) {
	rows, err := q.db.Query(ctx, listMessages, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.MessageID,
			&i.ConversationID,
			&i.Role,
			&i.Text,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// listRecentMessages returns the newest rows first; callers reverse them
// before building prompt history.
const listRecentMessages = `
SELECT message_id, conversation_id, role, text, created_at
FROM messages WHERE conversation_id = $1
ORDER BY created_at DESC
LIMIT $2
`

type ListRecentMessagesParams struct {
	ConversationID pgtype.UUID
	LimitCount     int32
}

func (q *Queries) ListRecentMessages(ctx context.Context, arg ListRecentMessagesParams) ([]Message, error) {
	rows, err := q.db.Query(ctx, listRecentMessages, arg.ConversationID, arg.LimitCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.MessageID,
			&i.ConversationID,
			&i.Role,
			&i.Text,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countMessages = `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`

func (q *Queries) CountMessages(ctx context.Context, conversationID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countMessages, conversationID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// ---- core insights ----

const getCoreInsights = `SELECT insights FROM core_insights WHERE user_id = $1`

func (q *Queries) GetCoreInsights(ctx context.Context, userID string) ([]string, error) {
	row := q.db.QueryRow(ctx, getCoreInsights, userID)
	var insights []string
	err := row.Scan(&insights)
	return insights, err
}

const upsertCoreInsights = `
INSERT INTO core_insights (user_id, insights, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET insights = EXCLUDED.insights, updated_at = now()
`

func (q *Queries) UpsertCoreInsights(ctx context.Context, userID string, insights []string) error {
	_, err := q.db.Exec(ctx, upsertCoreInsights, userID, insights)
	return err
}

// ---- moods ----

const upsertMoodEntry = `
INSERT INTO mood_entries (user_id, mood, entry_date)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, entry_date) DO UPDATE SET mood = EXCLUDED.mood, created_at = now()
RETURNING user_id, mood, entry_date, created_at
`

type UpsertMoodEntryParams struct {
	UserID    string
	Mood      string
	EntryDate pgtype.Date
}

func (q *Queries) UpsertMoodEntry(ctx context.Context, arg UpsertMoodEntryParams) (MoodEntry, error) {
	row := q.db.QueryRow(ctx, upsertMoodEntry, arg.UserID, arg.Mood, arg.EntryDate)
	var i MoodEntry
	err := row.Scan(
		&i.UserID,
		&i.Mood,
		&i.EntryDate,
		&i.CreatedAt,
	)
	return i, err
}

const listMoodEntries = `
SELECT user_id, mood, entry_date, created_at
FROM mood_entries
WHERE user_id = $1 AND entry_date BETWEEN $2 AND $3
ORDER BY entry_date DESC
`

type ListMoodEntriesParams struct {
	UserID    string
	StartDate pgtype.Date
	EndDate   pgtype.Date
}

func (q *Queries) ListMoodEntries(ctx context.Context, arg ListMoodEntriesParams) ([]MoodEntry, error) {
	rows, err := q.db.Query(ctx, listMoodEntries, arg.UserID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MoodEntry
	for rows.Next() {
		var i MoodEntry
		if err := rows.Scan(
			&i.UserID,
			&i.Mood,
			&i.EntryDate,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteMoodEntry = `DELETE FROM mood_entries WHERE user_id = $1 AND entry_date = $2`

func (q *Queries) DeleteMoodEntry(ctx context.Context, userID string, entryDate pgtype.Date) error {
	_, err := q.db.Exec(ctx, deleteMoodEntry, userID, entryDate)
	return err
}

// ---- reminders ----

const getReminderSettings = `
SELECT user_id, morning_time, evening_time, enabled, updated_at
FROM reminder_settings WHERE user_id = $1
`

func (q *Queries) GetReminderSettings(ctx context.Context, userID string) (ReminderSettings, error) {
	row := q.db.QueryRow(ctx, getReminderSettings, userID)
	var i ReminderSettings
	err := row.Scan(
		&i.UserID,
		&i.MorningTime,
		&i.EveningTime,
		&i.Enabled,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertReminderSettings = `
INSERT INTO reminder_settings (user_id, morning_time, evening_time, enabled, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (user_id) DO UPDATE SET
    morning_time = EXCLUDED.morning_time,
    evening_time = EXCLUDED.evening_time,
    enabled = EXCLUDED.enabled,
    updated_at = now()
RETURNING user_id, morning_time, evening_time, enabled, updated_at
`

type UpsertReminderSettingsParams struct {
	UserID      string
	MorningTime string
	EveningTime string
	Enabled     bool
}

func (q *Queries) UpsertReminderSettings(ctx context.Context, arg UpsertReminderSettingsParams) (ReminderSettings, error) {
	row := q.db.QueryRow(ctx, upsertReminderSettings,
		arg.UserID,
		arg.MorningTime,
		arg.EveningTime,
		arg.Enabled,
	)
	var i ReminderSettings
	err := row.Scan(
		&i.UserID,
		&i.MorningTime,
		&i.EveningTime,
		&i.Enabled,
		&i.UpdatedAt,
	)
	return i, err
}

// ---- psychologists ----

const listPsychologists = `
SELECT psychologist_id, name, specialty, bio, photo_url, rating, years_experience, available
FROM psychologists
WHERE ($1::text IS NULL OR specialty = $1)
ORDER BY rating DESC, name ASC
`

func (q *Queries) ListPsychologists(ctx context.Context, specialty pgtype.Text) ([]Psychologist, error) {
	rows, err := q.db.Query(ctx, listPsychologists, specialty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Psychologist
	for rows.Next() {
		var i Psychologist
		if err := rows.Scan(
			&i.PsychologistID,
			&i.Name,
			&i.Specialty,
			&i.Bio,
			&i.PhotoURL,
			&i.Rating,
			&i.YearsExperience,
			&i.Available,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getPsychologist = `
SELECT psychologist_id, name, specialty, bio, photo_url, rating, years_experience, available
FROM psychologists WHERE psychologist_id = $1
`

func (q *Queries) GetPsychologist(ctx context.Context, psychologistID pgtype.UUID) (Psychologist, error) {
	row := q.db.QueryRow(ctx, getPsychologist, psychologistID)
	var i Psychologist
	err := row.Scan(
		&i.PsychologistID,
		&i.Name,
		&i.Specialty,
		&i.Bio,
		&i.PhotoURL,
		&i.Rating,
		&i.YearsExperience,
		&i.Available,
	)
	return i, err
}

const countPsychologists = `SELECT COUNT(*) FROM psychologists`

func (q *Queries) CountPsychologists(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countPsychologists)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createPsychologist = `
INSERT INTO psychologists (name, specialty, bio, photo_url, rating, years_experience, available)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreatePsychologistParams struct {
	Name            string
	Specialty       string
	Bio             pgtype.Text
	PhotoURL        pgtype.Text
	Rating          float64
	YearsExperience int32
	Available       bool
}

func (q *Queries) CreatePsychologist(ctx context.Context, arg CreatePsychologistParams) error {
	_, err := q.db.Exec(ctx, createPsychologist,
		arg.Name,
		arg.Specialty,
		arg.Bio,
		arg.PhotoURL,
		arg.Rating,
		arg.YearsExperience,
		arg.Available,
	)
	return err
}

const createContactRequest = `
INSERT INTO contact_requests (psychologist_id, user_id, message)
VALUES ($1, $2, $3)
RETURNING request_id, psychologist_id, user_id, message, created_at
`

type CreateContactRequestParams struct {
	PsychologistID pgtype.UUID
	UserID         string
	Message        pgtype.Text
}

func (q *Queries) CreateContactRequest(ctx context.Context, arg CreateContactRequestParams) (ContactRequest, error) {
	row := q.db.QueryRow(ctx, createContactRequest, arg.PsychologistID, arg.UserID, arg.Message)
	var i ContactRequest
	err := row.Scan(
		&i.RequestID,
		&i.PsychologistID,
		&i.UserID,
		&i.Message,
		&i.CreatedAt,
	)
	return i, err
}

// ---- contact ----

const createContactMessage = `
INSERT INTO contact_messages (name, email, body)
VALUES ($1, $2, $3)
RETURNING message_id, name, email, body, created_at
`

type CreateContactMessageParams struct {
	Name  string
	Email string
	Body  string
}

func (q *Queries) CreateContactMessage(ctx context.Context, arg CreateContactMessageParams) (ContactMessage, error) {
	row := q.db.QueryRow(ctx, createContactMessage, arg.Name, arg.Email, arg.Body)
	var i ContactMessage
	err := row.Scan(
		&i.MessageID,
		&i.Name,
		&i.Email,
		&i.Body,
		&i.CreatedAt,
	)
	return i, err
}
