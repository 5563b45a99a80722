package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

	`CREATE TABLE IF NOT EXISTS users (
		user_id          TEXT PRIMARY KEY,
		username         TEXT UNIQUE,
		password         TEXT,
		email            TEXT UNIQUE,
		display_name     TEXT,
		avatar_url       TEXT,
		provider         TEXT,
		provider_user_id TEXT,
		raw_data         JSONB,
		account_type     SMALLINT NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login_at    TIMESTAMPTZ,
		UNIQUE (provider, provider_user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id     TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		token_hash  TEXT NOT NULL UNIQUE,
		device_info TEXT,
		ip_address  TEXT,
		expires_at  TIMESTAMPTZ NOT NULL,
		revoked_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id                TEXT PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
		main_goal              TEXT,
		low_mood_frequency     TEXT,
		low_interest_frequency TEXT,
		energy_level           TEXT,
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS conversations (
		conversation_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id         TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		title           TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at DESC)`,

	`CREATE TABLE IF NOT EXISTS messages (
		message_id      UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		conversation_id UUID NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
		role            TEXT NOT NULL,
		text            TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS core_insights (
		user_id    TEXT PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
		insights   TEXT[] NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS mood_entries (
		user_id    TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		mood       TEXT NOT NULL,
		entry_date DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, entry_date)
	)`,

	`CREATE TABLE IF NOT EXISTS reminder_settings (
		user_id      TEXT PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
		morning_time TEXT NOT NULL DEFAULT '09:00',
		evening_time TEXT NOT NULL DEFAULT '21:00',
		enabled      BOOLEAN NOT NULL DEFAULT true,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS psychologists (
		psychologist_id  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name             TEXT NOT NULL,
		specialty        TEXT NOT NULL,
		bio              TEXT,
		photo_url        TEXT,
		rating           DOUBLE PRECISION NOT NULL DEFAULT 0,
		years_experience INTEGER NOT NULL DEFAULT 0,
		available        BOOLEAN NOT NULL DEFAULT true
	)`,

	`CREATE TABLE IF NOT EXISTS contact_requests (
		request_id      UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		psychologist_id UUID NOT NULL REFERENCES psychologists(psychologist_id) ON DELETE CASCADE,
		user_id         TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		message         TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS contact_messages (
		message_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name       TEXT NOT NULL,
		email      TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema and seeds the psychologist directory when empty.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return seedPsychologists(ctx, New(pool))
}

func seedPsychologists(ctx context.Context, q *Queries) error {
	count, err := q.CountPsychologists(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	seed := []CreatePsychologistParams{
		{
			Name:            "Dra. Elena Ríos",
			Specialty:       "Ansiedad",
			Bio:             pgtype.Text{String: "Especialista en trastornos de ansiedad y manejo del estrés con enfoque cognitivo-conductual.", Valid: true},
			Rating:          4.9,
			YearsExperience: 12,
			Available:       true,
		},
		{
			Name:            "Dr. Marco Solís",
			Specialty:       "Depresión",
			Bio:             pgtype.Text{String: "Acompañamiento en procesos depresivos y duelo, con experiencia en terapia de aceptación y compromiso.", Valid: true},
			Rating:          4.8,
			YearsExperience: 15,
			Available:       true,
		},
		{
			Name:            "Dra. Sofía Lema",
			Specialty:       "Relaciones",
			Bio:             pgtype.Text{String: "Terapia de pareja y familiar, comunicación asertiva y vínculos saludables.", Valid: true},
			Rating:          4.7,
			YearsExperience: 9,
			Available:       true,
		},
		{
			Name:            "Dr. Andrés Cueva",
			Specialty:       "Autoestima",
			Bio:             pgtype.Text{String: "Trabajo en autoestima, identidad y desarrollo personal para adolescentes y adultos jóvenes.", Valid: true},
			Rating:          4.6,
			YearsExperience: 7,
			Available:       false,
		},
	}
	for _, p := range seed {
		if err := q.CreatePsychologist(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
