/*
Package user exposes the Zhi profile endpoints: the onboarding answers that
personalize the companion and the account summary shown in settings.
*/
package user

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"zhi-server/internal/database"
	"zhi-server/internal/utility"
)

var queries *database.Queries

// ProfileRequest carries the onboarding answers. Wire keys match what the
// mobile client sends in Spanish.
type ProfileRequest struct {
	ObjetivoPrincipal     string `json:"objetivoPrincipal" form:"objetivoPrincipal"`
	FrecuenciaAnimoBajo   string `json:"frecuenciaAnimoBajo" form:"frecuenciaAnimoBajo"`
	FrecuenciaPocoInteres string `json:"frecuenciaPocoInteres" form:"frecuenciaPocoInteres"`
	NivelEnergia          string `json:"nivelEnergia" form:"nivelEnergia"`
}

// ProfileResponse mirrors ProfileRequest plus account identity fields.
type ProfileResponse struct {
	UserID                string `json:"user_id"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	ObjetivoPrincipal     string `json:"objetivoPrincipal"`
	FrecuenciaAnimoBajo   string `json:"frecuenciaAnimoBajo"`
	FrecuenciaPocoInteres string `json:"frecuenciaPocoInteres"`
	NivelEnergia          string `json:"nivelEnergia"`
	Onboarded             bool   `json:"onboarded"`
}

// InitUserPackage prepares the package for operation.
func InitUserPackage(dbpool *pgxpool.Pool) {
	queries = database.New(dbpool)
	log.Info().Msg("User package initialized.")
}

// GetProfileHandler returns the account summary plus onboarding answers.
// A user who never completed onboarding gets onboarded=false with empty fields.
func GetProfileHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	user, err := queries.GetUserByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}

	resp := ProfileResponse{
		UserID: user.UserID,
		Name:   displayName(user),
		Email:  user.Email.String,
	}

	profile, err := queries.GetUserProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Error().Err(err).Msg("Failed to fetch user profile")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch profile"})
		}
		return c.JSON(http.StatusOK, resp)
	}

	resp.ObjetivoPrincipal = profile.MainGoal.String
	resp.FrecuenciaAnimoBajo = profile.LowMoodFrequency.String
	resp.FrecuenciaPocoInteres = profile.LowInterestFrequency.String
	resp.NivelEnergia = profile.EnergyLevel.String
	resp.Onboarded = true

	return c.JSON(http.StatusOK, resp)
}

// UpdateProfileHandler upserts the onboarding answers. Empty answers are
// stored as NULL so the prompt renders its placeholders instead.
func UpdateProfileHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	profile, err := queries.UpsertUserProfile(ctx, database.UpsertUserProfileParams{
		UserID:               userID,
		MainGoal:             pgtype.Text{String: req.ObjetivoPrincipal, Valid: req.ObjetivoPrincipal != ""},
		LowMoodFrequency:     pgtype.Text{String: req.FrecuenciaAnimoBajo, Valid: req.FrecuenciaAnimoBajo != ""},
		LowInterestFrequency: pgtype.Text{String: req.FrecuenciaPocoInteres, Valid: req.FrecuenciaPocoInteres != ""},
		EnergyLevel:          pgtype.Text{String: req.NivelEnergia, Valid: req.NivelEnergia != ""},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to upsert user profile")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save profile"})
	}

	InvalidateContext(userID)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Profile saved",
		"profile": profile,
	})
}

// InvalidateContext is set by main so a profile change refreshes the cached
// prompt context without this package importing chat.
var InvalidateContext = func(string) {}

func displayName(user database.User) string {
	if user.DisplayName.String != "" {
		return user.DisplayName.String
	}
	return user.Username.String
}
