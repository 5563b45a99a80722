/*
Package psychologist serves the professional-help directory: a curated list
of psychologists the app shows when someone wants to go beyond the companion.
*/
package psychologist

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"zhi-server/internal/database"
	"zhi-server/internal/utility"
)

var queries *database.Queries

// ContactRequestBody is the optional note sent with a contact request.
type ContactRequestBody struct {
	Message string `json:"message" form:"message"`
}

// InitPsychologistPackage prepares the package for operation.
func InitPsychologistPackage(dbpool *pgxpool.Pool) {
	queries = database.New(dbpool)
	log.Info().Msg("Psychologist package initialized.")
}

// ListHandler returns the directory, optionally filtered by ?specialty=.
func ListHandler(c echo.Context) error {
	ctx := c.Request().Context()

	specialty := pgtype.Text{}
	if s := c.QueryParam("specialty"); s != "" {
		specialty = pgtype.Text{String: s, Valid: true}
	}

	psychologists, err := queries.ListPsychologists(ctx, specialty)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list psychologists")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list psychologists"})
	}
	if psychologists == nil {
		psychologists = []database.Psychologist{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"psychologists": psychologists})
}

// GetHandler returns one directory entry.
func GetHandler(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := utility.ParsePgUUID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid psychologist ID"})
	}

	psychologist, err := queries.GetPsychologist(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Psychologist not found"})
	}

	return c.JSON(http.StatusOK, psychologist)
}

// ContactHandler records a contact request from the authenticated user.
func ContactHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id, err := utility.ParsePgUUID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid psychologist ID"})
	}

	psychologist, err := queries.GetPsychologist(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Psychologist not found"})
	}
	if !psychologist.Available {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Psychologist is not taking new patients"})
	}

	var req ContactRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	request, err := queries.CreateContactRequest(ctx, database.CreateContactRequestParams{
		PsychologistID: id,
		UserID:         userID,
		Message:        pgtype.Text{String: req.Message, Valid: req.Message != ""},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create contact request")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to send contact request"})
	}

	return c.JSON(http.StatusCreated, request)
}
