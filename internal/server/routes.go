package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"zhi-server/internal/admin"
	"zhi-server/internal/auth"
	"zhi-server/internal/chat"
	"zhi-server/internal/mood"
	"zhi-server/internal/psychologist"
	"zhi-server/internal/user"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(LoggerMiddleware)

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Platform"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Traditional Auth Routes
	e.POST("/signup", auth.SignupHandler)
	e.POST("/login", auth.LoginHandler)
	e.POST("/verify-otp", auth.VerifyOTPHandler)
	e.POST("/resend-otp", auth.ResendOTPHandler)

	// Web OAuth routes
	e.GET("/auth/:provider", auth.ProviderHandler)
	e.GET("/auth/:provider/callback", auth.CallbackHandler)

	// Mobile auth route - Android/iOS Google Sign-In
	e.POST("/auth/mobile/google", auth.MobileGoogleAuthHandler)

	// Refresh token endpoint (both web and mobile)
	e.POST("/auth/refresh", auth.RefreshHandler)

	// Companion flows. These are stateless: the client supplies the full
	// context and owns the conversation state.
	e.POST("/chat", chat.ChatHandler)
	e.POST("/generate-title", chat.GenerateTitleHandler)
	e.POST("/extract-insights", chat.ExtractInsightsHandler)

	// Public surfaces
	e.GET("/health", s.healthHandler)
	e.GET("/psychologists", psychologist.ListHandler)
	e.GET("/psychologists/:id", psychologist.GetHandler)
	e.POST("/contact", admin.ContactFormHandler)

	// Protected routes
	protected := e.Group("")
	protected.Use(auth.JwtAuthMiddleware)

	// Account & onboarding profile
	protected.GET("/profile", user.GetProfileHandler)
	protected.PUT("/profile", user.UpdateProfileHandler)
	protected.GET("/logout", auth.LogoutHandler)

	// Stored conversations with server-side orchestration
	protected.POST("/conversations", chat.CreateConversationHandler)
	protected.GET("/conversations", chat.ListConversationsHandler)
	protected.GET("/conversations/:id", chat.GetConversationHandler)
	protected.DELETE("/conversations/:id", chat.DeleteConversationHandler)
	protected.POST("/conversations/:id/messages", chat.PostMessageHandler)
	protected.GET("/insights", chat.GetInsightsHandler)

	// Mood check-ins & reminders
	protected.POST("/moods", mood.RecordMoodHandler)
	protected.GET("/moods", mood.ListMoodsHandler)
	protected.GET("/moods/summary", mood.MoodSummaryHandler)
	protected.DELETE("/moods/:date", mood.DeleteMoodHandler)
	protected.GET("/reminders", mood.GetRemindersHandler)
	protected.PUT("/reminders", mood.UpdateRemindersHandler)

	// Professional help directory (contact needs auth)
	protected.POST("/psychologists/:id/contact", psychologist.ContactHandler)

	// Websocket for title/insight push events
	protected.GET("/ws", chat.WebsocketHandler)

	// Admin routes
	adminGroup := protected.Group("/admin")
	adminGroup.Use(auth.AdminOnly)
	adminGroup.GET("/status", admin.GetServerStatusHandler)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.db.Health())
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}
