package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	emailverifier "github.com/AfterShip/email-verifier"
	"github.com/go-gomail/gomail"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"zhi-server/internal/database"
	"zhi-server/internal/utility"
)

const (
	AccessTokenDuration  = 15 * time.Minute
	RefreshTokenDuration = 30 * 24 * time.Hour
	OtpExpiryDuration    = 5 * time.Minute
	OtpResendCooldown    = 1 * time.Minute
	MaxOtpAttempts       = 3
)

var (
	queries  *database.Queries
	verifier = emailverifier.
			NewVerifier().
			EnableSMTPCheck().
			EnableAutoUpdateDisposable().
			EnableDomainSuggest()
	emailCache  = sync.Map{}
	otpStore    = sync.Map{}
	otpMutex    = sync.RWMutex{}
	googleOAuth *oauth2.Config
)

type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	User         database.User `json:"user"`
}

// GoogleTokenRequest is used for mobile Google Sign-In. The client sends
// either the id_token directly or a server_auth_code to exchange.
type GoogleTokenRequest struct {
	IDToken        string `json:"id_token" form:"id_token"`
	ServerAuthCode string `json:"server_auth_code" form:"server_auth_code"`
}

// GoogleUserInfo represents the user info from Google
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// SignupRequest for traditional registration
type SignupRequest struct {
	Username    string `json:"username" form:"username" validate:"required,min=3,max=50"`
	Password    string `json:"password" form:"password" validate:"required,min=8"`
	Email       string `json:"email" form:"email" validate:"required,email"`
	DisplayName string `json:"display_name" form:"display_name"`
}

// LoginRequest for traditional login
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// UserResponse for API responses
type UserResponse struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AccountType int16  `json:"account_type"`
}

// TraditionalAuthResponse for username/password auth
type TraditionalAuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

type emailVerificationResult struct {
	valid     bool
	message   string
	timestamp time.Time
}

// OtpEntry stores OTP secret and metadata
type OtpEntry struct {
	UserID      string
	Email       string
	Secret      string
	GeneratedAt time.Time
	Attempts    int
	LastAttempt time.Time
	Purpose     string // "signup" or "login"
}

// VerifyOTPRequest for OTP verification
type VerifyOTPRequest struct {
	UserID  string `json:"user_id" form:"user_id"`
	OtpCode string `json:"otp_code" form:"otp_code"`
}

// ResendOTPRequest for resending OTP
type ResendOTPRequest struct {
	UserID string `json:"user_id" form:"user_id"`
}

func InitAuth(dbpool *pgxpool.Pool) error {
	queries = database.New(dbpool)
	verifier = emailverifier.NewVerifier()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("FATAL: SESSION_SECRET environment variable is not set")
	}

	googleClientId := os.Getenv("GOOGLE_CLIENT_ID")
	googleClientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	appUrl := os.Getenv("APP_URL")

	if googleClientId == "" || googleClientSecret == "" || appUrl == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, and APP_URL must be set")
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development"
	}
	isProd := appEnv == "production"

	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.MaxAge(600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = isProd
	store.Options.SameSite = http.SameSiteLaxMode

	// ngrok tunnels need cross-domain cookies during development
	if strings.Contains(appUrl, "ngrok") {
		store.Options.Domain = ""
		store.Options.SameSite = http.SameSiteNoneMode
		store.Options.Secure = true
		log.Println("Detected ngrok URL - using cross-domain cookie settings")
	}

	gothic.Store = store

	log.Printf("Auth initialized in '%s' mode. Secure cookies: %v.", appEnv, isProd)

	callbackURL := fmt.Sprintf("%s/auth/google/callback", appUrl)
	goth.UseProviders(
		google.New(googleClientId, googleClientSecret, callbackURL),
	)

	// Used to exchange the serverAuthCode that mobile clients send when
	// they obtained an offline-access code instead of an id_token.
	googleOAuth = &oauth2.Config{
		ClientID:     googleClientId,
		ClientSecret: googleClientSecret,
		RedirectURL:  callbackURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     googleoauth.Endpoint,
	}

	startOTPCleanup()
	log.Printf("Auth initialized with OTP support")
	log.Printf("OAuth callback URL: %s", callbackURL)

	return nil
}

// MobileGoogleAuthHandler handles Google Sign-In from Android/iOS
func MobileGoogleAuthHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var req GoogleTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if req.IDToken == "" && req.ServerAuthCode == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "id_token or server_auth_code is required"})
	}

	idToken := req.IDToken
	if idToken == "" {
		exchanged, err := exchangeServerAuthCode(ctx, req.ServerAuthCode)
		if err != nil {
			log.Printf("Error exchanging server auth code: %v", err)
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid Google auth code"})
		}
		idToken = exchanged
	}

	userInfo, err := verifyGoogleIDToken(idToken)
	if err != nil {
		log.Printf("Error verifying Google ID token: %v", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid Google token"})
	}

	isValidEmail, emailError, err := verifyEmailAddressFastWithCache(userInfo.Email)
	if err != nil {
		log.Printf("Email verification error: %v", err)
	} else if !isValidEmail {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": emailError})
	}

	rawDataJSON, _ := json.Marshal(map[string]interface{}{
		"sub":            userInfo.Sub,
		"email":          userInfo.Email,
		"email_verified": userInfo.EmailVerified,
		"name":           userInfo.Name,
		"picture":        userInfo.Picture,
		"given_name":     userInfo.GivenName,
		"family_name":    userInfo.FamilyName,
	})

	// Generate UUID for new OAuth users; existing rows keep theirs via upsert
	userID := uuid.New().String()

	user, err := queries.UpsertOAuthUser(ctx, database.UpsertOAuthUserParams{
		UserID:         userID,
		Email:          pgtype.Text{String: userInfo.Email, Valid: true},
		DisplayName:    pgtype.Text{String: userInfo.Name, Valid: userInfo.Name != ""},
		AvatarURL:      pgtype.Text{String: userInfo.Picture, Valid: userInfo.Picture != ""},
		Provider:       pgtype.Text{String: "google", Valid: true},
		ProviderUserID: pgtype.Text{String: userInfo.Sub, Valid: true},
		RawData:        rawDataJSON,
		AccountType:    pgtype.Int2{Int16: 0, Valid: true},
	})

	if err != nil {
		log.Printf("Error upserting OAuth user: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error saving user data"})
	}

	accessToken, err := generateAccessToken(&user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating access token"})
	}

	refreshToken, err := generateAndStoreRefreshToken(ctx, user.UserID, c.Request())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating refresh token"})
	}

	response := AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessTokenDuration.Seconds()),
		User:         user,
	}

	log.Printf("Mobile OAuth user successfully authenticated: %s", user.Email.String)
	return c.JSON(http.StatusOK, response)
}

// exchangeServerAuthCode trades an offline-access auth code for the id_token
// embedded in Google's token response.
func exchangeServerAuthCode(ctx context.Context, code string) (string, error) {
	token, err := googleOAuth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange auth code: %w", err)
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", fmt.Errorf("token response missing id_token")
	}
	return idToken, nil
}

// verifyGoogleIDToken verifies the Google ID token and returns user info
func verifyGoogleIDToken(idToken string) (*GoogleUserInfo, error) {
	url := fmt.Sprintf("https://oauth2.googleapis.com/tokeninfo?id_token=%s", idToken)

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid token: status %d", resp.StatusCode)
	}

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	if userInfo.EmailVerified != "true" {
		return nil, fmt.Errorf("email not verified")
	}

	return &userInfo, nil
}

// CallbackHandler handles web OAuth callback
func CallbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	provider := c.Param("provider")
	if provider == "" {
		provider = "google"
	}

	req := c.Request()
	req = req.WithContext(context.WithValue(req.Context(), "provider", provider))

	gothUser, err := gothic.CompleteUserAuth(c.Response().Writer, req)
	if err != nil {
		log.Printf("Gothic auth completion error: %v (provider: %s)", err, provider)

		// If session is lost, redirect back to auth start
		if strings.Contains(err.Error(), "select a provider") {
			log.Printf("Session lost, redirecting to auth start")
			return c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("/auth/%s", provider))
		}

		return c.String(http.StatusInternalServerError, fmt.Sprintf("Error completing auth: %v", err))
	}

	rawDataJSON, _ := json.Marshal(gothUser.RawData)

	userID := uuid.New().String()

	user, err := queries.UpsertOAuthUser(ctx, database.UpsertOAuthUserParams{
		UserID:         userID,
		Email:          pgtype.Text{String: gothUser.Email, Valid: true},
		DisplayName:    pgtype.Text{String: gothUser.Name, Valid: gothUser.Name != ""},
		AvatarURL:      pgtype.Text{String: gothUser.AvatarURL, Valid: gothUser.AvatarURL != ""},
		Provider:       pgtype.Text{String: gothUser.Provider, Valid: true},
		ProviderUserID: pgtype.Text{String: gothUser.UserID, Valid: true},
		RawData:        rawDataJSON,
		AccountType:    pgtype.Int2{Int16: 0, Valid: true},
	})

	if err != nil {
		log.Printf("Error upserting OAuth user: %v", err)
		return c.String(http.StatusInternalServerError, "Error saving user data")
	}

	accessToken, err := generateAccessToken(&user)
	if err != nil {
		return c.String(http.StatusInternalServerError, "Error generating access token")
	}

	refreshToken, err := generateAndStoreRefreshToken(ctx, user.UserID, c.Request())
	if err != nil {
		return c.String(http.StatusInternalServerError, "Error generating refresh token")
	}

	setAuthCookies(c, accessToken, refreshToken)
	log.Printf("Web OAuth user successfully authenticated: %s", user.Email.String)
	return c.Redirect(http.StatusTemporaryRedirect, "/welcome/web")
}

func RefreshHandler(c echo.Context) error {
	ctx := c.Request().Context()
	var refreshToken string

	// Authorization header first (mobile), cookie second (web)
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		refreshToken = strings.TrimPrefix(authHeader, "Bearer ")
	} else {
		cookie, err := c.Cookie("refresh-token")
		if err == nil {
			refreshToken = cookie.Value
		}
	}

	if refreshToken == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No refresh token provided"})
	}

	user, newRefreshToken, err := useRefreshToken(ctx, refreshToken, c.Request())
	if err != nil {
		log.Printf("Refresh token error: %v", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired refresh token"})
	}

	accessToken, err := generateAccessToken(user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating access token"})
	}

	isMobile := c.Request().Header.Get("X-Platform") == "mobile" || strings.HasPrefix(authHeader, "Bearer ")

	if isMobile {
		response := AuthResponse{
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int64(AccessTokenDuration.Seconds()),
			User:         *user,
		}
		return c.JSON(http.StatusOK, response)
	}

	setAuthCookies(c, accessToken, newRefreshToken)
	return c.JSON(http.StatusOK, map[string]string{"message": "Token refreshed"})
}

func JwtAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var tokenString string
		isMobile := false

		authHeader := c.Request().Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			isMobile = true
		} else {
			cookie, err := c.Cookie("access-token")
			if err != nil {
				return c.Redirect(http.StatusTemporaryRedirect, "/login")
			}
			tokenString = cookie.Value
		}

		sessionSecret := os.Getenv("SESSION_SECRET")
		token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(sessionSecret), nil
		})

		if err != nil || !token.Valid {
			log.Printf("Token validation error: %v", err)
			if isMobile {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			}
			return c.Redirect(http.StatusTemporaryRedirect, "/login")
		}

		if claims, ok := token.Claims.(*JwtCustomClaims); ok {
			if claims.UserID == "" {
				if isMobile {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid user ID"})
				}
				return c.Redirect(http.StatusTemporaryRedirect, "/login")
			}

			user, err := queries.GetUserByID(ctx, claims.UserID)
			if err != nil {
				log.Printf("Error fetching user: %v", err)
				if isMobile {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "User not found"})
				}
				return c.Redirect(http.StatusTemporaryRedirect, "/login")
			}

			c.Set("user", &user)
			c.Set("user_id", claims.UserID)
			return next(c)
		}

		if isMobile {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
		}
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}
}

// AdminOnly gates routes behind account_type >= 1. Must run after
// JwtAuthMiddleware so the user is already loaded into the context.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get("user").(*database.User)
		if !ok || !user.AccountType.Valid || user.AccountType.Int16 < 1 {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Admin access required"})
		}
		return next(c)
	}
}

func LogoutHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := c.Get("user_id").(string)
	if ok && userID != "" {
		if err := queries.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
			log.Printf("Error revoking tokens: %v", err)
		}
	}

	clearAuthCookies(c)

	isMobile := c.Request().Header.Get("X-Platform") == "mobile" ||
		strings.HasPrefix(c.Request().Header.Get("Authorization"), "Bearer ")

	if isMobile {
		return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}

	return c.Redirect(http.StatusTemporaryRedirect, "/login")
}

// Helper functions

func generateAccessToken(user *database.User) (string, error) {
	// Use OAuth display name if available, otherwise the username
	name := user.DisplayName.String
	if name == "" && user.Username.Valid {
		name = user.Username.String
	}

	claims := &JwtCustomClaims{
		UserID: user.UserID,
		Email:  user.Email.String,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "zhi",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	sessionSecret := os.Getenv("SESSION_SECRET")
	return token.SignedString([]byte(sessionSecret))
}

func generateAndStoreRefreshToken(ctx context.Context, userID string, r *http.Request) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	hash := sha256.Sum256([]byte(token))
	tokenHash := base64.URLEncoding.EncodeToString(hash[:])

	deviceInfo := r.UserAgent()
	ipStr := strings.Split(r.RemoteAddr, ":")[0]

	_, err := queries.CreateRefreshToken(ctx, database.CreateRefreshTokenParams{
		UserID:     userID,
		TokenHash:  tokenHash,
		DeviceInfo: pgtype.Text{String: deviceInfo, Valid: deviceInfo != ""},
		IPAddress:  pgtype.Text{String: ipStr, Valid: ipStr != ""},
		ExpiresAt:  pgtype.Timestamptz{Time: time.Now().Add(RefreshTokenDuration), Valid: true},
	})

	if err != nil {
		log.Printf("Database error creating refresh token for user %s: %v", userID, err)
		return "", err
	}

	return token, nil
}

func useRefreshToken(ctx context.Context, token string, r *http.Request) (*database.User, string, error) {
	hash := sha256.Sum256([]byte(token))
	tokenHash := base64.URLEncoding.EncodeToString(hash[:])

	rt, err := queries.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return nil, "", fmt.Errorf("invalid refresh token")
	}

	if rt.RevokedAt.Valid {
		return nil, "", fmt.Errorf("token has been revoked")
	}

	if rt.ExpiresAt.Valid && time.Now().After(rt.ExpiresAt.Time) {
		return nil, "", fmt.Errorf("token has expired")
	}

	user, err := queries.GetUserByID(ctx, rt.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("user not found")
	}

	// Rotate: issue a new token, revoke the used one
	newToken, err := generateAndStoreRefreshToken(ctx, rt.UserID, r)
	if err != nil {
		return nil, "", err
	}

	if err := queries.RevokeRefreshToken(ctx, rt.ID); err != nil {
		log.Printf("Warning: failed to revoke old refresh token: %v", err)
	}

	return &user, newToken, nil
}

func setAuthCookies(c echo.Context, accessToken, refreshToken string) {
	appEnv := os.Getenv("APP_ENV")
	isProd := appEnv == "production"

	accessCookie := new(http.Cookie)
	accessCookie.Name = "access-token"
	accessCookie.Value = accessToken
	accessCookie.Expires = time.Now().Add(AccessTokenDuration)
	accessCookie.Path = "/"
	accessCookie.HttpOnly = true
	accessCookie.Secure = isProd
	accessCookie.SameSite = http.SameSiteLaxMode
	c.SetCookie(accessCookie)

	refreshCookie := new(http.Cookie)
	refreshCookie.Name = "refresh-token"
	refreshCookie.Value = refreshToken
	refreshCookie.Expires = time.Now().Add(RefreshTokenDuration)
	refreshCookie.Path = "/"
	refreshCookie.HttpOnly = true
	refreshCookie.Secure = isProd
	refreshCookie.SameSite = http.SameSiteLaxMode
	c.SetCookie(refreshCookie)
}

func clearAuthCookies(c echo.Context) {
	appEnv := os.Getenv("APP_ENV")
	isProd := appEnv == "production"

	for _, name := range []string{"access-token", "refresh-token"} {
		cookie := new(http.Cookie)
		cookie.Name = name
		cookie.Value = ""
		cookie.Expires = time.Unix(0, 0)
		cookie.MaxAge = -1
		cookie.Path = "/"
		cookie.HttpOnly = true
		cookie.Secure = isProd
		cookie.SameSite = http.SameSiteLaxMode
		c.SetCookie(cookie)
	}
}

func ProviderHandler(c echo.Context) error {
	provider := c.Param("provider")

	log.Printf("Starting OAuth flow for provider: %s", provider)

	ctx := context.WithValue(c.Request().Context(), "provider", provider)
	req := c.Request().WithContext(ctx)

	gothic.BeginAuthHandler(c.Response().Writer, req)
	return nil
}

// SignupHandler handles user registration
func SignupHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if err := utility.CheckIPRateLimit(utility.GetRealIP(c)); err != nil {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	}

	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if req.Username == "" || req.Password == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Username, password, and email are required"})
	}

	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Password must be at least 8 characters"})
	}

	isValidEmail, emailError, err := verifyEmailAddressWithCache(req.Email)
	if err != nil {
		log.Printf("Email verification error: %v", err)
	} else if !isValidEmail {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": emailError})
	}

	usernameExists, err := queries.CheckUsernameExists(ctx, pgtype.Text{String: req.Username, Valid: true})
	if err != nil {
		log.Printf("Error checking username: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if usernameExists {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Username already exists"})
	}

	emailExists, err := queries.CheckEmailExists(ctx, pgtype.Text{String: req.Email, Valid: true})
	if err != nil {
		log.Printf("Error checking email: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if emailExists {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Email already exists"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	userID := uuid.New().String()

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user, err := queries.CreateUser(ctx, database.CreateUserParams{
		UserID:      userID,
		Username:    pgtype.Text{String: req.Username, Valid: true},
		Password:    pgtype.Text{String: string(hashedPassword), Valid: true},
		Email:       pgtype.Text{String: req.Email, Valid: true},
		DisplayName: pgtype.Text{String: displayName, Valid: true},
		AccountType: pgtype.Int2{Int16: 0, Valid: true},
	})

	if err != nil {
		log.Printf("Error creating user: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create user"})
	}

	if err := generateAndStoreOTP(userID, user.Email.String, "signup"); err != nil {
		log.Printf("Failed to send OTP: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Registration successful but failed to send verification code. Please contact support.",
		})
	}

	log.Printf("New user registered: %s (%s). Awaiting OTP verification.", user.Username.String, user.Email.String)
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message":    "Registration successful. Verification code sent to your email.",
		"user_id":    userID,
		"email":      user.Email.String,
		"next_step":  "/verify",
		"expires_in": int(OtpExpiryDuration.Seconds()),
	})
}

// LoginHandler with OTP
func LoginHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if err := utility.CheckIPRateLimit(utility.GetRealIP(c)); err != nil {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Username and password are required"})
	}

	user, err := queries.GetUserByUsername(ctx, pgtype.Text{String: req.Username, Valid: true})
	if err != nil {
		log.Printf("Login attempt for non-existent user: %s", req.Username)
		utility.AddRandomDelay()
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password.String), []byte(req.Password))
	if err != nil {
		log.Printf("Failed login attempt for user: %s", req.Username)
		utility.AddRandomDelay()
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
	}

	if err := generateAndStoreOTP(user.UserID, user.Email.String, "login"); err != nil {
		log.Printf("Failed to send OTP: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to send verification code. " + err.Error(),
		})
	}

	log.Printf("Login credentials verified for %s. OTP sent.", user.Username.String)
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message":    "Verification code sent to your email.",
		"user_id":    user.UserID,
		"email":      user.Email.String,
		"next_step":  "/verify",
		"expires_in": int(OtpExpiryDuration.Seconds()),
	})
}

// email verification helpers

func verifyEmailAddress(email string) (bool, string, error) {
	ret, err := verifier.Verify(email)
	if err != nil {
		return false, "La verificación del correo falló por un error del sistema. Inténtalo de nuevo.", err
	}

	if !ret.Syntax.Valid {
		return false, "El formato del correo electrónico no es válido.", nil
	}

	if ret.Disposable {
		return false, "No se permiten correos electrónicos temporales.", nil
	}

	if ret.Reachable == "false" || ret.Reachable == "invalid" {
		return false, "No se puede verificar este correo electrónico.", nil
	}

	if ret.RoleAccount {
		log.Printf("Warning: role account detected: %s", email)
	}

	return true, "", nil
}

func verifyEmailAddressFast(email string) (bool, string, error) {
	// Quick syntax check without SMTP verification
	ret, err := verifier.Verify(email)
	if err != nil {
		return false, "La verificación del correo falló por un error del sistema. Inténtalo de nuevo.", err
	}

	if ret.Disposable {
		return false, "No se permiten correos electrónicos temporales.", nil
	}

	if ret.RoleAccount {
		log.Printf("Warning: role account detected: %s", email)
	}

	return true, "", nil
}

func verifyEmailAddressWithCache(email string) (bool, string, error) {
	if cached, ok := emailCache.Load(email); ok {
		result := cached.(emailVerificationResult)
		if time.Since(result.timestamp) < 24*time.Hour {
			return result.valid, result.message, nil
		}
	}

	valid, message, err := verifyEmailAddress(email)

	if err == nil {
		emailCache.Store(email, emailVerificationResult{
			valid:     valid,
			message:   message,
			timestamp: time.Now(),
		})
	}

	return valid, message, err
}

func verifyEmailAddressFastWithCache(email string) (bool, string, error) {
	if cached, ok := emailCache.Load(email); ok {
		result := cached.(emailVerificationResult)
		if time.Since(result.timestamp) < 24*time.Hour {
			return result.valid, result.message, nil
		}
	}

	valid, message, err := verifyEmailAddressFast(email)

	if err == nil {
		emailCache.Store(email, emailVerificationResult{
			valid:     valid,
			message:   message,
			timestamp: time.Now(),
		})
	}

	return valid, message, err
}

func generateAndStoreOTP(userID, email, purpose string) error {
	otpMutex.Lock()
	defer otpMutex.Unlock()

	// Enforce cooldown between sends
	if val, ok := otpStore.Load(userID); ok {
		entry := val.(OtpEntry)
		if time.Since(entry.GeneratedAt) < OtpResendCooldown {
			return fmt.Errorf("please wait %d seconds before requesting a new code",
				int(OtpResendCooldown.Seconds()-time.Since(entry.GeneratedAt).Seconds()))
		}
	}

	// TOTP secret is unique per user per session
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Zhi",
		AccountName: email,
		Period:      uint(OtpExpiryDuration.Seconds()),
		SecretSize:  32,
		Digits:      6,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	otpCode, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to generate OTP code: %w", err)
	}

	otpStore.Store(userID, OtpEntry{
		UserID:      userID,
		Email:       email,
		Secret:      key.Secret(),
		GeneratedAt: time.Now(),
		Attempts:    0,
		Purpose:     purpose,
	})

	if err := sendOTPEmail(email, otpCode, purpose); err != nil {
		otpStore.Delete(userID)
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	log.Printf("OTP generated and sent to %s (purpose: %s)", email, purpose)
	return nil
}

// sendOTPEmail sends OTP code via email using gomail
func sendOTPEmail(toEmail, otpCode, purpose string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPortStr := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	smtpFrom := os.Getenv("SMTP_FROM")

	if smtpHost == "" || smtpUser == "" || smtpPass == "" {
		return fmt.Errorf("SMTP configuration missing")
	}

	if smtpFrom == "" {
		smtpFrom = smtpUser
	}

	port, err := strconv.Atoi(smtpPortStr)
	if err != nil {
		port = 587
	}

	var subject, body string
	switch purpose {
	case "signup":
		subject = "Verifica tu cuenta de Zhi - Código OTP"
		body = fmt.Sprintf(`
			<html>
			<body style="font-family: Arial, sans-serif; line-height: 1.6;">
				<h2>¡Bienvenido(a) a Zhi!</h2>
				<p>Gracias por registrarte. Usa el siguiente código de verificación para activar tu cuenta:</p>
				<div style="background: #f4f4f4; padding: 15px; text-align: center; font-size: 24px; letter-spacing: 5px; font-weight: bold; margin: 20px 0;">
					%s
				</div>
				<p><strong>Este código es válido por 5 minutos.</strong></p>
				<p>Si no te registraste, ignora este correo.</p>
				<hr>
				<p style="color: #666; font-size: 12px;">Correo automático de Zhi</p>
			</body>
			</html>
		`, otpCode)
	case "login":
		subject = "Código de verificación de inicio de sesión - Zhi"
		body = fmt.Sprintf(`
			<html>
			<body style="font-family: Arial, sans-serif; line-height: 1.6;">
				<h2>Verificación de inicio de sesión</h2>
				<p>Detectamos un intento de inicio de sesión en tu cuenta. Usa el siguiente código:</p>
				<div style="background: #f4f4f4; padding: 15px; text-align: center; font-size: 24px; letter-spacing: 5px; font-weight: bold; margin: 20px 0;">
					%s
				</div>
				<p><strong>Este código es válido por 5 minutos.</strong></p>
				<p>Si no fuiste tú, asegura tu cuenta de inmediato.</p>
				<hr>
				<p style="color: #666; font-size: 12px;">Correo automático de Zhi</p>
			</body>
			</html>
		`, otpCode)
	default:
		subject = "Código de verificación - Zhi"
		body = fmt.Sprintf(`
			<html>
			<body style="font-family: Arial, sans-serif; line-height: 1.6;">
				<h2>Tu código de verificación</h2>
				<div style="background: #f4f4f4; padding: 15px; text-align: center; font-size: 24px; letter-spacing: 5px; font-weight: bold; margin: 20px 0;">
					%s
				</div>
				<p><strong>Este código es válido por 5 minutos.</strong></p>
			</body>
			</html>
		`, otpCode)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpFrom)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)
	errChan := make(chan error, 1)
	go func() {
		errChan <- d.DialAndSend(m)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Printf("Failed to send OTP email to %s: %v", toEmail, err)
			return err
		}
		return nil
	case <-time.After(15 * time.Second):
		log.Printf("Timeout sending OTP email to %s", toEmail)
		return fmt.Errorf("email sending timeout")
	}
}

// verifyOTPCode validates the OTP code
func verifyOTPCode(userID, otpCode string) (bool, error) {
	val, ok := otpStore.Load(userID)
	if !ok {
		return false, fmt.Errorf("no OTP found for this user")
	}

	entry := val.(OtpEntry)

	if time.Since(entry.GeneratedAt) > OtpExpiryDuration {
		otpStore.Delete(userID)
		return false, fmt.Errorf("OTP has expired")
	}

	if entry.Attempts >= MaxOtpAttempts {
		otpStore.Delete(userID)
		return false, fmt.Errorf("maximum verification attempts exceeded")
	}

	entry.Attempts++
	entry.LastAttempt = time.Now()
	otpStore.Store(userID, entry)

	valid := totp.Validate(otpCode, entry.Secret)

	if valid {
		otpStore.Delete(userID)
		return true, nil
	}

	return false, nil
}

// cleanupExpiredOTPs removes expired OTP entries (run periodically)
func cleanupExpiredOTPs() {
	otpStore.Range(func(key, value interface{}) bool {
		entry := value.(OtpEntry)
		if time.Since(entry.GeneratedAt) > OtpExpiryDuration {
			otpStore.Delete(key)
			log.Printf("Cleaned up expired OTP for user: %s", entry.UserID)
		}
		return true
	})
}

func VerifyOTPHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if req.UserID == "" || req.OtpCode == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User ID and OTP code are required"})
	}

	valid, err := verifyOTPCode(req.UserID, req.OtpCode)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	if !valid {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid OTP code"})
	}

	user, err := queries.GetUserByID(ctx, req.UserID)
	if err != nil {
		log.Printf("Error fetching user after OTP verification: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "User not found"})
	}

	queries.UpdateUserLastLogin(ctx, user.UserID)

	accessToken, err := generateAccessToken(&user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating access token"})
	}

	refreshToken, err := generateAndStoreRefreshToken(ctx, user.UserID, c.Request())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating refresh token"})
	}

	userResponse := UserResponse{
		UserID:      user.UserID,
		Username:    user.Username.String,
		Email:       user.Email.String,
		DisplayName: user.DisplayName.String,
		AccountType: user.AccountType.Int16,
	}

	response := TraditionalAuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessTokenDuration.Seconds()),
		User:         userResponse,
	}

	isMobile := c.Request().Header.Get("X-Platform") == "mobile" ||
		strings.HasPrefix(c.Request().Header.Get("Authorization"), "Bearer ")

	if isMobile {
		log.Printf("User %s successfully verified OTP and logged in (mobile)", user.Username.String)
		return c.JSON(http.StatusOK, response)
	}

	// Web: set cookies and return JSON
	setAuthCookies(c, accessToken, refreshToken)
	log.Printf("User %s successfully verified OTP and logged in (web)", user.Username.String)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "Verification successful",
		"redirect_url": "/welcome/web",
		"user":         userResponse,
	})
}

// ResendOTPHandler resends OTP code
func ResendOTPHandler(c echo.Context) error {
	var req ResendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User ID is required"})
	}

	val, ok := otpStore.Load(req.UserID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No pending verification found"})
	}

	entry := val.(OtpEntry)

	if err := generateAndStoreOTP(req.UserID, entry.Email, entry.Purpose); err != nil {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":    "Verification code resent successfully",
		"expires_in": int(OtpExpiryDuration.Seconds()),
	})
}

// Start OTP cleanup goroutine (call this in InitAuth)
func startOTPCleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for range ticker.C {
			cleanupExpiredOTPs()
		}
	}()
}
