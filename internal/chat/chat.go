/*
Package chat implements the Zhi conversation surface: the stateless
companion flows (reply, title, insight extraction) and the stored
conversation endpoints that orchestrate them server-side.
*/
package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"zhi-server/internal/database"
	"zhi-server/internal/geminiservice"
	"zhi-server/internal/utility"
)

var (
	queries *database.Queries
	flows   *geminiservice.Flows
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// ChatFlowRequest is the stateless chat endpoint body. The client owns the
// conversation state and sends everything the prompt needs.
type ChatFlowRequest struct {
	UserInput          string                             `json:"userInput"`
	PhotoDataUri       string                             `json:"photoDataUri"`
	UserProfile        *geminiservice.UserProfileContext  `json:"userProfile"`
	ChatHistorySummary string                             `json:"chatHistorySummary"`
	CoreInsights       []string                           `json:"coreInsights"`
}

// TitleFlowRequest carries the opening turns a title is generated from.
type TitleFlowRequest struct {
	Messages []geminiservice.ConversationTurn `json:"messages"`
}

// InsightFlowRequest carries the turns to mine and the insights already known.
type InsightFlowRequest struct {
	Messages         []geminiservice.ConversationTurn `json:"messages"`
	ExistingInsights []string                         `json:"existingInsights"`
}

// CreateConversationRequest optionally seeds the first user message.
type CreateConversationRequest struct {
	FirstMessage string `json:"first_message"`
}

// PostMessageRequest is one user turn in a stored conversation.
type PostMessageRequest struct {
	Message      string `json:"message"`
	PhotoDataUri string `json:"photoDataUri"`
}

// ConversationDetailResponse bundles a conversation with its messages.
type ConversationDetailResponse struct {
	Conversation database.Conversation `json:"conversation"`
	Messages     []database.Message    `json:"messages"`
}

// TurnResponse is the reply to a posted message.
type TurnResponse struct {
	Reply       string           `json:"reply"`
	UserMessage database.Message `json:"user_message"`
	ZhiMessage  database.Message `json:"zhi_message"`
}

/* =================================================================================
								INITIALIZATION
=================================================================================*/

// InitChatPackage wires the package to the database and the completion flows.
func InitChatPackage(dbpool *pgxpool.Pool, f *geminiservice.Flows) {
	queries = database.New(dbpool)
	flows = f
	log.Info().Msg("Chat package initialized.")
}

/* =================================================================================
							STATELESS FLOW HANDLERS
=================================================================================*/

// ChatHandler generates a companion reply from client-supplied context.
// A well-formed body always gets a 200 with a usable reply; a malformed one
// gets a 400 whose body still carries the calming fallback.
func ChatHandler(c echo.Context) error {
	var req ChatFlowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, geminiservice.ChatOutput{Reply: geminiservice.ChatFallbackReply})
	}

	out := flows.Chat(c.Request().Context(), geminiservice.ChatInput{
		UserInput:          req.UserInput,
		UserProfile:        req.UserProfile,
		ChatHistorySummary: req.ChatHistorySummary,
		CoreInsights:       req.CoreInsights,
		Attachment:         geminiservice.ParseDataURI(req.PhotoDataUri),
	})
	return c.JSON(http.StatusOK, out)
}

// GenerateTitleHandler names a conversation after its opening turns.
func GenerateTitleHandler(c echo.Context) error {
	var req TitleFlowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, geminiservice.TitleOutput{Title: geminiservice.TitleFallback})
	}

	out := flows.GenerateTitle(c.Request().Context(), req.Messages)
	return c.JSON(http.StatusOK, out)
}

// ExtractInsightsHandler refreshes the core insight list from recent turns.
// On any flow failure the existing insights are echoed back untouched, so a
// transient model error can never wipe what the client already holds.
func ExtractInsightsHandler(c echo.Context) error {
	var req InsightFlowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, geminiservice.InsightOutput{UpdatedInsights: []string{}})
	}

	out := flows.ExtractInsights(c.Request().Context(), req.Messages, req.ExistingInsights)
	return c.JSON(http.StatusOK, out)
}

/* =================================================================================
							CONVERSATION HANDLERS
=================================================================================*/

// CreateConversationHandler starts a stored conversation. When a first
// message is included the full turn runs immediately.
func CreateConversationHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	conv, err := queries.CreateConversation(ctx, database.CreateConversationParams{
		UserID: userID,
		Title:  geminiservice.TitleFallback,
	})
	if err != nil {
		utility.RequestLogger(c).Error().Err(err).Msg("Failed to create conversation")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create conversation"})
	}

	if req.FirstMessage == "" {
		return c.JSON(http.StatusCreated, conv)
	}

	turn, err := runTurn(ctx, userID, conv.ConversationID, req.FirstMessage, "")
	if err != nil {
		utility.RequestLogger(c).Error().Err(err).Msg("Failed to run first turn")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to store message"})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"conversation": conv,
		"turn":         turn,
	})
}

// ListConversationsHandler returns the user's conversations, newest activity first.
func ListConversationsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	conversations, err := queries.ListConversations(ctx, userID)
	if err != nil {
		utility.RequestLogger(c).Error().Err(err).Msg("Failed to list conversations")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list conversations"})
	}
	if conversations == nil {
		conversations = []database.Conversation{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"conversations": conversations})
}

// GetConversationHandler returns one conversation with its full transcript.
func GetConversationHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	conv, ok := ownedConversation(c, ctx, userID)
	if !ok {
		return nil // response already written
	}

	messages, err := queries.ListMessages(ctx, conv.ConversationID)
	if err != nil {
		utility.RequestLogger(c).Error().Err(err).Msg("Failed to list messages")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load messages"})
	}
	if messages == nil {
		messages = []database.Message{}
	}

	return c.JSON(http.StatusOK, ConversationDetailResponse{
		Conversation: conv,
		Messages:     messages,
	})
}

// DeleteConversationHandler removes a conversation and its messages.
func DeleteConversationHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	conv, ok := ownedConversation(c, ctx, userID)
	if !ok {
		return nil
	}

	if err := queries.DeleteConversation(ctx, conv.ConversationID); err != nil {
		utility.RequestLogger(c).Error().Err(err).Msg("Failed to delete conversation")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete conversation"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Conversation deleted"})
}

// PostMessageHandler runs one full companion turn: store the user message,
// build the contextualized prompt, reply, and kick off the background title
// and insight refreshes.
func PostMessageHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	conv, ok := ownedConversation(c, ctx, userID)
	if !ok {
		return nil
	}

	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Message is required"})
	}

	turn, err := runTurn(ctx, userID, conv.ConversationID, req.Message, req.PhotoDataUri)
	if err != nil {
		utility.RequestLogger(c).Error().Err(err).Msg("Failed to run chat turn")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to store message"})
	}

	return c.JSON(http.StatusOK, turn)
}

// GetInsightsHandler returns the stored core insights for the user.
func GetInsightsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	insights, err := queries.GetCoreInsights(ctx, userID)
	if err != nil || insights == nil {
		insights = []string{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"insights": insights})
}

/* =================================================================================
								WEBSOCKETS
=================================================================================*/

// WebsocketHandler upgrades the connection and keeps it registered until the
// client disconnects. All pushes go through utility.PushEvent.
func WebsocketHandler(c echo.Context) error {
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	conn, err := utility.Upgrader.Upgrade(c.Response().Writer, c.Request(), nil)
	if err != nil {
		utility.RequestLogger(c).Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	utility.RegisterClient(userID, conn)
	defer utility.UnregisterClient(userID)

	// Read loop exists only to detect disconnects; clients never send.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	return nil
}

/* =================================================================================
							TURN ORCHESTRATION
=================================================================================*/

// runTurn executes a stored-conversation turn end to end. The turn context
// is loaded before the user message is stored so the history summary and
// the title/insight turns carry the current utterance exactly once.
func runTurn(ctx context.Context, userID string, conversationID pgtype.UUID, message, photoDataURI string) (*TurnResponse, error) {
	uc, priorTurns := loadTurnContext(ctx, userID, conversationID)

	userMsg, err := queries.CreateMessage(ctx, database.CreateMessageParams{
		ConversationID: conversationID,
		Role:           "user",
		Text:           message,
	})
	if err != nil {
		return nil, err
	}

	out := flows.Chat(ctx, buildTurnInput(uc, priorTurns, message, photoDataURI))

	zhiMsg, err := queries.CreateMessage(ctx, database.CreateMessageParams{
		ConversationID: conversationID,
		Role:           "zhi",
		Text:           out.Reply,
	})
	if err != nil {
		return nil, err
	}

	if err := queries.TouchConversation(ctx, conversationID); err != nil {
		log.Warn().Err(err).Msg("Failed to touch conversation")
	}

	turns := append(priorTurns,
		geminiservice.ConversationTurn{Role: "user", Text: message},
		geminiservice.ConversationTurn{Role: "zhi", Text: out.Reply},
	)
	go refreshConversationMeta(userID, conversationID, turns)

	return &TurnResponse{
		Reply:       out.Reply,
		UserMessage: userMsg,
		ZhiMessage:  zhiMsg,
	}, nil
}

// refreshConversationMeta regenerates the title (while still unnamed) and the
// core insights after a turn, then notifies the client over the websocket.
// Runs detached from the request with its own deadline.
func refreshConversationMeta(userID string, conversationID pgtype.UUID, turns []geminiservice.ConversationTurn) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	conv, err := queries.GetConversation(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Msg("Meta refresh: conversation lookup failed")
		return
	}

	if conv.Title == geminiservice.TitleFallback {
		titleOut := flows.GenerateTitle(ctx, turns)
		if titleOut.Title != geminiservice.TitleFallback {
			if err := queries.UpdateConversationTitle(ctx, conversationID, titleOut.Title); err != nil {
				log.Warn().Err(err).Msg("Meta refresh: title update failed")
			} else {
				convID, _ := utility.PgtypeUUIDToString(conversationID)
				utility.PushEvent(userID, utility.Event{
					Type: "conversation_title_updated",
					Payload: map[string]string{
						"conversation_id": convID,
						"title":           titleOut.Title,
					},
				})
			}
		}
	}

	existing, err := queries.GetCoreInsights(ctx, userID)
	if err != nil {
		existing = nil
	}

	insightOut := flows.ExtractInsights(ctx, turns, existing)
	if err := queries.UpsertCoreInsights(ctx, userID, insightOut.UpdatedInsights); err != nil {
		log.Warn().Err(err).Msg("Meta refresh: insight update failed")
		return
	}
	InvalidateUserContext(userID)

	utility.PushEvent(userID, utility.Event{
		Type:    "insights_updated",
		Payload: map[string]interface{}{"insights": insightOut.UpdatedInsights},
	})
}

// ownedConversation resolves the :id path param and enforces ownership,
// writing the error response itself when the check fails.
func ownedConversation(c echo.Context, ctx context.Context, userID string) (database.Conversation, bool) {
	convID, err := utility.ParsePgUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid conversation ID"})
		return database.Conversation{}, false
	}

	conv, err := queries.GetConversation(ctx, convID)
	if err != nil {
		c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return database.Conversation{}, false
	}

	if conv.UserID != userID {
		c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return database.Conversation{}, false
	}

	return conv, true
}
