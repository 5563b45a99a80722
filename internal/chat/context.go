package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"zhi-server/internal/database"
	"zhi-server/internal/geminiservice"
)

const (
	contextCacheSize = 512
	contextCacheTTL  = 5 * time.Minute
	recentTurnLimit  = 20
)

// userContext is the per-user slice of the prompt context. Conversation
// history is fetched fresh every turn, so it is not part of the cache entry.
type userContext struct {
	Profile  *geminiservice.UserProfileContext
	Insights []string
}

var contextCache = expirable.NewLRU[string, userContext](contextCacheSize, nil, contextCacheTTL)

// InvalidateUserContext drops the cached profile+insights for a user.
// Called after profile updates and insight refreshes.
func InvalidateUserContext(userID string) {
	contextCache.Remove(userID)
}

// loadUserContext returns the profile and core insights for a user, fanning
// the two lookups out concurrently on a cache miss.
func loadUserContext(ctx context.Context, userID string) (userContext, error) {
	if cached, ok := contextCache.Get(userID); ok {
		return cached, nil
	}

	var uc userContext
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := queries.GetUserProfile(gctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil // user has not finished onboarding
			}
			return fmt.Errorf("fetch profile: %w", err)
		}
		uc.Profile = profileToPromptContext(gctx, userID, profile)
		return nil
	})

	g.Go(func() error {
		insights, err := queries.GetCoreInsights(gctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("fetch insights: %w", err)
		}
		uc.Insights = insights
		return nil
	})

	if err := g.Wait(); err != nil {
		return userContext{}, err
	}

	contextCache.Add(userID, uc)
	return uc, nil
}

func profileToPromptContext(ctx context.Context, userID string, profile database.UserProfile) *geminiservice.UserProfileContext {
	name := ""
	if user, err := queries.GetUserByID(ctx, userID); err == nil {
		name = user.DisplayName.String
		if name == "" {
			name = user.Username.String
		}
	}

	return &geminiservice.UserProfileContext{
		Name:                  name,
		ObjetivoPrincipal:     profile.MainGoal.String,
		FrecuenciaAnimoBajo:   profile.LowMoodFrequency.String,
		FrecuenciaPocoInteres: profile.LowInterestFrequency.String,
		NivelEnergia:          profile.EnergyLevel.String,
	}
}

// recentTurns loads the newest messages of a conversation in chronological order.
func recentTurns(ctx context.Context, conversationID pgtype.UUID) ([]geminiservice.ConversationTurn, error) {
	messages, err := queries.ListRecentMessages(ctx, database.ListRecentMessagesParams{
		ConversationID: conversationID,
		LimitCount:     recentTurnLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch recent messages: %w", err)
	}

	// Query returns newest first
	turns := make([]geminiservice.ConversationTurn, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		turns = append(turns, geminiservice.ConversationTurn{
			Role: messages[i].Role,
			Text: messages[i].Text,
		})
	}
	return turns, nil
}

// summarizeTurns renders turns into the "role: text" digest the chat prompt
// expects as its history summary.
func summarizeTurns(turns []geminiservice.ConversationTurn) string {
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Text))
	}
	return strings.Join(lines, "\n")
}

// loadTurnContext gathers everything the prompt needs for a turn. It must
// run before the new message is stored: the returned turns are the history
// as it stood, and must not contain the utterance being sent.
func loadTurnContext(ctx context.Context, userID string, conversationID pgtype.UUID) (userContext, []geminiservice.ConversationTurn) {
	uc, err := loadUserContext(ctx, userID)
	if err != nil {
		// Degrade to an uncontextualized prompt rather than failing the turn
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load user context for chat turn")
		uc = userContext{}
	}

	priorTurns, err := recentTurns(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load conversation history for chat turn")
		priorTurns = nil
	}

	return uc, priorTurns
}

// buildTurnInput assembles the flow input from already-loaded context. The
// current message is rendered only as the prompt's user input; priorTurns
// feed the history summary, so on a conversation's first message the
// summary stays empty.
func buildTurnInput(uc userContext, priorTurns []geminiservice.ConversationTurn, message, photoDataURI string) geminiservice.ChatInput {
	return geminiservice.ChatInput{
		UserInput:          message,
		Attachment:         geminiservice.ParseDataURI(photoDataURI),
		UserProfile:        uc.Profile,
		CoreInsights:       uc.Insights,
		ChatHistorySummary: summarizeTurns(priorTurns),
	}
}
