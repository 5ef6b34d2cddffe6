// Package chat implements the AI assistant conversation feature. It is an
// alternate entry point into the LLM client: responses stream straight to the
// caller and bypass report assembly.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meditrack-ai/platform/pkg/clinical"
	"github.com/meditrack-ai/platform/pkg/common/logger"
	"github.com/meditrack-ai/platform/pkg/llm"
	"github.com/meditrack-ai/platform/pkg/streaming"

	"github.com/meditrack-ai/platform/pkg/analysis"
)

const historyWindow = 10

// Streamer is the streaming side of the LLM client.
type Streamer interface {
	Stream(ctx context.Context, messages []llm.Message, temperature float64) (<-chan llm.Fragment, error)
}

// HistoryStore persists conversation turns.
type HistoryStore interface {
	ChatHistory(ctx context.Context, userID, conversationID string, limit int) ([]clinical.ChatMessage, error)
	SaveChatMessage(ctx context.Context, msg *clinical.ChatMessage) error
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

type Service struct {
	store    HistoryStore
	streamer Streamer
}

func NewService(store HistoryStore, streamer Streamer) *Service {
	return &Service{store: store, streamer: streamer}
}

// StreamResponse streams the assistant's reply as push events, persisting
// both conversation turns. The returned conversation ID is fresh when the
// caller did not supply one.
func (s *Service) StreamResponse(ctx context.Context, userID, message, conversationID string) (<-chan streaming.Event, string, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	history, err := s.store.ChatHistory(ctx, userID, conversationID, historyWindow)
	if err != nil {
		return nil, "", err
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: analysis.MedicalAssistantSystemPrompt})
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: message})

	if err := s.store.SaveChatMessage(ctx, &clinical.ChatMessage{
		ID:             uuid.New().String(),
		UserID:         userID,
		ConversationID: conversationID,
		Role:           "user",
		Content:        message,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return nil, "", err
	}

	fragments, err := s.streamer.Stream(ctx, messages, 0.7)
	if err != nil {
		// Pre-stream failures still reach the client in-band so the
		// transport layer never sees an unhandled fault.
		events := make(chan streaming.Event, 1)
		events <- streaming.Event{Error: err.Error(), Done: true}
		close(events)
		return events, conversationID, nil
	}

	tapped := s.tapForPersistence(ctx, fragments, userID, conversationID)
	return streaming.Pipeline(ctx, tapped), conversationID, nil
}

// tapForPersistence copies fragments through while accumulating the full
// assistant reply, saving it once the stream completes cleanly.
func (s *Service) tapForPersistence(ctx context.Context, fragments <-chan llm.Fragment, userID, conversationID string) <-chan llm.Fragment {
	out := make(chan llm.Fragment)

	go func() {
		defer close(out)

		var reply strings.Builder
		failed := false
		for fragment := range fragments {
			if fragment.Err != nil {
				failed = true
			} else {
				reply.WriteString(fragment.Text)
			}

			select {
			case out <- fragment:
			case <-ctx.Done():
				return
			}
		}

		if failed || reply.Len() == 0 {
			return
		}

		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.SaveChatMessage(saveCtx, &clinical.ChatMessage{
			ID:             uuid.New().String(),
			UserID:         userID,
			ConversationID: conversationID,
			Role:           "assistant",
			Content:        reply.String(),
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			logger.WithComponent("chat").WithError(err).Error("failed to persist assistant reply")
		}
	}()

	return out
}

func (s *Service) History(ctx context.Context, userID, conversationID string, limit int) ([]clinical.ChatMessage, error) {
	return s.store.ChatHistory(ctx, userID, conversationID, limit)
}

func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return s.store.DeleteConversation(ctx, userID, conversationID)
}
