package routes

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/meditrack-ai/platform/pkg/chat"
	"github.com/meditrack-ai/platform/pkg/common/logger"
	"github.com/meditrack-ai/platform/pkg/streaming"
)

type ChatHandler struct {
	service           *chat.Service
	heartbeatInterval time.Duration
}

func NewChatHandler(service *chat.Service, heartbeatInterval time.Duration) *ChatHandler {
	return &ChatHandler{service: service, heartbeatInterval: heartbeatInterval}
}

func (h *ChatHandler) Register(r *mux.Router) {
	r.HandleFunc("/chat/send", h.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/chat/history", h.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/chat/history/{conversationID}", h.handleDelete).Methods(http.MethodDelete)
}

type sendRequest struct {
	UserID         string `json:"user_id"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func (h *ChatHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid chat request", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		req.UserID = r.Header.Get("X-User-ID")
	}
	if req.UserID == "" || req.Message == "" {
		http.Error(w, "user_id and message are required", http.StatusBadRequest)
		return
	}

	events, conversationID, err := h.service.StreamResponse(r.Context(), req.UserID, req.Message, req.ConversationID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to start chat stream")
		http.Error(w, "failed to start chat stream", http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Conversation-ID", conversationID)
	streaming.ServeSSE(w, r, streaming.WithHeartbeat(r.Context(), events, h.heartbeatInterval))
}

func (h *ChatHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	messages, err := h.service.History(r.Context(), userID, r.URL.Query().Get("conversation_id"), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load chat history")
		http.Error(w, "failed to load chat history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, messages)
}

func (h *ChatHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteConversation(r.Context(), userID, mux.Vars(r)["conversationID"]); err != nil {
		logger.Log.WithError(err).Error("failed to delete conversation")
		http.Error(w, "failed to delete conversation", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
