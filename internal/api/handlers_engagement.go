package api

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxMessageLength      = 2000
	maxMarkReadBatch      = 500
	maxRatingCommentChars = 1000
)

type sendMessagePayload struct {
	Content string `json:"content"`
}

type markReadPayload struct {
	MessageIDs []uuid.UUID `json:"message_ids"`
}

type ratingPayload struct {
	Score   int     `json:"score"`
	Comment *string `json:"comment,omitempty"`
}

// SendMessageHandler posts a message into an application's conversation.
func (h *Handlers) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	applicationID, ok := uuidParam(w, r, "applicationID")
	if !ok {
		return
	}
	var payload sendMessagePayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "Message content is required")
		return
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		writeError(w, http.StatusBadRequest, "Message is too long")
		return
	}

	msg, err := h.service.SendMessage(r.Context(), applicationID, userID, content)
	if err != nil {
		writeServiceError(w, "send_message", err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handlers) ConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	applicationID, ok := uuidParam(w, r, "applicationID")
	if !ok {
		return
	}

	messages, err := h.service.Conversation(r.Context(), applicationID, userID)
	if err != nil {
		writeServiceError(w, "conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": nonNil(messages)})
}

// MarkMessagesReadHandler marks a batch of the caller's messages read. Ids addressed to
// other users are ignored.
func (h *Handlers) MarkMessagesReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var payload markReadPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if len(payload.MessageIDs) > maxMarkReadBatch {
		writeError(w, http.StatusBadRequest, "Too many message ids")
		return
	}

	updated, err := h.service.MarkMessagesRead(r.Context(), payload.MessageIDs, userID)
	if err != nil {
		writeServiceError(w, "mark_messages_read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *Handlers) UnreadMessageCountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	count, err := h.service.UnreadMessageCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "unread_message_count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": count})
}

// RateApplicationHandler creates or replaces the caller's rating on a completed application.
func (h *Handlers) RateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	applicationID, ok := uuidParam(w, r, "applicationID")
	if !ok {
		return
	}
	var payload ratingPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.Comment != nil && utf8.RuneCountInString(*payload.Comment) > maxRatingCommentChars {
		writeError(w, http.StatusBadRequest, "Comment is too long")
		return
	}

	rating, err := h.service.RateApplication(r.Context(), applicationID, userID, payload.Score, payload.Comment)
	if err != nil {
		writeServiceError(w, "rate_application", err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func (h *Handlers) ListUserRatingsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}

	ratings, err := h.service.ListRatingsForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "list_user_ratings", err)
		return
	}
	summary, err := h.service.RatingSummary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "list_user_ratings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ratings": nonNil(ratings),
		"summary": summary,
	})
}
