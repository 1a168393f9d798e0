package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/slotsync/internal/application"
	"github.com/example/slotsync/internal/chat"
)

type conversation interface {
	HandleMessage(ctx context.Context, msg chat.Message) (string, error)
}

// ChatHandler is the webhook the chat transport posts inbound messages to.
// The sender identity arrives on the headers consumed by RequireIdentity.
type ChatHandler struct {
	conversation conversation
	responder    responder
}

func NewChatHandler(conversation conversation, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{conversation: conversation, responder: newResponder(logger)}
}

func (h *ChatHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.conversation == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	user, ok := IdentityFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingUserHandle)
		return
	}

	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("text is required"))
		return
	}

	reply, err := h.conversation.HandleMessage(r.Context(), chat.Message{
		Identity: identityParams(user),
		Text:     req.Text,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, chatMessageResponse{
		Success: true,
		Reply:   reply,
	})
}

func identityParams(user application.User) application.RegisterUserParams {
	return application.RegisterUserParams{
		ExternalHandle: user.ExternalHandle,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		LanguageTag:    user.LanguageTag,
	}
}

type chatMessageRequest struct {
	Text string `json:"text"`
}

type chatMessageResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
}
