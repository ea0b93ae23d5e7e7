package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
	"github.com/Bharath-S-J/Intent-Chat/pkg/validator"
)

type SmartReplier interface {
	SmartReplies(ctx context.Context, message string) ([]string, error)
}

type AIHandler struct {
	replier   SmartReplier
	validator *validator.Validator
	logger    *slog.Logger
}

func NewAIHandler(replier SmartReplier, v *validator.Validator, logger *slog.Logger) *AIHandler {
	return &AIHandler{replier: replier, validator: v, logger: logger}
}

// SmartReply godoc
// @Summary  Suggest short replies to a message
// @Tags     ai
// @Accept   json
// @Produce  json
// @Param    body  body      models.SmartReplyRequest  true  "Message to reply to"
// @Success  200   {object}  models.SmartReplyResponse
// @Failure  400   {object}  models.StatusResponse
// @Failure  500   {object}  models.StatusResponse
// @Router   /ai/smart-reply [post]
func (h *AIHandler) SmartReply(w http.ResponseWriter, r *http.Request) {
	var req models.SmartReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(h.logger, w, http.StatusBadRequest, "Message is required")
		return
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		respondMessage(h.logger, w, http.StatusBadRequest, "Message is required")
		return
	}

	replies, err := h.replier.SmartReplies(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("SmartReply: completion failed", "error", err)
		respondMessage(h.logger, w, http.StatusInternalServerError, "Failed to generate replies")
		return
	}

	respond(h.logger, w, http.StatusOK, models.SmartReplyResponse{Replies: replies})
}
