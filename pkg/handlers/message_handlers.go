package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/Bharath-S-J/Intent-Chat/pkg/auth"
	"github.com/Bharath-S-J/Intent-Chat/pkg/messaging"
	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
	"github.com/Bharath-S-J/Intent-Chat/pkg/upload"
)

var errImageTooLarge = errors.New("image too large")

type MessageService interface {
	Conversation(ctx context.Context, userID, otherID string) ([]models.Message, error)
	Send(ctx context.Context, in messaging.SendInput) (models.Message, error)
	Dispatch(msg models.Message)
}

type MessageHandler struct {
	messages      MessageService
	maxImageBytes int64
	logger        *slog.Logger
}

func NewMessageHandler(messages MessageService, maxImageBytes int64, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, maxImageBytes: maxImageBytes, logger: logger}
}

// GetMessages godoc
// @Summary      Conversation history
// @Description  Messages exchanged between the caller and another user, oldest first.
// @Tags         messages
// @Produce      json
// @Param        id   path      string  true  "Other user id"
// @Success      200  {array}   models.Message
// @Failure      400  {object}  models.StatusResponse
// @Failure      401  {object}  models.StatusResponse
// @Failure      500  {object}  models.StatusResponse
// @Router       /messages/{id} [get]
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	otherID := r.PathValue("id")
	if otherID == "" {
		respondMessage(h.logger, w, http.StatusBadRequest, "User ID is required")
		return
	}
	if !validID(otherID) {
		respondMessage(h.logger, w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	msgs, err := h.messages.Conversation(r.Context(), userID, otherID)
	if err != nil {
		h.logger.Error("GetMessages: failed to load conversation", "error", err, "user_id", userID, "other_id", otherID)
		respondMessage(h.logger, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respond(h.logger, w, http.StatusOK, msgs)
}

// SendMessage godoc
// @Summary      Send a direct message
// @Description  Accepts multipart/form-data (text, image file) or JSON (text, image as data URL).
// @Tags         messages
// @Accept       mpfd,json
// @Produce      json
// @Param        id     path      string  true   "Receiver user id"
// @Param        text   formData  string  false  "Message text"
// @Param        image  formData  file    false  "Image attachment"
// @Success      201  {object}  models.Message
// @Failure      400  {object}  models.StatusResponse
// @Failure      403  {object}  models.StatusResponse
// @Failure      404  {object}  models.StatusResponse
// @Failure      413  {object}  models.StatusResponse
// @Failure      415  {object}  models.StatusResponse
// @Router       /messages/send/{id} [post]
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	senderID := auth.GetUserID(r.Context())
	receiverID := r.PathValue("id")
	if receiverID == "" {
		respondMessage(h.logger, w, http.StatusBadRequest, "Receiver ID is required")
		return
	}
	if !validID(receiverID) {
		respondMessage(h.logger, w, http.StatusNotFound, "User not found")
		return
	}

	text, image, err := h.readSendBody(w, r)
	if err != nil {
		h.logger.Warn("SendMessage: invalid request body", "error", err, "sender_id", senderID)
		if errors.Is(err, errImageTooLarge) {
			respondMessage(h.logger, w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		respondMessage(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(image) > 0 {
		if _, err := upload.DetectImage(image); err != nil {
			h.logger.Warn("SendMessage: rejected attachment", "error", err, "sender_id", senderID)
			respondMessage(h.logger, w, http.StatusUnsupportedMediaType, "Only image attachments are supported")
			return
		}
	}

	msg, err := h.messages.Send(r.Context(), messaging.SendInput{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
	})
	switch {
	case err == nil:
	case errors.Is(err, messaging.ErrEmptyMessage):
		respondMessage(h.logger, w, http.StatusBadRequest, "Message text or image is required")
		return
	case errors.Is(err, messaging.ErrUserNotFound):
		respondMessage(h.logger, w, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, messaging.ErrContactNotFound):
		respondMessage(h.logger, w, http.StatusBadRequest, messaging.ReasonContactNotFound)
		return
	case errors.Is(err, messaging.ErrLimitReached):
		respondMessage(h.logger, w, http.StatusForbidden, messaging.ReasonLimitReached)
		return
	case errors.Is(err, messaging.ErrUploadDisabled):
		respondMessage(h.logger, w, http.StatusServiceUnavailable, "Image upload is unavailable")
		return
	default:
		h.logger.Error("SendMessage: failed to send", "error", err, "sender_id", senderID, "receiver_id", receiverID)
		respondMessage(h.logger, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respond(h.logger, w, http.StatusCreated, msg)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	// The caller has its answer; realtime delivery and tone detection follow.
	h.messages.Dispatch(msg)
}

func (h *MessageHandler) readSendBody(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+1<<20)
		if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return "", nil, errImageTooLarge
			}
			return "", nil, fmt.Errorf("parse multipart: %w", err)
		}

		text := r.FormValue("text")
		file, _, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) {
			return text, nil, nil
		}
		if err != nil {
			return "", nil, fmt.Errorf("read image part: %w", err)
		}
		defer file.Close()

		image, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes+1))
		if err != nil {
			return "", nil, fmt.Errorf("read image: %w", err)
		}
		if int64(len(image)) > h.maxImageBytes {
			return "", nil, errImageTooLarge
		}
		return text, image, nil
	}

	var req models.SendMessageRequest
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxImageBytes+1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, errImageTooLarge
		}
		return "", nil, fmt.Errorf("decode json: %w", err)
	}
	if req.Image == "" {
		return req.Text, nil, nil
	}

	image, err := decodeDataURL(req.Image)
	if err != nil {
		return "", nil, err
	}
	if int64(len(image)) > h.maxImageBytes {
		return "", nil, errImageTooLarge
	}
	return req.Text, image, nil
}

// decodeDataURL accepts "data:<mime>;base64,<payload>" or bare base64.
func decodeDataURL(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		_, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, fmt.Errorf("malformed data url")
		}
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}
