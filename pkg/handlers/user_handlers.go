package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Bharath-S-J/Intent-Chat/pkg/auth"
	"github.com/Bharath-S-J/Intent-Chat/pkg/contacts"
	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
	"github.com/Bharath-S-J/Intent-Chat/pkg/validator"
)

type ContactService interface {
	AddByEmail(ctx context.Context, userID, email string) (contacts.Outcome, error)
	List(ctx context.Context, userID string) ([]models.User, error)
	Remove(ctx context.Context, userID, contactID string) (int64, error)
}

type UserHandler struct {
	contacts  ContactService
	validator *validator.Validator
	logger    *slog.Logger
}

func NewUserHandler(contacts ContactService, v *validator.Validator, logger *slog.Logger) *UserHandler {
	return &UserHandler{contacts: contacts, validator: v, logger: logger}
}

// GetContacts godoc
// @Summary  List the caller's contacts
// @Tags     contacts
// @Produce  json
// @Success  200  {array}   models.User
// @Failure  404  {object}  models.StatusResponse
// @Router   /user/contacts [get]
func (h *UserHandler) GetContacts(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	users, err := h.contacts.List(r.Context(), userID)
	if errors.Is(err, contacts.ErrUserNotFound) {
		respondMessage(h.logger, w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error("GetContacts: failed to list contacts", "error", err, "user_id", userID)
		respondMessage(h.logger, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respond(h.logger, w, http.StatusOK, users)
}

// AddContact godoc
// @Summary      Add a contact by email
// @Description  Links both users when the email is registered, otherwise mails an invite.
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        body  body      models.AddContactRequest  true  "Contact email"
// @Success      200   {object}  models.StatusResponse
// @Success      201   {object}  models.StatusResponse
// @Failure      400   {object}  models.StatusResponse
// @Failure      404   {object}  models.StatusResponse
// @Router       /user/contacts [post]
func (h *UserHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var req models.AddContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("AddContact: invalid request body", "error", err, "user_id", userID)
		respondMessage(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		h.logger.Debug("AddContact: validation failed", "user_id", userID, "errors", errs)
		respondMessage(h.logger, w, http.StatusBadRequest, "A valid email is required")
		return
	}

	outcome, err := h.contacts.AddByEmail(r.Context(), userID, req.Email)
	switch {
	case errors.Is(err, contacts.ErrSelfAdd):
		respondMessage(h.logger, w, http.StatusBadRequest, "You cannot add yourself")
	case errors.Is(err, contacts.ErrAlreadyContact):
		respondMessage(h.logger, w, http.StatusBadRequest, "User already in contacts")
	case errors.Is(err, contacts.ErrUserNotFound):
		respondMessage(h.logger, w, http.StatusNotFound, "User not found")
	case err != nil:
		h.logger.Error("AddContact: failed to add contact", "error", err, "user_id", userID)
		respondMessage(h.logger, w, http.StatusInternalServerError, "Internal server error")
	case outcome == contacts.OutcomeInvited:
		respondMessage(h.logger, w, http.StatusOK, "Invite sent to email")
	default:
		respondMessage(h.logger, w, http.StatusCreated, "Contact added mutually")
	}
}

// RemoveContact godoc
// @Summary      Remove a contact
// @Description  Removes the relationship in both directions and deletes the conversation.
// @Tags         contacts
// @Produce      json
// @Param        contactUserId  path      string  true  "Contact user id"
// @Success      200            {object}  models.StatusResponse
// @Failure      404            {object}  models.StatusResponse
// @Router       /user/contacts/{contactUserId} [delete]
func (h *UserHandler) RemoveContact(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	contactID := r.PathValue("contactUserId")
	if !validID(contactID) {
		respondMessage(h.logger, w, http.StatusNotFound, "Contact not found")
		return
	}

	deleted, err := h.contacts.Remove(r.Context(), userID, contactID)
	if errors.Is(err, contacts.ErrNotFound) {
		respondMessage(h.logger, w, http.StatusNotFound, "Contact not found")
		return
	}
	if err != nil {
		h.logger.Error("RemoveContact: failed to remove contact", "error", err, "user_id", userID, "contact_id", contactID)
		respondMessage(h.logger, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Info("Contact removed", "user_id", userID, "contact_id", contactID, "messages_deleted", deleted)
	respondMessage(h.logger, w, http.StatusOK, "Contact and messages removed")
}
