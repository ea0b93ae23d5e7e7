package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Bharath-S-J/Intent-Chat/pkg/models"
)

func respond(logger *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Could not encode JSON body", "error", err)
	}
}

func respondMessage(logger *slog.Logger, w http.ResponseWriter, status int, msg string) {
	respond(logger, w, status, models.StatusResponse{Message: msg})
}

// validID reports whether id can name a user row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(`{"status":"ok"}`))
}
