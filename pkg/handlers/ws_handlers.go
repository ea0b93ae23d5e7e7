package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/Bharath-S-J/Intent-Chat/config"
	"github.com/Bharath-S-J/Intent-Chat/pkg/auth"
	"github.com/Bharath-S-J/Intent-Chat/pkg/hub"
)

func newUpgrader(cfg config.WebSocketConfig) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Empty list allows all origins for development
			if len(cfg.AllowedOrigins) == 0 || origin == "" {
				return true
			}
			return slices.Contains(cfg.AllowedOrigins, origin)
		},
	}
}

func HandleWS(h *hub.Hub, verifier *auth.Verifier, cfg config.WebSocketConfig, logger *slog.Logger) http.HandlerFunc {
	upgrader := newUpgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := verifier.UserIDFromRequest(r)
		if err != nil {
			logger.Warn("WebSocket: rejected handshake", "error", err, "remote_addr", r.RemoteAddr)
			respondMessage(logger, w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		// Upgrade to WebSocket
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error", "error", err, "user_id", userID)
			return
		}

		client := hub.NewClient(h, userID, conn)

		// Start the writer before Connect queues the initial presence list
		go client.WritePump()
		h.Connect(r.Context(), client)
		go client.ReadPump()

		logger.Info("WebSocket connection established", "user_id", userID)
	}
}
