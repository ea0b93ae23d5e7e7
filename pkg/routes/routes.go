package routes

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Bharath-S-J/Intent-Chat/config"
	"github.com/Bharath-S-J/Intent-Chat/pkg/auth"
	"github.com/Bharath-S-J/Intent-Chat/pkg/handlers"
	"github.com/Bharath-S-J/Intent-Chat/pkg/hub"
	"github.com/Bharath-S-J/Intent-Chat/pkg/validator"
)

type Deps struct {
	Hub      *hub.Hub
	Verifier *auth.Verifier
	Messages handlers.MessageService
	Contacts handlers.ContactService
	Replier  handlers.SmartReplier
	Config   *config.Config
	Logger   *slog.Logger
}

func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	v := validator.New()

	// Create handlers
	messageHandler := handlers.NewMessageHandler(d.Messages, d.Config.Messaging.MaxImageBytes, d.Logger)
	userHandler := handlers.NewUserHandler(d.Contacts, v, d.Logger)
	aiHandler := handlers.NewAIHandler(d.Replier, v, d.Logger)

	mux.HandleFunc("GET /healthz", handlers.Health)
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// WebSocket endpoint
	mux.HandleFunc("/ws", handlers.HandleWS(d.Hub, d.Verifier, d.Config.WebSocket, d.Logger))

	// API endpoints with authentication middleware
	apiRouter := http.NewServeMux()

	// Message endpoints
	apiRouter.HandleFunc("GET /api/messages/{id}", messageHandler.GetMessages)
	apiRouter.HandleFunc("POST /api/messages/send/{id}", messageHandler.SendMessage)

	// Contact endpoints
	apiRouter.HandleFunc("GET /api/user/contacts", userHandler.GetContacts)
	apiRouter.HandleFunc("POST /api/user/contacts", userHandler.AddContact)
	apiRouter.HandleFunc("DELETE /api/user/contacts/{contactUserId}", userHandler.RemoveContact)
	apiRouter.HandleFunc("POST /api/user/contacts/{contactUserId}", userHandler.RemoveContact)

	// AI endpoints
	apiRouter.HandleFunc("POST /api/ai/smart-reply", aiHandler.SmartReply)

	mux.Handle("/api/", d.Verifier.AuthMiddleware(apiRouter))

	return mux
}
