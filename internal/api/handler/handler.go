// Package handler exposes the HTTP surface: account routes, user lookup,
// message history, and the WebSocket upgrade into the realtime hub.
package handler

import (
	"log/slog"

	"github.com/Durga62823/chat-application/internal/auth"
	"github.com/Durga62823/chat-application/internal/chathub"
	"github.com/Durga62823/chat-application/internal/storage"
)

// Handler carries the dependencies shared by all HTTP endpoints.
type Handler struct {
	Store      storage.Storage
	Hub        *chathub.Hub
	Auth       *auth.Manager
	BcryptCost int

	logger *slog.Logger
}

// New creates a Handler.
func New(store storage.Storage, hub *chathub.Hub, authMgr *auth.Manager, bcryptCost int) *Handler {
	return &Handler{
		Store:      store,
		Hub:        hub,
		Auth:       authMgr,
		BcryptCost: bcryptCost,
		logger:     slog.Default().With("component", "http"),
	}
}
