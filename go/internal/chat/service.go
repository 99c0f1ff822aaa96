package chat

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/rpc"
)

// ServiceName is the connect service name for chat operations.
const ServiceName = "econempire.chat.v1.ChatService"

// Service exposes chat over connect
type Service struct {
	app *App
}

// NewService creates a new chat service
func NewService(app *App) *Service {
	return &Service{
		app: app,
	}
}

type SendMessageResponse struct {
	Message *models.ChatMessage `json:"message"`
}

type ListMessagesRequest struct {
	GameID string `json:"game_id"`
}

type ListMessagesResponse struct {
	Messages []models.ChatMessage `json:"messages"`
}

// Handler returns the mount path and handler for the chat service.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	r := rpc.NewRouter(ServiceName, opts...)
	rpc.Handle(r, "SendMessage", s.SendMessage)
	rpc.Handle(r, "ListMessages", s.ListMessages)
	return r.Handler()
}

// SendMessage posts a chat message
func (s *Service) SendMessage(ctx context.Context, caller models.Identity, req *SendRequest) (*SendMessageResponse, error) {
	msg, err := s.app.Send(ctx, caller, *req)
	if err != nil {
		return nil, err
	}
	return &SendMessageResponse{Message: msg}, nil
}

// ListMessages returns the messages the caller may read
func (s *Service) ListMessages(ctx context.Context, caller models.Identity, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	id, err := uuid.Parse(req.GameID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidationFailed, "invalid game id")
	}
	messages, err := s.app.List(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return &ListMessagesResponse{Messages: messages}, nil
}
