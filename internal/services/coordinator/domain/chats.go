package domain

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	verrs "github.com/volunteerhub/eventms/internal/errors"
	"github.com/volunteerhub/eventms/internal/services/coordinator/storage"
)

// ChatService implements the event chat actions. A chat message fans out to
// every volunteer on the owning event except the author, plus the event
// owner.
type ChatService struct {
	chats  storage.ChatStore
	events storage.EventStore
	clock  func() time.Time
}

// NewChatService constructs chat domain use-cases.
func NewChatService(chats storage.ChatStore, events storage.EventStore, clock func() time.Time) *ChatService {
	if clock == nil {
		clock = time.Now
	}
	return &ChatService{chats: chats, events: events, clock: clock}
}

type chatMessageInput struct {
	ChatID  string `json:"chat_id"`
	Author  string `json:"author"`
	Message string `json:"message"`
}

// AddChatMessage appends a message to an event chat, creating the chat on
// first use, and computes the fan-out recipient list.
func (s *ChatService) AddChatMessage(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input chatMessageInput
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.ChatID) == "" || strings.TrimSpace(input.Author) == "" || strings.TrimSpace(input.Message) == "" {
		return Outcome{}, verrs.New(verrs.CodeValidation,
			"chat_id, author, and message are required")
	}

	message := storage.ChatMessage{
		Author:    input.Author,
		Message:   input.Message,
		Timestamp: s.clock().UTC(),
	}

	err := s.chats.AppendChatMessage(ctx, input.ChatID, message)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// First message for this chat id: create the chat seeded with it.
		_, err = s.chats.InsertChat(ctx, storage.ChatRecord{
			EventID:  input.ChatID,
			Messages: []storage.ChatMessage{message},
		})
		if err != nil {
			return Outcome{}, chatStorageError("create chat", input.ChatID, err)
		}
	case err != nil:
		return Outcome{}, chatStorageError("add chat message", input.ChatID, err)
	}

	return Outcome{
		Fields:    map[string]any{"new_message": message},
		ForwardTo: s.chatRecipients(ctx, input.ChatID, input.Author),
	}, nil
}

// chatRecipients resolves the owning event's roster minus the author, plus
// the event owner. A chat without a resolvable event fans out to no one.
func (s *ChatService) chatRecipients(ctx context.Context, chatID, author string) []string {
	event, err := s.events.GetEventByChatID(ctx, chatID)
	if err != nil {
		return nil
	}
	recipients := make([]string, 0, len(event.Volunteers)+1)
	for _, volunteer := range event.Volunteers {
		if volunteer != author {
			recipients = append(recipients, volunteer)
		}
	}
	if event.CreatedBy != "" {
		recipients = append(recipients, event.CreatedBy)
	}
	return recipients
}

// GetChatMessages returns a chat's message history. A missing chat reads as
// an empty history rather than an error.
func (s *ChatService) GetChatMessages(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		ChatID string `json:"chat_id"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.ChatID) == "" {
		return Outcome{}, verrs.New(verrs.CodeChatIDRequired, "chat_id is required")
	}

	chat, err := s.chats.GetChat(ctx, input.ChatID)
	if errors.Is(err, storage.ErrNotFound) {
		return Outcome{Fields: map[string]any{"messages": []storage.ChatMessage{}}}, nil
	}
	if err != nil {
		return Outcome{}, chatStorageError("get chat messages", input.ChatID, err)
	}
	messages := chat.Messages
	if messages == nil {
		messages = []storage.ChatMessage{}
	}
	return Outcome{Fields: map[string]any{"messages": messages}}, nil
}

func chatStorageError(op, chatID string, err error) error {
	if errors.Is(err, storage.ErrInvalidID) {
		return verrs.Wrap(verrs.CodeChatInvalidID,
			"chat_id "+chatID+" is not a valid identifier", err)
	}
	return verrs.Wrap(verrs.CodeStorage, op+": "+err.Error(), err)
}
