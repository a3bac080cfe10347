// Package storage declares the persistence boundary for the coordinator
// service: volunteer events, tasks, and event chats held in a document
// store. Identifiers cross this boundary as opaque strings; conversion to
// the store's native identifier type is a backend concern.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrNotModified indicates a write matched a record but changed nothing.
	ErrNotModified = errors.New("record not modified")
	// ErrInvalidID indicates an identifier is not valid for the backend.
	ErrInvalidID = errors.New("invalid identifier")
)

// EventRecord is one volunteer event document.
type EventRecord struct {
	ID                 string    `json:"_id,omitempty"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	StartDatetime      time.Time `json:"start_datetime"`
	Location           string    `json:"location"`
	RequiredVolunteers int       `json:"required_volunteers"`
	PhotoURL           string    `json:"photo_url,omitempty"`
	Category           string    `json:"category"`
	Status             string    `json:"status"`
	CreatedBy          string    `json:"created_by,omitempty"`
	UpdatedBy          string    `json:"updated_by,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Volunteers         []string  `json:"volunteers"`
	ReportFiles        []string  `json:"report_files,omitempty"`
	ChatID             string    `json:"chat_id,omitempty"`
	Comments           []string  `json:"comments"`
}

// TaskRecord is one volunteer task document.
type TaskRecord struct {
	ID          string        `json:"_id,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Deadline    *time.Time    `json:"deadline,omitempty"`
	AssignedTo  string        `json:"assigned_to"`
	EventID     string        `json:"event_id,omitempty"`
	Status      string        `json:"status"`
	Attachments []string      `json:"attachments"`
	Comments    []TaskComment `json:"comments"`
	CreatedBy   string        `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TaskComment is one comment embedded in a task document.
type TaskComment struct {
	UserID      string    `json:"user_id"`
	Text        string    `json:"text"`
	Attachments []string  `json:"attachments"`
	CreatedAt   time.Time `json:"created_at"`
	TaskID      string    `json:"task_id,omitempty"`
}

// ChatRecord is one event chat document.
type ChatRecord struct {
	ID       string        `json:"_id,omitempty"`
	EventID  string        `json:"event_id"`
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is one message embedded in a chat document.
type ChatMessage struct {
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EventStore persists volunteer events and their volunteer rosters.
type EventStore interface {
	InsertEvent(ctx context.Context, event EventRecord) (string, error)
	GetEvent(ctx context.Context, eventID string) (EventRecord, error)
	GetEventByTitle(ctx context.Context, title string) (EventRecord, error)
	GetEventByChatID(ctx context.Context, chatID string) (EventRecord, error)
	// SetEventFields applies a partial update to the named fields.
	SetEventFields(ctx context.Context, eventID string, fields map[string]any) error
	DeleteEvent(ctx context.Context, eventID string) error
	// ListUpcomingEvents returns events starting after the given moment,
	// soonest first. An empty category matches all categories.
	ListUpcomingEvents(ctx context.Context, after time.Time, category string, limit int) ([]EventRecord, error)
	ListEventsByCreator(ctx context.Context, userID string) ([]EventRecord, error)
	ListEventsByVolunteer(ctx context.Context, userID string) ([]EventRecord, error)
	CountEventsByVolunteer(ctx context.Context, userID string) (int64, error)
	// AddVolunteer adds the user to the roster unless already present.
	AddVolunteer(ctx context.Context, eventID, userID string, at time.Time) error
	// RemoveVolunteer removes the user from the roster.
	RemoveVolunteer(ctx context.Context, eventID, userID string, at time.Time) error
}

// TaskStore persists volunteer tasks with embedded comments and attachments.
type TaskStore interface {
	InsertTask(ctx context.Context, task TaskRecord) (string, error)
	GetTask(ctx context.Context, taskID string) (TaskRecord, error)
	// SetTaskFields applies a partial update to the named fields.
	SetTaskFields(ctx context.Context, taskID string, fields map[string]any) error
	DeleteTask(ctx context.Context, taskID string) error
	DeleteTasksByEvent(ctx context.Context, eventID string) (int64, error)
	// ListTasksByAssignee returns the user's tasks, earliest deadline first.
	ListTasksByAssignee(ctx context.Context, userID string) ([]TaskRecord, error)
	ListTasksByCreator(ctx context.Context, userID string) ([]TaskRecord, error)
	// ListTasksByEvent returns the event's tasks, earliest deadline first.
	ListTasksByEvent(ctx context.Context, eventID string) ([]TaskRecord, error)
	AppendTaskComment(ctx context.Context, taskID string, comment TaskComment) error
	AppendTaskAttachments(ctx context.Context, taskID string, attachments []string) error
	RemoveTaskAttachments(ctx context.Context, taskID string, attachments []string) error
	SetTaskStatus(ctx context.Context, taskID, status string) error
}

// ChatStore persists event chats.
type ChatStore interface {
	GetChat(ctx context.Context, chatID string) (ChatRecord, error)
	InsertChat(ctx context.Context, chat ChatRecord) (string, error)
	AppendChatMessage(ctx context.Context, chatID string, message ChatMessage) error
}
