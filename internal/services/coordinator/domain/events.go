package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	verrs "github.com/volunteerhub/eventms/internal/errors"
	"github.com/volunteerhub/eventms/internal/services/coordinator/storage"
)

const (
	defaultEventStatus   = "new"
	defaultUpcomingLimit = 10
)

// eventUpdateFields are the keys a partial event update may set.
var eventUpdateFields = map[string]bool{
	"title":               true,
	"description":         true,
	"start_datetime":      true,
	"location":            true,
	"required_volunteers": true,
	"photo_url":           true,
	"category":            true,
	"status":              true,
	"created_by":          true,
	"updated_by":          true,
	"volunteers":          true,
	"report_files":        true,
	"chat_id":             true,
	"comments":            true,
}

var eventTimeFields = map[string]bool{
	"start_datetime": true,
}

// EventService implements the event and volunteer-roster actions.
type EventService struct {
	store storage.EventStore
	clock func() time.Time
}

// NewEventService constructs event domain use-cases.
func NewEventService(store storage.EventStore, clock func() time.Time) *EventService {
	if clock == nil {
		clock = time.Now
	}
	return &EventService{store: store, clock: clock}
}

func eventStorageError(op, eventID string, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		return verrs.Wrap(verrs.CodeEventInvalidID,
			fmt.Sprintf("_id %q is not a valid identifier", eventID), err)
	case errors.Is(err, storage.ErrNotFound):
		return verrs.Wrap(verrs.CodeEventNotFound,
			fmt.Sprintf("event with _id %s not found", eventID), err)
	default:
		return verrs.Wrap(verrs.CodeStorage, fmt.Sprintf("%s: %v", op, err), err)
	}
}

type createEventInput struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	StartDatetime      *time.Time `json:"start_datetime"`
	Location           string     `json:"location"`
	RequiredVolunteers *int       `json:"required_volunteers"`
	PhotoURL           string     `json:"photo_url"`
	Category           string     `json:"category"`
	Status             string     `json:"status"`
	CreatedBy          string     `json:"created_by"`
	Volunteers         []string   `json:"volunteers"`
	ReportFiles        []string   `json:"report_files"`
	ChatID             string     `json:"chat_id"`
	Comments           []string   `json:"comments"`
}

// CreateEvent validates and stores a new event.
func (s *EventService) CreateEvent(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input createEventInput
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}

	var missing []string
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if input.StartDatetime == nil {
		missing = append(missing, "start_datetime")
	}
	if strings.TrimSpace(input.Location) == "" {
		missing = append(missing, "location")
	}
	if input.RequiredVolunteers == nil {
		missing = append(missing, "required_volunteers")
	}
	if strings.TrimSpace(input.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return Outcome{}, verrs.New(verrs.CodeValidation,
			"invalid event payload: missing fields "+strings.Join(missing, ", "))
	}

	now := s.clock().UTC()
	status := input.Status
	if status == "" {
		status = defaultEventStatus
	}
	volunteers := input.Volunteers
	if volunteers == nil {
		volunteers = []string{}
	}
	comments := input.Comments
	if comments == nil {
		comments = []string{}
	}
	record := storage.EventRecord{
		Title:              input.Title,
		Description:        input.Description,
		StartDatetime:      input.StartDatetime.UTC(),
		Location:           input.Location,
		RequiredVolunteers: *input.RequiredVolunteers,
		PhotoURL:           input.PhotoURL,
		Category:           input.Category,
		Status:             status,
		CreatedBy:          input.CreatedBy,
		UpdatedBy:          input.CreatedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
		Volunteers:         volunteers,
		ReportFiles:        input.ReportFiles,
		ChatID:             input.ChatID,
		Comments:           comments,
	}

	eventID, err := s.store.InsertEvent(ctx, record)
	if err != nil {
		return Outcome{}, eventStorageError("create event", "", err)
	}
	record.ID = eventID

	return Outcome{Fields: map[string]any{"event": record}}, nil
}

// UpdateEvent applies a partial update to an existing event.
func (s *EventService) UpdateEvent(ctx context.Context, data json.RawMessage) (Outcome, error) {
	raw, err := decodeFields(data)
	if err != nil {
		return Outcome{}, err
	}
	eventID, _ := raw["_id"].(string)
	if strings.TrimSpace(eventID) == "" {
		return Outcome{}, verrs.New(verrs.CodeEventIDRequired, "event _id is required")
	}

	fields, err := filterUpdateFields(raw, eventUpdateFields, eventTimeFields)
	if err != nil {
		return Outcome{}, err
	}
	fields["updated_at"] = s.clock().UTC()

	if err := s.store.SetEventFields(ctx, eventID, fields); err != nil {
		return Outcome{}, eventStorageError("update event", eventID, err)
	}

	updated := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		updated[key] = value
	}
	updated["_id"] = eventID

	return Outcome{Fields: map[string]any{"event": updated}}, nil
}

// DeleteEvent removes an event by identifier.
func (s *EventService) DeleteEvent(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		ID string `json:"_id"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.ID) == "" {
		return Outcome{}, verrs.New(verrs.CodeEventIDRequired, "event _id is required")
	}

	if err := s.store.DeleteEvent(ctx, input.ID); err != nil {
		return Outcome{}, eventStorageError("delete event", input.ID, err)
	}
	return Outcome{Fields: map[string]any{"_id": input.ID}}, nil
}

type rosterInput struct {
	EventID string `json:"_id"`
	UserID  string `json:"user_id"`
}

func (s *EventService) decodeRosterInput(data json.RawMessage) (rosterInput, error) {
	var input rosterInput
	if err := decodePayload(data, &input); err != nil {
		return rosterInput{}, err
	}
	if strings.TrimSpace(input.EventID) == "" || strings.TrimSpace(input.UserID) == "" {
		return rosterInput{}, verrs.New(verrs.CodeValidation, "event _id and user_id are required")
	}
	return input, nil
}

// RegisterVolunteer adds a user to an event roster, enforcing the duplicate
// and capacity business rules before any storage mutation.
func (s *EventService) RegisterVolunteer(ctx context.Context, data json.RawMessage) (Outcome, error) {
	input, err := s.decodeRosterInput(data)
	if err != nil {
		return Outcome{}, err
	}

	event, err := s.store.GetEvent(ctx, input.EventID)
	if err != nil {
		return Outcome{}, eventStorageError("register volunteer", input.EventID, err)
	}
	if slices.Contains(event.Volunteers, input.UserID) {
		return Outcome{}, verrs.New(verrs.CodeAlreadyRegistered,
			"user is already registered for this event")
	}
	if len(event.Volunteers) >= event.RequiredVolunteers {
		return Outcome{}, verrs.New(verrs.CodeVolunteerLimit,
			"volunteer limit reached for this event")
	}

	if err := s.store.AddVolunteer(ctx, input.EventID, input.UserID, s.clock().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotModified) {
			return Outcome{}, verrs.Wrap(verrs.CodeVolunteerUpdateLost,
				"volunteer registration was not applied", err)
		}
		return Outcome{}, eventStorageError("register volunteer", input.EventID, err)
	}

	return Outcome{Fields: map[string]any{
		"_id":     input.EventID,
		"user_id": input.UserID,
	}}, nil
}

// UnregisterVolunteer removes a user from an event roster.
func (s *EventService) UnregisterVolunteer(ctx context.Context, data json.RawMessage) (Outcome, error) {
	input, err := s.decodeRosterInput(data)
	if err != nil {
		return Outcome{}, err
	}

	event, err := s.store.GetEvent(ctx, input.EventID)
	if err != nil {
		return Outcome{}, eventStorageError("unregister volunteer", input.EventID, err)
	}
	if !slices.Contains(event.Volunteers, input.UserID) {
		return Outcome{}, verrs.New(verrs.CodeNotRegistered,
			"user is not registered for this event")
	}

	if err := s.store.RemoveVolunteer(ctx, input.EventID, input.UserID, s.clock().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotModified) {
			return Outcome{}, verrs.Wrap(verrs.CodeVolunteerUpdateLost,
				"volunteer removal was not applied", err)
		}
		return Outcome{}, eventStorageError("unregister volunteer", input.EventID, err)
	}

	return Outcome{Fields: map[string]any{
		"_id":     input.EventID,
		"user_id": input.UserID,
	}}, nil
}

// GetUpcomingEvents lists events starting after now, soonest first, with an
// optional category filter.
func (s *EventService) GetUpcomingEvents(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		Limit    int    `json:"limit"`
		Category string `json:"category"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}

	events, err := s.store.ListUpcomingEvents(ctx, s.clock().UTC(), input.Category, limit)
	if err != nil {
		return Outcome{}, eventStorageError("list upcoming events", "", err)
	}
	if events == nil {
		events = []storage.EventRecord{}
	}
	return Outcome{Fields: map[string]any{"events": events}}, nil
}

// GetUserEvents lists events the user created and events they volunteer for.
func (s *EventService) GetUserEvents(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		UserID string `json:"user_id"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.UserID) == "" {
		return Outcome{}, verrs.New(verrs.CodeValidation, "user_id is required")
	}

	created, err := s.store.ListEventsByCreator(ctx, input.UserID)
	if err != nil {
		return Outcome{}, eventStorageError("list created events", "", err)
	}
	volunteering, err := s.store.ListEventsByVolunteer(ctx, input.UserID)
	if err != nil {
		return Outcome{}, eventStorageError("list volunteer events", "", err)
	}
	if created == nil {
		created = []storage.EventRecord{}
	}
	if volunteering == nil {
		volunteering = []storage.EventRecord{}
	}
	return Outcome{Fields: map[string]any{
		"created_events":   created,
		"volunteer_events": volunteering,
	}}, nil
}

// GetEventByID loads one event by identifier.
func (s *EventService) GetEventByID(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		ID string `json:"_id"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.ID) == "" {
		return Outcome{}, verrs.New(verrs.CodeEventIDRequired, "event _id is required")
	}

	event, err := s.store.GetEvent(ctx, input.ID)
	if err != nil {
		return Outcome{}, eventStorageError("get event", input.ID, err)
	}
	return Outcome{Fields: map[string]any{"event": event}}, nil
}

// GetEventByTitle loads one event by exact title.
func (s *EventService) GetEventByTitle(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		Title string `json:"title"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return Outcome{}, verrs.New(verrs.CodeValidation, "title is required")
	}

	event, err := s.store.GetEventByTitle(ctx, input.Title)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Outcome{}, verrs.Wrap(verrs.CodeEventNotFound,
				fmt.Sprintf("event with title %q not found", input.Title), err)
		}
		return Outcome{}, eventStorageError("get event by title", "", err)
	}
	return Outcome{Fields: map[string]any{"event": event}}, nil
}

// GetUserVolunteerCount counts the events a user volunteers for.
func (s *EventService) GetUserVolunteerCount(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		UserID string `json:"user_id"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.UserID) == "" {
		return Outcome{}, verrs.New(verrs.CodeValidation, "user_id is required")
	}

	count, err := s.store.CountEventsByVolunteer(ctx, input.UserID)
	if err != nil {
		return Outcome{}, eventStorageError("count volunteer events", "", err)
	}
	return Outcome{Fields: map[string]any{
		"user_id": input.UserID,
		"count":   count,
	}}, nil
}
