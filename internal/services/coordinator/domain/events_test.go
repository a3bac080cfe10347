package domain

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	verrs "github.com/volunteerhub/eventms/internal/errors"
	"github.com/volunteerhub/eventms/internal/services/coordinator/storage"
)

func seedEvent(t *testing.T, store *fakeEventStore, event storage.EventRecord) string {
	t.Helper()
	id, err := store.InsertEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return id
}

func TestCreateEvent_AppliesDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeEventStore()
	svc := NewEventService(store, fixedClock(now))

	outcome, err := svc.CreateEvent(context.Background(), json.RawMessage(
		`{"title":"Beach cleanup","start_datetime":"2026-04-01T09:00:00Z","location":"Pier 4","required_volunteers":5,"category":"environment","created_by":"owner1"}`))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	event, ok := outcome.Fields["event"].(storage.EventRecord)
	if !ok {
		t.Fatalf("event field = %T", outcome.Fields["event"])
	}
	if event.ID == "" {
		t.Fatal("expected assigned event id")
	}
	if event.Status != "new" {
		t.Fatalf("status = %q, want %q", event.Status, "new")
	}
	if !event.CreatedAt.Equal(now) || !event.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps = %v / %v, want %v", event.CreatedAt, event.UpdatedAt, now)
	}
	if event.UpdatedBy != "owner1" {
		t.Fatalf("updated_by = %q, want creator", event.UpdatedBy)
	}
	if event.Volunteers == nil || event.Comments == nil {
		t.Fatal("volunteers and comments must serialize as empty lists, not null")
	}
}

func TestCreateEvent_ReportsAllMissingFields(t *testing.T) {
	t.Parallel()

	svc := NewEventService(newFakeEventStore(), nil)

	_, err := svc.CreateEvent(context.Background(), json.RawMessage(`{"description":"no required fields"}`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !verrs.IsCode(err, verrs.CodeValidation) {
		t.Fatalf("code = %v, want validation", verrs.GetCode(err))
	}
	for _, field := range []string{"title", "start_datetime", "location", "required_volunteers", "category"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not name missing field %q", err, field)
		}
	}
}

func TestUpdateEvent_FiltersUnknownFields(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store := newFakeEventStore()
	id := seedEvent(t, store, storage.EventRecord{Title: "Old title"})
	svc := NewEventService(store, fixedClock(now))

	outcome, err := svc.UpdateEvent(context.Background(), json.RawMessage(
		`{"_id":"`+id+`","title":"New title","bogus_field":"ignored","start_datetime":"2026-05-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("update event: %v", err)
	}

	if store.lastSetID != id {
		t.Fatalf("updated id = %q, want %q", store.lastSetID, id)
	}
	if store.lastSetFields["title"] != "New title" {
		t.Fatalf("title = %v", store.lastSetFields["title"])
	}
	if _, ok := store.lastSetFields["bogus_field"]; ok {
		t.Fatal("unknown fields must be dropped from the update")
	}
	start, ok := store.lastSetFields["start_datetime"].(time.Time)
	if !ok || !start.Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("start_datetime = %v", store.lastSetFields["start_datetime"])
	}
	updatedAt, ok := store.lastSetFields["updated_at"].(time.Time)
	if !ok || !updatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", store.lastSetFields["updated_at"], now)
	}

	echoed, ok := outcome.Fields["event"].(map[string]any)
	if !ok || echoed["_id"] != id {
		t.Fatalf("echoed event = %v", outcome.Fields["event"])
	}
}

func TestUpdateEvent_RequiresID(t *testing.T) {
	t.Parallel()

	svc := NewEventService(newFakeEventStore(), nil)
	_, err := svc.UpdateEvent(context.Background(), json.RawMessage(`{"title":"No id"}`))
	if !verrs.IsCode(err, verrs.CodeEventIDRequired) {
		t.Fatalf("code = %v, want event id required", verrs.GetCode(err))
	}
}

func TestRegisterVolunteer_RejectsDuplicateWithoutMutation(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	id := seedEvent(t, store, storage.EventRecord{
		Title:              "Food drive",
		RequiredVolunteers: 5,
		Volunteers:         []string{"vol1"},
	})
	svc := NewEventService(store, fixedClock(time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)))

	_, err := svc.RegisterVolunteer(context.Background(), json.RawMessage(
		`{"_id":"`+id+`","user_id":"vol1"}`))
	if !verrs.IsCode(err, verrs.CodeAlreadyRegistered) {
		t.Fatalf("code = %v, want already registered", verrs.GetCode(err))
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("error = %q", err)
	}

	event, getErr := store.GetEvent(context.Background(), id)
	if getErr != nil {
		t.Fatalf("reload event: %v", getErr)
	}
	if len(event.Volunteers) != 1 {
		t.Fatalf("roster = %v, duplicate register must not mutate it", event.Volunteers)
	}
}

func TestRegisterVolunteer_EnforcesCapacity(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	id := seedEvent(t, store, storage.EventRecord{
		Title:              "Full event",
		RequiredVolunteers: 2,
		Volunteers:         []string{"vol1", "vol2"},
	})
	svc := NewEventService(store, nil)

	_, err := svc.RegisterVolunteer(context.Background(), json.RawMessage(
		`{"_id":"`+id+`","user_id":"vol3"}`))
	if !verrs.IsCode(err, verrs.CodeVolunteerLimit) {
		t.Fatalf("code = %v, want volunteer limit", verrs.GetCode(err))
	}
}

func TestRegisterVolunteer_AddsToRoster(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	id := seedEvent(t, store, storage.EventRecord{
		Title:              "Open event",
		RequiredVolunteers: 3,
		Volunteers:         []string{},
	})
	svc := NewEventService(store, fixedClock(time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)))

	outcome, err := svc.RegisterVolunteer(context.Background(), json.RawMessage(
		`{"_id":"`+id+`","user_id":"vol1"}`))
	if err != nil {
		t.Fatalf("register volunteer: %v", err)
	}
	if outcome.Fields["user_id"] != "vol1" || outcome.Fields["_id"] != id {
		t.Fatalf("outcome = %v", outcome.Fields)
	}

	event, err := store.GetEvent(context.Background(), id)
	if err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if len(event.Volunteers) != 1 || event.Volunteers[0] != "vol1" {
		t.Fatalf("roster = %v", event.Volunteers)
	}
}

func TestUnregisterVolunteer_RequiresMembership(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	id := seedEvent(t, store, storage.EventRecord{
		Title:              "Park day",
		RequiredVolunteers: 5,
		Volunteers:         []string{"vol1"},
	})
	svc := NewEventService(store, nil)

	_, err := svc.UnregisterVolunteer(context.Background(), json.RawMessage(
		`{"_id":"`+id+`","user_id":"vol2"}`))
	if !verrs.IsCode(err, verrs.CodeNotRegistered) {
		t.Fatalf("code = %v, want not registered", verrs.GetCode(err))
	}

	outcome, err := svc.UnregisterVolunteer(context.Background(), json.RawMessage(
		`{"_id":"`+id+`","user_id":"vol1"}`))
	if err != nil {
		t.Fatalf("unregister volunteer: %v", err)
	}
	if outcome.Fields["user_id"] != "vol1" {
		t.Fatalf("outcome = %v", outcome.Fields)
	}
}

func TestGetUpcomingEvents_SortsAndFilters(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeEventStore()
	seedEvent(t, store, storage.EventRecord{
		Title: "Past", Category: "environment", StartDatetime: now.Add(-24 * time.Hour),
	})
	seedEvent(t, store, storage.EventRecord{
		Title: "Later", Category: "environment", StartDatetime: now.Add(72 * time.Hour),
	})
	seedEvent(t, store, storage.EventRecord{
		Title: "Sooner", Category: "environment", StartDatetime: now.Add(24 * time.Hour),
	})
	seedEvent(t, store, storage.EventRecord{
		Title: "Other category", Category: "education", StartDatetime: now.Add(48 * time.Hour),
	})
	svc := NewEventService(store, fixedClock(now))

	outcome, err := svc.GetUpcomingEvents(context.Background(), json.RawMessage(`{"category":"environment"}`))
	if err != nil {
		t.Fatalf("get upcoming events: %v", err)
	}
	events, ok := outcome.Fields["events"].([]storage.EventRecord)
	if !ok {
		t.Fatalf("events field = %T", outcome.Fields["events"])
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Title != "Sooner" || events[1].Title != "Later" {
		t.Fatalf("order = %q, %q", events[0].Title, events[1].Title)
	}
}

func TestGetUpcomingEvents_EmptyStoreReturnsEmptyList(t *testing.T) {
	t.Parallel()

	svc := NewEventService(newFakeEventStore(), nil)
	outcome, err := svc.GetUpcomingEvents(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("get upcoming events: %v", err)
	}
	events, ok := outcome.Fields["events"].([]storage.EventRecord)
	if !ok || events == nil {
		t.Fatalf("events = %v, want non-nil empty list", outcome.Fields["events"])
	}
}

func TestGetUserEvents_SplitsCreatedAndVolunteering(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	seedEvent(t, store, storage.EventRecord{Title: "Mine", CreatedBy: "user1"})
	seedEvent(t, store, storage.EventRecord{Title: "Helping", CreatedBy: "user2", Volunteers: []string{"user1"}})
	svc := NewEventService(store, nil)

	outcome, err := svc.GetUserEvents(context.Background(), json.RawMessage(`{"user_id":"user1"}`))
	if err != nil {
		t.Fatalf("get user events: %v", err)
	}
	created := outcome.Fields["created_events"].([]storage.EventRecord)
	volunteering := outcome.Fields["volunteer_events"].([]storage.EventRecord)
	if len(created) != 1 || created[0].Title != "Mine" {
		t.Fatalf("created = %v", created)
	}
	if len(volunteering) != 1 || volunteering[0].Title != "Helping" {
		t.Fatalf("volunteering = %v", volunteering)
	}
}

func TestGetEventByID_MapsMissingToNotFound(t *testing.T) {
	t.Parallel()

	svc := NewEventService(newFakeEventStore(), nil)
	_, err := svc.GetEventByID(context.Background(), json.RawMessage(`{"_id":"event-404"}`))
	if !verrs.IsCode(err, verrs.CodeEventNotFound) {
		t.Fatalf("code = %v, want event not found", verrs.GetCode(err))
	}
}

func TestGetEventByTitle_FindsExactMatch(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	seedEvent(t, store, storage.EventRecord{Title: "Charity run"})
	svc := NewEventService(store, nil)

	outcome, err := svc.GetEventByTitle(context.Background(), json.RawMessage(`{"title":"Charity run"}`))
	if err != nil {
		t.Fatalf("get event by title: %v", err)
	}
	event := outcome.Fields["event"].(storage.EventRecord)
	if event.Title != "Charity run" {
		t.Fatalf("title = %q", event.Title)
	}

	_, err = svc.GetEventByTitle(context.Background(), json.RawMessage(`{"title":"Missing"}`))
	if !verrs.IsCode(err, verrs.CodeEventNotFound) {
		t.Fatalf("code = %v, want event not found", verrs.GetCode(err))
	}
}

func TestGetUserVolunteerCount_CountsRosterMembership(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	seedEvent(t, store, storage.EventRecord{Title: "One", Volunteers: []string{"user1"}})
	seedEvent(t, store, storage.EventRecord{Title: "Two", Volunteers: []string{"user1", "user2"}})
	seedEvent(t, store, storage.EventRecord{Title: "Three", Volunteers: []string{"user2"}})
	svc := NewEventService(store, nil)

	outcome, err := svc.GetUserVolunteerCount(context.Background(), json.RawMessage(`{"user_id":"user1"}`))
	if err != nil {
		t.Fatalf("get volunteer count: %v", err)
	}
	if outcome.Fields["count"] != int64(2) {
		t.Fatalf("count = %v, want 2", outcome.Fields["count"])
	}
	if outcome.Fields["user_id"] != "user1" {
		t.Fatalf("user_id = %v", outcome.Fields["user_id"])
	}
}
