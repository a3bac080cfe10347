package domain

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/volunteerhub/eventms/internal/services/coordinator/storage"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]storage.EventRecord
	nextID int

	err        error
	panicOnGet bool

	lastSetID     string
	lastSetFields map[string]any
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[string]storage.EventRecord)}
}

func (f *fakeEventStore) InsertEvent(_ context.Context, event storage.EventRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.nextID++
	id := fmt.Sprintf("event-%d", f.nextID)
	event.ID = id
	f.events[id] = event
	return id, nil
}

func (f *fakeEventStore) GetEvent(_ context.Context, eventID string) (storage.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnGet {
		panic("event store exploded")
	}
	if f.err != nil {
		return storage.EventRecord{}, f.err
	}
	event, ok := f.events[eventID]
	if !ok {
		return storage.EventRecord{}, storage.ErrNotFound
	}
	return event, nil
}

func (f *fakeEventStore) GetEventByTitle(_ context.Context, title string) (storage.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.EventRecord{}, f.err
	}
	for _, event := range f.events {
		if event.Title == title {
			return event, nil
		}
	}
	return storage.EventRecord{}, storage.ErrNotFound
}

func (f *fakeEventStore) GetEventByChatID(_ context.Context, chatID string) (storage.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.EventRecord{}, f.err
	}
	for _, event := range f.events {
		if event.ChatID == chatID {
			return event, nil
		}
	}
	return storage.EventRecord{}, storage.ErrNotFound
}

func (f *fakeEventStore) SetEventFields(_ context.Context, eventID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.events[eventID]; !ok {
		return storage.ErrNotFound
	}
	f.lastSetID = eventID
	f.lastSetFields = fields
	return nil
}

func (f *fakeEventStore) DeleteEvent(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.events[eventID]; !ok {
		return storage.ErrNotFound
	}
	delete(f.events, eventID)
	return nil
}

func (f *fakeEventStore) ListUpcomingEvents(_ context.Context, after time.Time, category string, limit int) ([]storage.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var upcoming []storage.EventRecord
	for _, event := range f.events {
		if !event.StartDatetime.After(after) {
			continue
		}
		if category != "" && event.Category != category {
			continue
		}
		upcoming = append(upcoming, event)
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].StartDatetime.Before(upcoming[j].StartDatetime)
	})
	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, nil
}

func (f *fakeEventStore) ListEventsByCreator(_ context.Context, userID string) ([]storage.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var created []storage.EventRecord
	for _, event := range f.events {
		if event.CreatedBy == userID {
			created = append(created, event)
		}
	}
	return created, nil
}

func (f *fakeEventStore) ListEventsByVolunteer(_ context.Context, userID string) ([]storage.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var volunteering []storage.EventRecord
	for _, event := range f.events {
		if slices.Contains(event.Volunteers, userID) {
			volunteering = append(volunteering, event)
		}
	}
	return volunteering, nil
}

func (f *fakeEventStore) CountEventsByVolunteer(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var count int64
	for _, event := range f.events {
		if slices.Contains(event.Volunteers, userID) {
			count++
		}
	}
	return count, nil
}

func (f *fakeEventStore) AddVolunteer(_ context.Context, eventID, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	event, ok := f.events[eventID]
	if !ok {
		return storage.ErrNotFound
	}
	if slices.Contains(event.Volunteers, userID) {
		return storage.ErrNotModified
	}
	event.Volunteers = append(event.Volunteers, userID)
	event.UpdatedAt = at
	f.events[eventID] = event
	return nil
}

func (f *fakeEventStore) RemoveVolunteer(_ context.Context, eventID, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	event, ok := f.events[eventID]
	if !ok {
		return storage.ErrNotFound
	}
	index := slices.Index(event.Volunteers, userID)
	if index < 0 {
		return storage.ErrNotModified
	}
	event.Volunteers = slices.Delete(event.Volunteers, index, index+1)
	event.UpdatedAt = at
	f.events[eventID] = event
	return nil
}

type fakeTaskStore struct {
	mu     sync.Mutex
	tasks  map[string]storage.TaskRecord
	nextID int

	err       error
	statusErr error

	lastSetID     string
	lastSetFields map[string]any
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]storage.TaskRecord)}
}

func (f *fakeTaskStore) InsertTask(_ context.Context, task storage.TaskRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.nextID++
	id := fmt.Sprintf("task-%d", f.nextID)
	task.ID = id
	f.tasks[id] = task
	return id, nil
}

func (f *fakeTaskStore) GetTask(_ context.Context, taskID string) (storage.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.TaskRecord{}, f.err
	}
	task, ok := f.tasks[taskID]
	if !ok {
		return storage.TaskRecord{}, storage.ErrNotFound
	}
	return task, nil
}

func (f *fakeTaskStore) SetTaskFields(_ context.Context, taskID string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.tasks[taskID]; !ok {
		return storage.ErrNotFound
	}
	f.lastSetID = taskID
	f.lastSetFields = fields
	return nil
}

func (f *fakeTaskStore) DeleteTask(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.tasks[taskID]; !ok {
		return storage.ErrNotFound
	}
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeTaskStore) DeleteTasksByEvent(_ context.Context, eventID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var deleted int64
	for id, task := range f.tasks {
		if task.EventID == eventID {
			delete(f.tasks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeTaskStore) ListTasksByAssignee(_ context.Context, userID string) ([]storage.TaskRecord, error) {
	return f.listWhere(func(task storage.TaskRecord) bool { return task.AssignedTo == userID })
}

func (f *fakeTaskStore) ListTasksByCreator(_ context.Context, userID string) ([]storage.TaskRecord, error) {
	return f.listWhere(func(task storage.TaskRecord) bool { return task.CreatedBy == userID })
}

func (f *fakeTaskStore) ListTasksByEvent(_ context.Context, eventID string) ([]storage.TaskRecord, error) {
	return f.listWhere(func(task storage.TaskRecord) bool { return task.EventID == eventID })
}

func (f *fakeTaskStore) listWhere(match func(storage.TaskRecord) bool) ([]storage.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var tasks []storage.TaskRecord
	for _, task := range f.tasks {
		if match(task) {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (f *fakeTaskStore) AppendTaskComment(_ context.Context, taskID string, comment storage.TaskComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	task, ok := f.tasks[taskID]
	if !ok {
		return storage.ErrNotFound
	}
	task.Comments = append(task.Comments, comment)
	f.tasks[taskID] = task
	return nil
}

func (f *fakeTaskStore) AppendTaskAttachments(_ context.Context, taskID string, attachments []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	task, ok := f.tasks[taskID]
	if !ok {
		return storage.ErrNotFound
	}
	task.Attachments = append(task.Attachments, attachments...)
	f.tasks[taskID] = task
	return nil
}

func (f *fakeTaskStore) RemoveTaskAttachments(_ context.Context, taskID string, attachments []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	task, ok := f.tasks[taskID]
	if !ok {
		return storage.ErrNotFound
	}
	task.Attachments = slices.DeleteFunc(task.Attachments, func(ref string) bool {
		return slices.Contains(attachments, ref)
	})
	f.tasks[taskID] = task
	return nil
}

func (f *fakeTaskStore) SetTaskStatus(_ context.Context, taskID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	if f.err != nil {
		return f.err
	}
	task, ok := f.tasks[taskID]
	if !ok {
		return storage.ErrNotFound
	}
	if task.Status == status {
		return storage.ErrNotModified
	}
	task.Status = status
	f.tasks[taskID] = task
	return nil
}

type fakeChatStore struct {
	mu     sync.Mutex
	chats  map[string]storage.ChatRecord
	nextID int

	err error
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{chats: make(map[string]storage.ChatRecord)}
}

func (f *fakeChatStore) GetChat(_ context.Context, chatID string) (storage.ChatRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.ChatRecord{}, f.err
	}
	chat, ok := f.chats[chatID]
	if !ok {
		return storage.ChatRecord{}, storage.ErrNotFound
	}
	return chat, nil
}

func (f *fakeChatStore) InsertChat(_ context.Context, chat storage.ChatRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.nextID++
	id := fmt.Sprintf("chat-%d", f.nextID)
	chat.ID = id
	f.chats[chat.EventID] = chat
	return id, nil
}

func (f *fakeChatStore) AppendChatMessage(_ context.Context, chatID string, message storage.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	chat, ok := f.chats[chatID]
	if !ok {
		return storage.ErrNotFound
	}
	chat.Messages = append(chat.Messages, message)
	f.chats[chatID] = chat
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	keys     []string
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, string(key))
	f.messages = append(f.messages, append([]byte(nil), value...))
	return nil
}

func (f *fakePublisher) published() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.messages)
}
