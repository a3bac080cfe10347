// Package mongo provides MongoDB-backed persistence for coordinator state.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/volunteerhub/eventms/internal/services/coordinator/storage"
)

const (
	eventsCollection = "events"
	tasksCollection  = "volunteer_tasks"
	chatsCollection  = "chats"

	connectTimeout = 10 * time.Second
)

// Store provides MongoDB-backed persistence for events, tasks, and chats.
type Store struct {
	client *mongo.Client
	events *mongo.Collection
	tasks  *mongo.Collection
	chats  *mongo.Collection
}

// Open connects to MongoDB and binds the coordinator collections.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if strings.TrimSpace(database) == "" {
		return nil, fmt.Errorf("mongo database name is required")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client: client,
		events: db.Collection(eventsCollection),
		tasks:  db.Collection(tasksCollection),
		chats:  db.Collection(chatsCollection),
	}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func objectIDFromHex(raw string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: %q", storage.ErrInvalidID, raw)
	}
	return oid, nil
}

type eventDoc struct {
	ID                 bson.ObjectID `bson:"_id,omitempty"`
	Title              string        `bson:"title"`
	Description        string        `bson:"description,omitempty"`
	StartDatetime      time.Time     `bson:"start_datetime"`
	Location           string        `bson:"location"`
	RequiredVolunteers int           `bson:"required_volunteers"`
	PhotoURL           string        `bson:"photo_url,omitempty"`
	Category           string        `bson:"category"`
	Status             string        `bson:"status"`
	CreatedBy          string        `bson:"created_by,omitempty"`
	UpdatedBy          string        `bson:"updated_by,omitempty"`
	CreatedAt          time.Time     `bson:"created_at"`
	UpdatedAt          time.Time     `bson:"updated_at"`
	Volunteers         []string      `bson:"volunteers"`
	ReportFiles        []string      `bson:"report_files,omitempty"`
	ChatID             string        `bson:"chat_id,omitempty"`
	Comments           []string      `bson:"comments"`
}

func eventToDoc(record storage.EventRecord) eventDoc {
	return eventDoc{
		Title:              record.Title,
		Description:        record.Description,
		StartDatetime:      record.StartDatetime.UTC(),
		Location:           record.Location,
		RequiredVolunteers: record.RequiredVolunteers,
		PhotoURL:           record.PhotoURL,
		Category:           record.Category,
		Status:             record.Status,
		CreatedBy:          record.CreatedBy,
		UpdatedBy:          record.UpdatedBy,
		CreatedAt:          record.CreatedAt.UTC(),
		UpdatedAt:          record.UpdatedAt.UTC(),
		Volunteers:         record.Volunteers,
		ReportFiles:        record.ReportFiles,
		ChatID:             record.ChatID,
		Comments:           record.Comments,
	}
}

func eventFromDoc(doc eventDoc) storage.EventRecord {
	record := storage.EventRecord{
		ID:                 doc.ID.Hex(),
		Title:              doc.Title,
		Description:        doc.Description,
		StartDatetime:      doc.StartDatetime.UTC(),
		Location:           doc.Location,
		RequiredVolunteers: doc.RequiredVolunteers,
		PhotoURL:           doc.PhotoURL,
		Category:           doc.Category,
		Status:             doc.Status,
		CreatedBy:          doc.CreatedBy,
		UpdatedBy:          doc.UpdatedBy,
		CreatedAt:          doc.CreatedAt.UTC(),
		UpdatedAt:          doc.UpdatedAt.UTC(),
		Volunteers:         doc.Volunteers,
		ReportFiles:        doc.ReportFiles,
		ChatID:             doc.ChatID,
		Comments:           doc.Comments,
	}
	if record.Volunteers == nil {
		record.Volunteers = []string{}
	}
	if record.Comments == nil {
		record.Comments = []string{}
	}
	return record
}

// InsertEvent stores a new event document and returns its identifier.
func (s *Store) InsertEvent(ctx context.Context, record storage.EventRecord) (string, error) {
	result, err := s.events.InsertOne(ctx, eventToDoc(record))
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	oid, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert event: unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// GetEvent loads one event by identifier.
func (s *Store) GetEvent(ctx context.Context, eventID string) (storage.EventRecord, error) {
	oid, err := objectIDFromHex(eventID)
	if err != nil {
		return storage.EventRecord{}, err
	}
	return s.findEvent(ctx, bson.M{"_id": oid})
}

// GetEventByTitle loads one event by exact title.
func (s *Store) GetEventByTitle(ctx context.Context, title string) (storage.EventRecord, error) {
	return s.findEvent(ctx, bson.M{"title": title})
}

// GetEventByChatID loads the event owning the given chat.
func (s *Store) GetEventByChatID(ctx context.Context, chatID string) (storage.EventRecord, error) {
	return s.findEvent(ctx, bson.M{"chat_id": chatID})
}

func (s *Store) findEvent(ctx context.Context, filter bson.M) (storage.EventRecord, error) {
	var doc eventDoc
	err := s.events.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.EventRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.EventRecord{}, fmt.Errorf("find event: %w", err)
	}
	return eventFromDoc(doc), nil
}

// SetEventFields applies a partial update to the named event fields.
func (s *Store) SetEventFields(ctx context.Context, eventID string, fields map[string]any) error {
	oid, err := objectIDFromHex(eventID)
	if err != nil {
		return err
	}
	result, err := s.events.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteEvent removes one event by identifier.
func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	oid, err := objectIDFromHex(eventID)
	if err != nil {
		return err
	}
	result, err := s.events.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListUpcomingEvents returns events starting after the given moment, soonest
// first. An empty category matches all categories.
func (s *Store) ListUpcomingEvents(ctx context.Context, after time.Time, category string, limit int) ([]storage.EventRecord, error) {
	filter := bson.M{"start_datetime": bson.M{"$gt": after.UTC()}}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_datetime", Value: 1}}).
		SetLimit(int64(limit))
	return s.listEvents(ctx, filter, opts)
}

// ListEventsByCreator returns events created by the given user.
func (s *Store) ListEventsByCreator(ctx context.Context, userID string) ([]storage.EventRecord, error) {
	return s.listEvents(ctx, bson.M{"created_by": userID}, nil)
}

// ListEventsByVolunteer returns events the given user volunteers for.
func (s *Store) ListEventsByVolunteer(ctx context.Context, userID string) ([]storage.EventRecord, error) {
	return s.listEvents(ctx, bson.M{"volunteers": userID}, nil)
}

func (s *Store) listEvents(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]storage.EventRecord, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = s.events.Find(ctx, filter, opts)
	} else {
		cursor, err = s.events.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	records := make([]storage.EventRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, eventFromDoc(doc))
	}
	return records, nil
}

// CountEventsByVolunteer counts events the given user volunteers for.
func (s *Store) CountEventsByVolunteer(ctx context.Context, userID string) (int64, error) {
	count, err := s.events.CountDocuments(ctx, bson.M{"volunteers": userID})
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// AddVolunteer adds the user to the event roster unless already present.
func (s *Store) AddVolunteer(ctx context.Context, eventID, userID string, at time.Time) error {
	oid, err := objectIDFromHex(eventID)
	if err != nil {
		return err
	}
	result, err := s.events.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$addToSet": bson.M{"volunteers": userID},
		"$set":      bson.M{"updated_at": at.UTC()},
	})
	if err != nil {
		return fmt.Errorf("add volunteer: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	if result.ModifiedCount == 0 {
		return storage.ErrNotModified
	}
	return nil
}

// RemoveVolunteer removes the user from the event roster.
func (s *Store) RemoveVolunteer(ctx context.Context, eventID, userID string, at time.Time) error {
	oid, err := objectIDFromHex(eventID)
	if err != nil {
		return err
	}
	result, err := s.events.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$pull": bson.M{"volunteers": userID},
		"$set":  bson.M{"updated_at": at.UTC()},
	})
	if err != nil {
		return fmt.Errorf("remove volunteer: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	if result.ModifiedCount == 0 {
		return storage.ErrNotModified
	}
	return nil
}

type taskDoc struct {
	ID          bson.ObjectID    `bson:"_id,omitempty"`
	Title       string           `bson:"title"`
	Description string           `bson:"description,omitempty"`
	Deadline    *time.Time       `bson:"deadline,omitempty"`
	AssignedTo  string           `bson:"assigned_to"`
	EventID     string           `bson:"event_id,omitempty"`
	Status      string           `bson:"status"`
	Attachments []string         `bson:"attachments"`
	Comments    []taskCommentDoc `bson:"comments"`
	CreatedBy   string           `bson:"created_by,omitempty"`
	CreatedAt   time.Time        `bson:"created_at"`
	UpdatedAt   time.Time        `bson:"updated_at"`
}

type taskCommentDoc struct {
	UserID      string    `bson:"user_id"`
	Text        string    `bson:"text"`
	Attachments []string  `bson:"attachments"`
	CreatedAt   time.Time `bson:"created_at"`
	TaskID      string    `bson:"task_id,omitempty"`
}

func taskToDoc(record storage.TaskRecord) taskDoc {
	doc := taskDoc{
		Title:       record.Title,
		Description: record.Description,
		AssignedTo:  record.AssignedTo,
		EventID:     record.EventID,
		Status:      record.Status,
		Attachments: record.Attachments,
		CreatedBy:   record.CreatedBy,
		CreatedAt:   record.CreatedAt.UTC(),
		UpdatedAt:   record.UpdatedAt.UTC(),
	}
	if record.Deadline != nil {
		deadline := record.Deadline.UTC()
		doc.Deadline = &deadline
	}
	for _, comment := range record.Comments {
		doc.Comments = append(doc.Comments, taskCommentDoc{
			UserID:      comment.UserID,
			Text:        comment.Text,
			Attachments: comment.Attachments,
			CreatedAt:   comment.CreatedAt.UTC(),
			TaskID:      comment.TaskID,
		})
	}
	return doc
}

func taskFromDoc(doc taskDoc) storage.TaskRecord {
	record := storage.TaskRecord{
		ID:          doc.ID.Hex(),
		Title:       doc.Title,
		Description: doc.Description,
		AssignedTo:  doc.AssignedTo,
		EventID:     doc.EventID,
		Status:      doc.Status,
		Attachments: doc.Attachments,
		CreatedBy:   doc.CreatedBy,
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}
	if doc.Deadline != nil {
		deadline := doc.Deadline.UTC()
		record.Deadline = &deadline
	}
	if record.Attachments == nil {
		record.Attachments = []string{}
	}
	record.Comments = make([]storage.TaskComment, 0, len(doc.Comments))
	for _, comment := range doc.Comments {
		record.Comments = append(record.Comments, storage.TaskComment{
			UserID:      comment.UserID,
			Text:        comment.Text,
			Attachments: comment.Attachments,
			CreatedAt:   comment.CreatedAt.UTC(),
			TaskID:      comment.TaskID,
		})
	}
	return record
}

// InsertTask stores a new task document and returns its identifier.
func (s *Store) InsertTask(ctx context.Context, record storage.TaskRecord) (string, error) {
	result, err := s.tasks.InsertOne(ctx, taskToDoc(record))
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	oid, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert task: unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// GetTask loads one task by identifier.
func (s *Store) GetTask(ctx context.Context, taskID string) (storage.TaskRecord, error) {
	oid, err := objectIDFromHex(taskID)
	if err != nil {
		return storage.TaskRecord{}, err
	}
	var doc taskDoc
	err = s.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.TaskRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.TaskRecord{}, fmt.Errorf("find task: %w", err)
	}
	return taskFromDoc(doc), nil
}

// SetTaskFields applies a partial update to the named task fields.
func (s *Store) SetTaskFields(ctx context.Context, taskID string, fields map[string]any) error {
	oid, err := objectIDFromHex(taskID)
	if err != nil {
		return err
	}
	result, err := s.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteTask removes one task by identifier.
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	oid, err := objectIDFromHex(taskID)
	if err != nil {
		return err
	}
	result, err := s.tasks.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteTasksByEvent removes every task bound to the given event.
func (s *Store) DeleteTasksByEvent(ctx context.Context, eventID string) (int64, error) {
	result, err := s.tasks.DeleteMany(ctx, bson.M{"event_id": eventID})
	if err != nil {
		return 0, fmt.Errorf("delete tasks by event: %w", err)
	}
	return result.DeletedCount, nil
}

// ListTasksByAssignee returns the user's tasks, earliest deadline first.
func (s *Store) ListTasksByAssignee(ctx context.Context, userID string) ([]storage.TaskRecord, error) {
	return s.listTasks(ctx, bson.M{"assigned_to": userID}, options.Find().SetSort(bson.D{{Key: "deadline", Value: 1}}))
}

// ListTasksByCreator returns tasks assigned out by the given user.
func (s *Store) ListTasksByCreator(ctx context.Context, userID string) ([]storage.TaskRecord, error) {
	return s.listTasks(ctx, bson.M{"created_by": userID}, nil)
}

// ListTasksByEvent returns the event's tasks, earliest deadline first.
func (s *Store) ListTasksByEvent(ctx context.Context, eventID string) ([]storage.TaskRecord, error) {
	return s.listTasks(ctx, bson.M{"event_id": eventID}, options.Find().SetSort(bson.D{{Key: "deadline", Value: 1}}))
}

func (s *Store) listTasks(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]storage.TaskRecord, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = s.tasks.Find(ctx, filter, opts)
	} else {
		cursor, err = s.tasks.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	var docs []taskDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	records := make([]storage.TaskRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, taskFromDoc(doc))
	}
	return records, nil
}

// AppendTaskComment pushes one comment onto the task's comment list.
func (s *Store) AppendTaskComment(ctx context.Context, taskID string, comment storage.TaskComment) error {
	oid, err := objectIDFromHex(taskID)
	if err != nil {
		return err
	}
	doc := taskCommentDoc{
		UserID:      comment.UserID,
		Text:        comment.Text,
		Attachments: comment.Attachments,
		CreatedAt:   comment.CreatedAt.UTC(),
		TaskID:      comment.TaskID,
	}
	result, err := s.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"comments": doc}})
	if err != nil {
		return fmt.Errorf("append task comment: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	if result.ModifiedCount == 0 {
		return storage.ErrNotModified
	}
	return nil
}

// AppendTaskAttachments pushes attachment references onto the task.
func (s *Store) AppendTaskAttachments(ctx context.Context, taskID string, attachments []string) error {
	oid, err := objectIDFromHex(taskID)
	if err != nil {
		return err
	}
	result, err := s.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"attachments": bson.M{"$each": attachments}},
	})
	if err != nil {
		return fmt.Errorf("append task attachments: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	if result.ModifiedCount == 0 {
		return storage.ErrNotModified
	}
	return nil
}

// RemoveTaskAttachments pulls the given attachment references off the task.
func (s *Store) RemoveTaskAttachments(ctx context.Context, taskID string, attachments []string) error {
	oid, err := objectIDFromHex(taskID)
	if err != nil {
		return err
	}
	result, err := s.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$pull": bson.M{"attachments": bson.M{"$in": attachments}},
	})
	if err != nil {
		return fmt.Errorf("remove task attachments: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetTaskStatus updates the task's workflow status.
func (s *Store) SetTaskStatus(ctx context.Context, taskID, status string) error {
	oid, err := objectIDFromHex(taskID)
	if err != nil {
		return err
	}
	result, err := s.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	if result.ModifiedCount == 0 {
		return storage.ErrNotModified
	}
	return nil
}

type chatDoc struct {
	ID       bson.ObjectID    `bson:"_id,omitempty"`
	EventID  string           `bson:"event_id"`
	Messages []chatMessageDoc `bson:"messages"`
}

type chatMessageDoc struct {
	Author    string    `bson:"author"`
	Message   string    `bson:"message"`
	Timestamp time.Time `bson:"timestamp"`
}

func chatFromDoc(doc chatDoc) storage.ChatRecord {
	record := storage.ChatRecord{
		ID:       doc.ID.Hex(),
		EventID:  doc.EventID,
		Messages: make([]storage.ChatMessage, 0, len(doc.Messages)),
	}
	for _, message := range doc.Messages {
		record.Messages = append(record.Messages, storage.ChatMessage{
			Author:    message.Author,
			Message:   message.Message,
			Timestamp: message.Timestamp.UTC(),
		})
	}
	return record
}

// GetChat loads one chat by its chat id. Chats are keyed by the owning
// event's chat id, which is an opaque string rather than a document id.
func (s *Store) GetChat(ctx context.Context, chatID string) (storage.ChatRecord, error) {
	var doc chatDoc
	err := s.chats.FindOne(ctx, bson.M{"event_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ChatRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ChatRecord{}, fmt.Errorf("find chat: %w", err)
	}
	return chatFromDoc(doc), nil
}

// InsertChat stores a new chat document and returns its identifier.
func (s *Store) InsertChat(ctx context.Context, record storage.ChatRecord) (string, error) {
	doc := chatDoc{EventID: record.EventID}
	for _, message := range record.Messages {
		doc.Messages = append(doc.Messages, chatMessageDoc{
			Author:    message.Author,
			Message:   message.Message,
			Timestamp: message.Timestamp.UTC(),
		})
	}
	result, err := s.chats.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert chat: %w", err)
	}
	oid, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert chat: unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// AppendChatMessage pushes one message onto the chat's message list.
func (s *Store) AppendChatMessage(ctx context.Context, chatID string, message storage.ChatMessage) error {
	doc := chatMessageDoc{
		Author:    message.Author,
		Message:   message.Message,
		Timestamp: message.Timestamp.UTC(),
	}
	result, err := s.chats.UpdateOne(ctx, bson.M{"event_id": chatID}, bson.M{"$push": bson.M{"messages": doc}})
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
