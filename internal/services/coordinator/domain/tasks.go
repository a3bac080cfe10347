package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	verrs "github.com/volunteerhub/eventms/internal/errors"
	"github.com/volunteerhub/eventms/internal/services/coordinator/storage"
)

const defaultTaskStatus = "assigned"

// taskUpdateFields are the keys a partial task update may set. Comments,
// creator, and creation time are immutable through this path.
var taskUpdateFields = map[string]bool{
	"title":       true,
	"description": true,
	"deadline":    true,
	"assigned_to": true,
	"event_id":    true,
	"status":      true,
	"attachments": true,
}

var taskTimeFields = map[string]bool{
	"deadline": true,
}

// TaskService implements the volunteer task actions. Task fan-out follows
// the assignment relationship: results flow to the assignee on creation and
// to "the other party" on comments and attachments.
type TaskService struct {
	store storage.TaskStore
	clock func() time.Time
}

// NewTaskService constructs task domain use-cases.
func NewTaskService(store storage.TaskStore, clock func() time.Time) *TaskService {
	if clock == nil {
		clock = time.Now
	}
	return &TaskService{store: store, clock: clock}
}

func taskStorageError(op, taskID string, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		return verrs.Wrap(verrs.CodeTaskInvalidID,
			fmt.Sprintf("task id %q is not a valid identifier", taskID), err)
	case errors.Is(err, storage.ErrNotFound):
		return verrs.Wrap(verrs.CodeTaskNotFound,
			fmt.Sprintf("task with id %s not found", taskID), err)
	default:
		return verrs.Wrap(verrs.CodeStorage, fmt.Sprintf("%s: %v", op, err), err)
	}
}

// otherParty resolves the fan-out target for a task interaction: the
// creator when the actor is the assignee, otherwise the assignee.
func otherParty(task storage.TaskRecord, actorID string) []string {
	target := task.AssignedTo
	if actorID == task.AssignedTo {
		target = task.CreatedBy
	}
	if target == "" {
		return nil
	}
	return []string{target}
}

type assignTaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	AssignedTo  string     `json:"assigned_to"`
	EventID     string     `json:"event_id"`
	Status      string     `json:"status"`
	Attachments []string   `json:"attachments"`
	CreatedBy   string     `json:"created_by"`
}

// AssignTask validates and stores a new task, forwarding it to the assignee.
func (s *TaskService) AssignTask(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input assignTaskInput
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}

	var missing []string
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(input.AssignedTo) == "" {
		missing = append(missing, "assigned_to")
	}
	if len(missing) > 0 {
		return Outcome{}, verrs.New(verrs.CodeValidation,
			"invalid task payload: missing fields "+strings.Join(missing, ", "))
	}

	now := s.clock().UTC()
	status := input.Status
	if status == "" {
		status = defaultTaskStatus
	}
	attachments := input.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	record := storage.TaskRecord{
		Title:       input.Title,
		Description: input.Description,
		AssignedTo:  input.AssignedTo,
		EventID:     input.EventID,
		Status:      status,
		Attachments: attachments,
		Comments:    []storage.TaskComment{},
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Deadline != nil {
		deadline := input.Deadline.UTC()
		record.Deadline = &deadline
	}

	taskID, err := s.store.InsertTask(ctx, record)
	if err != nil {
		return Outcome{}, taskStorageError("assign task", "", err)
	}
	record.ID = taskID

	return Outcome{
		Fields:    map[string]any{"task": record},
		ForwardTo: []string{input.AssignedTo},
	}, nil
}

// UpdateTask applies a partial update to an existing task.
func (s *TaskService) UpdateTask(ctx context.Context, data json.RawMessage) (Outcome, error) {
	raw, err := decodeFields(data)
	if err != nil {
		return Outcome{}, err
	}
	taskID, _ := raw["_id"].(string)
	if strings.TrimSpace(taskID) == "" {
		return Outcome{}, verrs.New(verrs.CodeTaskIDRequired, "task _id is required")
	}

	fields, err := filterUpdateFields(raw, taskUpdateFields, taskTimeFields)
	if err != nil {
		return Outcome{}, err
	}
	fields["updated_at"] = s.clock().UTC()

	if err := s.store.SetTaskFields(ctx, taskID, fields); err != nil {
		return Outcome{}, taskStorageError("update task", taskID, err)
	}

	updated := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		updated[key] = value
	}
	updated["_id"] = taskID

	return Outcome{Fields: map[string]any{"updated_task": updated}}, nil
}

// DeleteTask removes one task by identifier.
func (s *TaskService) DeleteTask(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		ID string `json:"_id"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.ID) == "" {
		return Outcome{}, verrs.New(verrs.CodeTaskIDRequired, "task _id is required")
	}

	if err := s.store.DeleteTask(ctx, input.ID); err != nil {
		return Outcome{}, taskStorageError("delete task", input.ID, err)
	}
	return Outcome{Fields: map[string]any{"_id": input.ID}}, nil
}

// DeleteTasksByEventID removes every task bound to an event.
func (s *TaskService) DeleteTasksByEventID(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		EventID string `json:"_id"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.EventID) == "" {
		return Outcome{}, verrs.New(verrs.CodeEventIDRequired, "event _id is required")
	}

	deleted, err := s.store.DeleteTasksByEvent(ctx, input.EventID)
	if err != nil {
		return Outcome{}, taskStorageError("delete tasks by event", "", err)
	}
	return Outcome{Fields: map[string]any{
		"deleted_count": deleted,
		"event_id":      input.EventID,
	}}, nil
}

// GetTasksByUser lists the tasks assigned to a user, earliest deadline first.
func (s *TaskService) GetTasksByUser(ctx context.Context, data json.RawMessage) (Outcome, error) {
	return s.listTasks(ctx, data, "user_id", s.store.ListTasksByAssignee)
}

// GetTasksAssignedByUser lists the tasks a user handed out.
func (s *TaskService) GetTasksAssignedByUser(ctx context.Context, data json.RawMessage) (Outcome, error) {
	return s.listTasks(ctx, data, "user_id", s.store.ListTasksByCreator)
}

// GetTasksByEvent lists an event's tasks, earliest deadline first.
func (s *TaskService) GetTasksByEvent(ctx context.Context, data json.RawMessage) (Outcome, error) {
	return s.listTasks(ctx, data, "event_id", s.store.ListTasksByEvent)
}

func (s *TaskService) listTasks(ctx context.Context, data json.RawMessage, key string, list func(context.Context, string) ([]storage.TaskRecord, error)) (Outcome, error) {
	raw, err := decodeFields(data)
	if err != nil {
		return Outcome{}, err
	}
	value, _ := raw[key].(string)
	if strings.TrimSpace(value) == "" {
		return Outcome{}, verrs.New(verrs.CodeValidation, key+" is required")
	}

	tasks, err := list(ctx, value)
	if err != nil {
		return Outcome{}, taskStorageError("list tasks", "", err)
	}
	if tasks == nil {
		tasks = []storage.TaskRecord{}
	}
	return Outcome{Fields: map[string]any{"tasks": tasks}}, nil
}

// GetTaskByID loads one task by identifier.
func (s *TaskService) GetTaskByID(ctx context.Context, data json.RawMessage) (Outcome, error) {
	input, err := s.decodeTaskIDInput(data)
	if err != nil {
		return Outcome{}, err
	}
	task, err := s.store.GetTask(ctx, input)
	if err != nil {
		return Outcome{}, taskStorageError("get task", input, err)
	}
	return Outcome{Fields: map[string]any{"task": task}}, nil
}

func (s *TaskService) decodeTaskIDInput(data json.RawMessage) (string, error) {
	var input struct {
		TaskID string `json:"task_id"`
	}
	if err := decodePayload(data, &input); err != nil {
		return "", err
	}
	if strings.TrimSpace(input.TaskID) == "" {
		return "", verrs.New(verrs.CodeTaskIDRequired, "task_id is required")
	}
	return input.TaskID, nil
}

type taskCommentInput struct {
	TaskID      string   `json:"task_id"`
	UserID      string   `json:"user_id"`
	Text        string   `json:"text"`
	Attachments []string `json:"attachments"`
}

// AddTaskComment appends a comment to a task and forwards the result to the
// other party of the assignment.
func (s *TaskService) AddTaskComment(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input taskCommentInput
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.TaskID) == "" || strings.TrimSpace(input.UserID) == "" || strings.TrimSpace(input.Text) == "" {
		return Outcome{}, verrs.New(verrs.CodeValidation,
			"task_id, user_id, and text are required")
	}

	task, err := s.store.GetTask(ctx, input.TaskID)
	if err != nil {
		return Outcome{}, taskStorageError("add task comment", input.TaskID, err)
	}

	attachments := input.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	comment := storage.TaskComment{
		UserID:      input.UserID,
		Text:        input.Text,
		Attachments: attachments,
		CreatedAt:   s.clock().UTC(),
		TaskID:      input.TaskID,
	}
	if err := s.store.AppendTaskComment(ctx, input.TaskID, comment); err != nil {
		if errors.Is(err, storage.ErrNotModified) {
			return Outcome{}, verrs.Wrap(verrs.CodeTaskNotModified,
				"comment was not added", err)
		}
		return Outcome{}, taskStorageError("add task comment", input.TaskID, err)
	}

	return Outcome{
		Fields:    map[string]any{"comment": comment},
		ForwardTo: otherParty(task, input.UserID),
	}, nil
}

// GetTaskComments returns a task's comment list.
func (s *TaskService) GetTaskComments(ctx context.Context, data json.RawMessage) (Outcome, error) {
	taskID, err := s.decodeTaskIDInput(data)
	if err != nil {
		return Outcome{}, err
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return Outcome{}, taskStorageError("get task comments", taskID, err)
	}
	comments := task.Comments
	if comments == nil {
		comments = []storage.TaskComment{}
	}
	return Outcome{Fields: map[string]any{"comments": comments}}, nil
}

type taskAttachmentInput struct {
	TaskID      string   `json:"task_id"`
	UserID      string   `json:"user_id"`
	Attachments []string `json:"attachments"`
}

// AddTaskAttachment appends attachment references to a task and forwards the
// result to the other party of the assignment.
func (s *TaskService) AddTaskAttachment(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input taskAttachmentInput
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.TaskID) == "" || len(input.Attachments) == 0 {
		return Outcome{}, verrs.New(verrs.CodeValidation,
			"task_id and attachments are required")
	}

	if err := s.store.AppendTaskAttachments(ctx, input.TaskID, input.Attachments); err != nil {
		if errors.Is(err, storage.ErrNotModified) {
			return Outcome{}, verrs.Wrap(verrs.CodeTaskNotModified,
				"attachments were not added", err)
		}
		return Outcome{}, taskStorageError("add task attachments", input.TaskID, err)
	}

	task, err := s.store.GetTask(ctx, input.TaskID)
	if err != nil {
		return Outcome{}, taskStorageError("add task attachments", input.TaskID, err)
	}

	return Outcome{
		Fields: map[string]any{
			"task_id":     input.TaskID,
			"details":     fmt.Sprintf("%d attachments added", len(input.Attachments)),
			"attachments": input.Attachments,
		},
		ForwardTo: otherParty(task, input.UserID),
	}, nil
}

// RemoveTaskAttachment pulls attachment references off a task.
func (s *TaskService) RemoveTaskAttachment(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input taskAttachmentInput
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.TaskID) == "" || len(input.Attachments) == 0 {
		return Outcome{}, verrs.New(verrs.CodeValidation,
			"task_id and attachments are required")
	}

	if err := s.store.RemoveTaskAttachments(ctx, input.TaskID, input.Attachments); err != nil {
		return Outcome{}, taskStorageError("remove task attachments", input.TaskID, err)
	}
	return Outcome{Fields: map[string]any{"removed": input.Attachments}}, nil
}

// ChangeTaskStatus updates a task's workflow status.
func (s *TaskService) ChangeTaskStatus(ctx context.Context, data json.RawMessage) (Outcome, error) {
	var input struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	if err := decodePayload(data, &input); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(input.TaskID) == "" || strings.TrimSpace(input.Status) == "" {
		return Outcome{}, verrs.New(verrs.CodeValidation,
			"task_id and status are required")
	}

	if err := s.store.SetTaskStatus(ctx, input.TaskID, input.Status); err != nil {
		if errors.Is(err, storage.ErrNotModified) {
			return Outcome{}, verrs.Wrap(verrs.CodeTaskNotModified,
				"status is already set", err)
		}
		return Outcome{}, taskStorageError("change task status", input.TaskID, err)
	}

	return Outcome{Fields: map[string]any{
		"task_id":    input.TaskID,
		"new_status": input.Status,
	}}, nil
}

// GetTaskAttachments returns a task's attachment references.
func (s *TaskService) GetTaskAttachments(ctx context.Context, data json.RawMessage) (Outcome, error) {
	taskID, err := s.decodeTaskIDInput(data)
	if err != nil {
		return Outcome{}, err
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return Outcome{}, taskStorageError("get task attachments", taskID, err)
	}
	attachments := task.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return Outcome{Fields: map[string]any{"attachments": attachments}}, nil
}
