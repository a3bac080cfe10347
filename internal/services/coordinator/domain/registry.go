package domain

import (
	"context"
	"encoding/json"
	"sort"
)

// HandlerFunc executes one action's domain logic against stored state.
type HandlerFunc func(ctx context.Context, data json.RawMessage) (Outcome, error)

// Registry maps action names to their handlers. It is built once at startup
// and read-only afterwards.
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry binds the full action vocabulary to the domain services.
func NewRegistry(events *EventService, tasks *TaskService, chats *ChatService) *Registry {
	return &Registry{handlers: map[string]HandlerFunc{
		"create_event":             events.CreateEvent,
		"update_event":             events.UpdateEvent,
		"delete_event":             events.DeleteEvent,
		"register_volunteer":       events.RegisterVolunteer,
		"unregister_volunteer":     events.UnregisterVolunteer,
		"get_upcoming_events":      events.GetUpcomingEvents,
		"get_user_events":          events.GetUserEvents,
		"get_event_by_id":          events.GetEventByID,
		"get_event_by_title":       events.GetEventByTitle,
		"get_user_volunteer_count": events.GetUserVolunteerCount,

		"assign_task":                tasks.AssignTask,
		"update_task":                tasks.UpdateTask,
		"delete_task":                tasks.DeleteTask,
		"get_tasks_by_user":          tasks.GetTasksByUser,
		"get_tasks_by_event":         tasks.GetTasksByEvent,
		"get_task_by_id":             tasks.GetTaskByID,
		"add_task_comment":           tasks.AddTaskComment,
		"get_task_comments":          tasks.GetTaskComments,
		"add_task_attachment":        tasks.AddTaskAttachment,
		"remove_task_attachment":     tasks.RemoveTaskAttachment,
		"change_task_status":         tasks.ChangeTaskStatus,
		"get_tasks_assigned_by_user": tasks.GetTasksAssignedByUser,
		"get_task_attachments":       tasks.GetTaskAttachments,
		"delete_tasks_by_event_id":   tasks.DeleteTasksByEventID,

		"add_chat_message":  chats.AddChatMessage,
		"get_chat_messages": chats.GetChatMessages,
	}}
}

// Resolve returns the handler bound to action. The second return value
// distinguishes unknown actions from nil handlers.
func (r *Registry) Resolve(action string) (HandlerFunc, bool) {
	if r == nil {
		return nil, false
	}
	handler, ok := r.handlers[action]
	return handler, ok
}

// Actions lists the registered action names in sorted order.
func (r *Registry) Actions() []string {
	if r == nil {
		return nil
	}
	actions := make([]string, 0, len(r.handlers))
	for action := range r.handlers {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}
