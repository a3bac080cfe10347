// Package errors provides structured domain errors with machine-readable
// codes. Handler failures carry a code so responses and logs can classify
// the failure without parsing message text.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unexpected internal failure.
	CodeUnknown Code = "UNKNOWN"

	// Dispatch errors
	CodeUnknownAction Code = "UNKNOWN_ACTION"
	CodeValidation    Code = "VALIDATION_FAILED"

	// Event errors
	CodeEventNotFound        Code = "EVENT_NOT_FOUND"
	CodeEventIDRequired      Code = "EVENT_ID_REQUIRED"
	CodeEventInvalidID       Code = "EVENT_INVALID_ID"
	CodeAlreadyRegistered    Code = "VOLUNTEER_ALREADY_REGISTERED"
	CodeNotRegistered        Code = "VOLUNTEER_NOT_REGISTERED"
	CodeVolunteerLimit       Code = "VOLUNTEER_LIMIT_REACHED"
	CodeVolunteerUpdateLost  Code = "VOLUNTEER_UPDATE_NOT_APPLIED"

	// Task errors
	CodeTaskNotFound    Code = "TASK_NOT_FOUND"
	CodeTaskIDRequired  Code = "TASK_ID_REQUIRED"
	CodeTaskInvalidID   Code = "TASK_INVALID_ID"
	CodeTaskNotModified Code = "TASK_NOT_MODIFIED"

	// Chat errors
	CodeChatIDRequired Code = "CHAT_ID_REQUIRED"
	CodeChatInvalidID  Code = "CHAT_INVALID_ID"

	// Storage errors
	CodeStorage Code = "STORAGE_FAILURE"
)

// Kind groups codes into the error taxonomy used by dispatch reporting.
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindBusiness   Kind = "business_rule"
	KindStorage    Kind = "storage"
)

// Kind classifies a code for logging and telemetry.
func (c Code) Kind() Kind {
	switch c {
	case CodeUnknownAction, CodeValidation,
		CodeEventIDRequired, CodeEventInvalidID,
		CodeTaskIDRequired, CodeTaskInvalidID,
		CodeChatIDRequired, CodeChatInvalidID:
		return KindValidation
	case CodeEventNotFound, CodeTaskNotFound:
		return KindNotFound
	case CodeAlreadyRegistered, CodeNotRegistered, CodeVolunteerLimit,
		CodeVolunteerUpdateLost, CodeTaskNotModified:
		return KindBusiness
	case CodeStorage:
		return KindStorage
	default:
		return KindUnknown
	}
}
