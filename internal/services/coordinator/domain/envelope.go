// Package domain implements the coordinator's request/response protocol:
// action dispatch, correlated response envelopes, and per-handler fan-out.
package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome discriminator every handler result carries.
type Status string

const (
	// StatusSuccess marks a completed handler result.
	StatusSuccess Status = "success"
	// StatusError marks a failed handler result.
	StatusError Status = "error"
)

// Inbound is one decoded request envelope. RequestID is an opaque
// correlation token threaded through to the response unchanged.
type Inbound struct {
	RequestID string
	Action    string
	Data      json.RawMessage
}

type inboundEnvelope struct {
	RequestID string          `json:"request_id"`
	Message   json.RawMessage `json:"message"`
}

type inboundMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
	Body   json.RawMessage `json:"body"`
}

// DecodeInbound parses one raw request envelope. Some legacy producers wrap
// the action message in an extra `body` object; exactly one level of that
// wrapping is unwrapped here.
func DecodeInbound(raw []byte) (Inbound, error) {
	var envelope inboundEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Inbound{}, fmt.Errorf("decode envelope: %w", err)
	}

	var message inboundMessage
	if len(envelope.Message) > 0 {
		if err := json.Unmarshal(envelope.Message, &message); err != nil {
			return Inbound{}, fmt.Errorf("decode message: %w", err)
		}
		if len(message.Body) > 0 {
			if err := json.Unmarshal(message.Body, &message); err != nil {
				return Inbound{}, fmt.Errorf("decode message body: %w", err)
			}
		}
	}

	data := message.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return Inbound{
		RequestID: envelope.RequestID,
		Action:    message.Action,
		Data:      data,
	}, nil
}

// Outcome is the payload a handler returns on success. ForwardTo names
// additional recipients for this result; OnlyForward, when set, tells
// downstream routing whether the original requester should be skipped.
// Both are propagated verbatim, never interpreted here.
type Outcome struct {
	Fields      map[string]any
	ForwardTo   []string
	OnlyForward *bool
}

// Result is the uniform shape every dispatched action produces.
type Result struct {
	Action      string
	Status      Status
	Fields      map[string]any
	ForwardTo   []string
	OnlyForward *bool
}

// MarshalJSON renders the result as {"action": ..., "message": {...}} with
// status, payload fields, and any fan-out metadata in the message body.
func (r Result) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Fields)+3)
	for key, value := range r.Fields {
		body[key] = value
	}
	body["status"] = string(r.Status)
	if len(r.ForwardTo) > 0 {
		body["forward_to"] = r.ForwardTo
	}
	if r.OnlyForward != nil {
		body["only_forward"] = *r.OnlyForward
	}
	return json.Marshal(struct {
		Action  string         `json:"action"`
		Message map[string]any `json:"message"`
	}{Action: r.Action, Message: body})
}

// UnmarshalJSON reverses MarshalJSON, splitting status and fan-out metadata
// back out of the message body.
func (r *Result) UnmarshalJSON(raw []byte) error {
	var wire struct {
		Action  string         `json:"action"`
		Message map[string]any `json:"message"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	result := Result{Action: wire.Action, Fields: make(map[string]any)}
	for key, value := range wire.Message {
		switch key {
		case "status":
			status, ok := value.(string)
			if !ok {
				return fmt.Errorf("result status must be a string, got %T", value)
			}
			result.Status = Status(status)
		case "forward_to":
			recipients, ok := value.([]any)
			if !ok {
				return fmt.Errorf("forward_to must be a list, got %T", value)
			}
			result.ForwardTo = make([]string, 0, len(recipients))
			for _, recipient := range recipients {
				id, ok := recipient.(string)
				if !ok {
					return fmt.Errorf("forward_to entry must be a string, got %T", recipient)
				}
				result.ForwardTo = append(result.ForwardTo, id)
			}
		case "only_forward":
			flag, ok := value.(bool)
			if !ok {
				return fmt.Errorf("only_forward must be a boolean, got %T", value)
			}
			result.OnlyForward = &flag
		default:
			result.Fields[key] = value
		}
	}
	*r = result
	return nil
}

// Response is the correlated envelope published for one request. Fan-out
// metadata is lifted out of the embedded result so downstream routing does
// not descend into the body; the top-level fields appear only when the
// handler populated them.
type Response struct {
	RequestID   string   `json:"request_id"`
	Message     Result   `json:"message"`
	ForwardTo   []string `json:"forward_to,omitempty"`
	OnlyForward *bool    `json:"only_forward,omitempty"`
}

// NewResponse builds the response envelope for one handler result.
func NewResponse(requestID string, result Result) Response {
	response := Response{RequestID: requestID, Message: result}
	if len(result.ForwardTo) > 0 {
		response.ForwardTo = result.ForwardTo
	}
	if result.OnlyForward != nil {
		response.OnlyForward = result.OnlyForward
	}
	return response
}

// SuccessResult packages a handler outcome under the given action.
func SuccessResult(action string, outcome Outcome) Result {
	fields := outcome.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return Result{
		Action:      action,
		Status:      StatusSuccess,
		Fields:      fields,
		ForwardTo:   outcome.ForwardTo,
		OnlyForward: outcome.OnlyForward,
	}
}

// ErrorResult packages a handler failure under the given action. The error
// text becomes the human-readable details field of the result body.
func ErrorResult(action string, err error) Result {
	details := "unknown error"
	if err != nil {
		details = err.Error()
	}
	return Result{
		Action: action,
		Status: StatusError,
		Fields: map[string]any{"details": details},
	}
}
