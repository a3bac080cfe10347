package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// partitionKey is the constant routing key for every published response.
// Response consumers do not rely on per-request partitioning.
const partitionKey = "user"

// Publisher sends one serialized response to the outbound channel.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Emitter builds and publishes correlated response envelopes.
type Emitter struct {
	publisher Publisher
}

// NewEmitter constructs a response emitter over the given publisher.
func NewEmitter(publisher Publisher) *Emitter {
	return &Emitter{publisher: publisher}
}

// Emit publishes the response envelope for one handler result. The failure
// of a single publish is returned for logging; it never affects other
// requests.
func (e *Emitter) Emit(ctx context.Context, requestID string, result Result) error {
	if e == nil || e.publisher == nil {
		return fmt.Errorf("publisher is not configured")
	}
	payload, err := json.Marshal(NewResponse(requestID, result))
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := e.publisher.Publish(ctx, []byte(partitionKey), payload); err != nil {
		return fmt.Errorf("publish response: %w", err)
	}
	return nil
}
