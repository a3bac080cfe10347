package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	verrs "github.com/volunteerhub/eventms/internal/errors"
)

// Dispatcher routes decoded requests to their action handlers and hands
// every result to the emitter. Every structurally valid request with a
// request id produces exactly one response, whatever the handler does.
type Dispatcher struct {
	registry *Registry
	emitter  *Emitter
	tracer   trace.Tracer
}

// NewDispatcher constructs a dispatcher over the registry and emitter.
func NewDispatcher(registry *Registry, emitter *Emitter) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		emitter:  emitter,
		tracer:   otel.Tracer("eventms/coordinator"),
	}
}

// Dispatch processes one raw inbound message. It never fails outward:
// undecodable input is logged and dropped (no correlation token to answer
// on), and every other failure is converted into an error result that is
// still emitted.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) {
	inbound, err := DecodeInbound(raw)
	if err != nil {
		log.Printf("drop undecodable message: %v", err)
		return
	}
	if strings.TrimSpace(inbound.RequestID) == "" {
		log.Printf("drop message without request_id (action %q)", inbound.Action)
		return
	}

	ctx, span := d.tracer.Start(ctx, "coordinator.dispatch",
		trace.WithAttributes(attribute.String("eventms.action", inbound.Action)))
	defer span.End()

	result := d.execute(ctx, inbound.Action, inbound.Data)
	span.SetAttributes(attribute.String("eventms.status", string(result.Status)))

	if err := d.emitter.Emit(ctx, inbound.RequestID, result); err != nil {
		log.Printf("emit response for request %s: %v", inbound.RequestID, err)
	}
}

// execute resolves and invokes the handler, recovering panics at this
// boundary so a misbehaving handler cannot take down the consume loop.
func (d *Dispatcher) execute(ctx context.Context, action string, data json.RawMessage) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Printf("handler panic for action %q: %v", action, recovered)
			result = ErrorResult(action, fmt.Errorf("internal error handling action %q", action))
		}
	}()

	if strings.TrimSpace(action) == "" {
		return ErrorResult(action, verrs.New(verrs.CodeUnknownAction, "action is required"))
	}
	handler, ok := d.registry.Resolve(action)
	if !ok {
		return ErrorResult(action, verrs.New(verrs.CodeUnknownAction,
			fmt.Sprintf("unrecognized action %q", action)))
	}

	outcome, err := handler(ctx, data)
	if err != nil {
		log.Printf("action %q failed (%s): %v", action, verrs.GetCode(err).Kind(), err)
		return ErrorResult(action, err)
	}
	return SuccessResult(action, outcome)
}
