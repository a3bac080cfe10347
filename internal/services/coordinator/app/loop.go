package app

import (
	"context"
	"log"
	"time"

	platformkafka "github.com/volunteerhub/eventms/internal/platform/kafka"
)

const fetchRetryDelay = time.Second

// MessageSource supplies inbound request messages. Offsets are acknowledged
// explicitly after the response for a message has been emitted.
type MessageSource interface {
	Fetch(ctx context.Context) (platformkafka.Message, error)
	Commit(ctx context.Context, msg platformkafka.Message) error
}

// MessageDispatcher processes one raw request message to completion.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, raw []byte)
}

// Loop is the coordinator's consume loop: one message at a time, dispatched
// fully (including its response publish) before the next fetch. There is no
// cross-message ordering beyond what the bus's partitions provide.
type Loop struct {
	source     MessageSource
	dispatcher MessageDispatcher
}

// NewLoop constructs the consume loop.
func NewLoop(source MessageSource, dispatcher MessageDispatcher) *Loop {
	return &Loop{source: source, dispatcher: dispatcher}
}

// Run consumes until the context ends. A message already under dispatch
// when the context is cancelled still gets its response emitted and its
// offset committed before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	for {
		msg, err := l.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("fetch request: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		// Dispatch and commit run on a detached context so an in-flight
		// message drains cleanly during shutdown.
		workCtx := context.WithoutCancel(ctx)
		l.dispatcher.Dispatch(workCtx, msg.Value)
		if err := l.source.Commit(workCtx, msg); err != nil {
			log.Printf("commit offset for %s[%d]@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
