// Package kafka wraps the shared Kafka transport used by services: a
// consumer-group reader with manual offset commits and a keyed writer.
package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

const (
	defaultMinBytes = 1
	defaultMaxBytes = 10 << 20
	defaultMaxWait  = time.Second
)

// Message is one record fetched from a topic.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte

	raw kafkago.Message
}

// Reader consumes one topic as part of a consumer group. Offsets are
// committed explicitly so a message is only acknowledged after its response
// has been emitted.
type Reader struct {
	reader *kafkago.Reader
}

// NewReader opens a consumer-group reader for the given topic.
func NewReader(brokers []string, groupID, topic string) (*Reader, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if strings.TrimSpace(groupID) == "" {
		return nil, fmt.Errorf("consumer group id is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    defaultMinBytes,
		MaxBytes:    defaultMaxBytes,
		MaxWait:     defaultMaxWait,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: reader}, nil
}

// Fetch blocks until one message is available or the context ends. The
// returned message must be passed back to Commit once processed.
func (r *Reader) Fetch(ctx context.Context) (Message, error) {
	if r == nil || r.reader == nil {
		return Message{}, fmt.Errorf("reader is not configured")
	}
	raw, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("fetch message: %w", err)
	}
	return Message{
		Topic:     raw.Topic,
		Partition: raw.Partition,
		Offset:    raw.Offset,
		Key:       raw.Key,
		Value:     raw.Value,
		raw:       raw,
	}, nil
}

// Commit acknowledges one fetched message's offset.
func (r *Reader) Commit(ctx context.Context, msg Message) error {
	if r == nil || r.reader == nil {
		return fmt.Errorf("reader is not configured")
	}
	if err := r.reader.CommitMessages(ctx, msg.raw); err != nil {
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

// Close releases the reader's connections and leaves the consumer group.
func (r *Reader) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// Writer publishes keyed messages to one topic.
type Writer struct {
	writer *kafkago.Writer
}

// NewWriter opens a writer for the given topic.
func NewWriter(brokers []string, topic string) (*Writer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: writer}, nil
}

// Publish writes one keyed message and waits for broker acknowledgment.
func (w *Writer) Publish(ctx context.Context, key, value []byte) error {
	if w == nil || w.writer == nil {
		return fmt.Errorf("writer is not configured")
	}
	err := w.writer.WriteMessages(ctx, kafkago.Message{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close flushes and releases the writer's connections.
func (w *Writer) Close() error {
	if w == nil || w.writer == nil {
		return nil
	}
	return w.writer.Close()
}
