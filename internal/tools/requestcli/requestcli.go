// Package requestcli publishes a single coordinator request envelope, for
// exercising the request topic from the command line.
package requestcli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/volunteerhub/eventms/internal/platform/id"
)

// Config holds configuration for one published request.
type Config struct {
	Brokers   string
	Topic     string
	Action    string
	Data      string
	RequestID string
}

// Publisher sends one keyed message to the request topic.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		Brokers: "localhost:9092",
		Topic:   "event_requests",
		Data:    "{}",
	}
	fs.StringVar(&cfg.Brokers, "brokers", cfg.Brokers, "Comma-separated Kafka broker addresses")
	fs.StringVar(&cfg.Topic, "topic", cfg.Topic, "Kafka topic to publish the request to")
	fs.StringVar(&cfg.Action, "action", cfg.Action, "Action name for the request")
	fs.StringVar(&cfg.Data, "data", cfg.Data, "Action payload as a JSON object")
	fs.StringVar(&cfg.RequestID, "request-id", cfg.RequestID, "Correlation id (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BrokerList splits the configured broker addresses.
func (c Config) BrokerList() []string {
	var brokers []string
	for _, broker := range strings.Split(c.Brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

// Run publishes the request envelope and writes its correlation id to out.
func Run(ctx context.Context, cfg Config, out io.Writer, publisher Publisher) error {
	if strings.TrimSpace(cfg.Action) == "" {
		return errors.New("action is required")
	}
	if publisher == nil {
		return errors.New("publisher is required")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if !json.Valid([]byte(cfg.Data)) {
		return fmt.Errorf("data is not valid JSON: %s", cfg.Data)
	}

	requestID := strings.TrimSpace(cfg.RequestID)
	if requestID == "" {
		generated, err := id.NewID()
		if err != nil {
			return fmt.Errorf("generate request id: %w", err)
		}
		requestID = generated
	}

	envelope := map[string]any{
		"request_id": requestID,
		"message": map[string]any{
			"action": cfg.Action,
			"data":   json.RawMessage(cfg.Data),
		},
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := publisher.Publish(ctx, []byte(requestID), payload); err != nil {
		return fmt.Errorf("publish request: %w", err)
	}

	_, err = fmt.Fprintf(out, "published %s request %s\n", cfg.Action, requestID)
	return err
}
