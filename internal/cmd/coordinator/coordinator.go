// Package coordinator parses coordinator command flags and launches the
// coordinator runtime.
package coordinator

import (
	"context"
	"flag"
	"strings"

	entrypoint "github.com/volunteerhub/eventms/internal/platform/cmd"
	"github.com/volunteerhub/eventms/internal/services/coordinator/app"
)

// Config holds coordinator command configuration.
type Config struct {
	Port          int    `env:"EVENTMS_COORDINATOR_PORT" envDefault:"8087"`
	Brokers       string `env:"EVENTMS_KAFKA_BROKERS" envDefault:"localhost:9092"`
	RequestTopic  string `env:"EVENTMS_KAFKA_REQUEST_TOPIC" envDefault:"event_requests"`
	ResponseTopic string `env:"EVENTMS_KAFKA_RESPONSE_TOPIC" envDefault:"event_responses"`
	GroupID       string `env:"EVENTMS_KAFKA_GROUP_ID" envDefault:"event_ms"`
	MongoURI      string `env:"EVENTMS_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"EVENTMS_MONGO_DATABASE" envDefault:"events"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The coordinator health gRPC server port")
	fs.StringVar(&cfg.Brokers, "brokers", cfg.Brokers, "Comma-separated Kafka broker addresses")
	fs.StringVar(&cfg.RequestTopic, "request-topic", cfg.RequestTopic, "Kafka topic carrying inbound requests")
	fs.StringVar(&cfg.ResponseTopic, "response-topic", cfg.ResponseTopic, "Kafka topic carrying outbound responses")
	fs.StringVar(&cfg.GroupID, "group-id", cfg.GroupID, "Kafka consumer group id")
	fs.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection URI")
	fs.StringVar(&cfg.MongoDatabase, "mongo-database", cfg.MongoDatabase, "MongoDB database name")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
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

// Run starts the coordinator runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCoordinator, func(context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			Port:          cfg.Port,
			Brokers:       cfg.BrokerList(),
			RequestTopic:  cfg.RequestTopic,
			ResponseTopic: cfg.ResponseTopic,
			GroupID:       cfg.GroupID,
			MongoURI:      cfg.MongoURI,
			MongoDatabase: cfg.MongoDatabase,
		})
	})
}
