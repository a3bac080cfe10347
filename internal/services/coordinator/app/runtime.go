// Package app wires the coordinator runtime: the MongoDB store, the Kafka
// request/response topics, the action registry, and the consume loop.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	platformkafka "github.com/volunteerhub/eventms/internal/platform/kafka"
	"github.com/volunteerhub/eventms/internal/services/coordinator/domain"
	mongostore "github.com/volunteerhub/eventms/internal/services/coordinator/storage/mongo"
)

// RuntimeConfig controls coordinator startup and its external collaborators.
type RuntimeConfig struct {
	Port          int
	Brokers       []string
	RequestTopic  string
	ResponseTopic string
	GroupID       string
	MongoURI      string
	MongoDatabase string
}

const (
	defaultCoordinatorPort = 8087
	defaultRequestTopic    = "event_requests"
	defaultResponseTopic   = "event_responses"
	defaultGroupID         = "event_ms"
	defaultMongoDatabase   = "events"
)

// Run starts the coordinator's dependencies and consumes requests until the
// context ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	if strings.TrimSpace(cfg.MongoURI) == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultCoordinatorPort
	}
	if strings.TrimSpace(cfg.RequestTopic) == "" {
		cfg.RequestTopic = defaultRequestTopic
	}
	if strings.TrimSpace(cfg.ResponseTopic) == "" {
		cfg.ResponseTopic = defaultResponseTopic
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		cfg.GroupID = defaultGroupID
	}
	if strings.TrimSpace(cfg.MongoDatabase) == "" {
		cfg.MongoDatabase = defaultMongoDatabase
	}

	store, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("open mongo store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(context.Background()); closeErr != nil {
			log.Printf("close mongo store: %v", closeErr)
		}
	}()

	reader, err := platformkafka.NewReader(cfg.Brokers, cfg.GroupID, cfg.RequestTopic)
	if err != nil {
		return fmt.Errorf("open request reader: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			log.Printf("close request reader: %v", closeErr)
		}
	}()

	writer, err := platformkafka.NewWriter(cfg.Brokers, cfg.ResponseTopic)
	if err != nil {
		return fmt.Errorf("open response writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil {
			log.Printf("close response writer: %v", closeErr)
		}
	}()

	events := domain.NewEventService(store, nil)
	tasks := domain.NewTaskService(store, nil)
	chats := domain.NewChatService(store, store, nil)
	registry := domain.NewRegistry(events, tasks, chats)
	dispatcher := domain.NewDispatcher(registry, domain.NewEmitter(writer))

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on coordinator port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("coordinator.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("coordinator health server listening at %v", listener.Addr())
	log.Printf("consuming %s as group %s (%d actions registered)",
		cfg.RequestTopic, cfg.GroupID, len(registry.Actions()))
	return NewLoop(reader, dispatcher).Run(ctx)
}
