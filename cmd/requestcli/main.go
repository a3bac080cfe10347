package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/volunteerhub/eventms/internal/platform/config"
	platformkafka "github.com/volunteerhub/eventms/internal/platform/kafka"
	"github.com/volunteerhub/eventms/internal/tools/requestcli"
)

func main() {
	cfg, err := requestcli.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}

	writer, err := platformkafka.NewWriter(cfg.BrokerList(), cfg.Topic)
	if err != nil {
		config.Exitf("open writer: %v", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Printf("close writer: %v", err)
		}
	}()

	if err := requestcli.Run(context.Background(), cfg, os.Stdout, writer); err != nil {
		config.Exitf("publish request: %v", err)
	}
}
