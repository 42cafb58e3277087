package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"autom8/config"
	"autom8/storage"
)

func main() {
	cfg, err := config.LoadStorage()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	if err := storage.Provision(context.Background(), cfg.StorageConnectionString, storage.Tables{
		Team:        cfg.TeamTable,
		Projects:    cfg.ProjectsTable,
		Tasks:       cfg.TasksTable,
		EventsQueue: cfg.EventsQueue,
	}); err != nil {
		log.Fatalf("provision: %v", err)
	}

	log.Info("storage init complete")
}
