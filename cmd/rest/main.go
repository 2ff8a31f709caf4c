package main

import (
	"context"
	"log"

	"leadpilot-be/internal/bootstrap"
	"leadpilot-be/internal/config"
	"leadpilot-be/internal/server"
	"leadpilot-be/internal/tracer"
	"leadpilot-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Orchestrator Consumer...")
		if err := container.OrchestratorService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()
	if err := container.FollowUpRunner.Start(context.Background()); err != nil {
		log.Printf("Follow-up Runner Error: %v", err)
	}
	defer container.FollowUpRunner.Stop()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
