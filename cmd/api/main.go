package main

import (
	"context"
	"log"
	"os"

	"signalcatch/internal/payment"
	"signalcatch/internal/routes"
	"signalcatch/internal/signalstats"
	"signalcatch/internal/stream"
	"signalcatch/pkg/chainindex"
	"signalcatch/pkg/config"
)

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := config.OpenDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer config.CloseDB(db)

	// Apply SQL migrations (partial indexes) on top of auto-migration
	if os.Getenv("RUN_MIGRATIONS") == "true" {
		if err := config.ExecuteMigrations(db); err != nil {
			log.Fatal("Failed to run migrations:", err)
		}
	}

	// Initialize RabbitMQ (optional, will log warning if not configured)
	var publisher payment.EventPublisher
	if os.Getenv("RABBITMQ_HOST") != "" {
		conn, err := config.ConnectRabbitMQ(cfg.RabbitURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer conn.Close()

		pub, err := config.NewPublisher(conn)
		if err != nil {
			log.Fatal("Failed to create publisher:", err)
		}
		defer pub.Close()
		publisher = pub

		log.Println("RabbitMQ initialized successfully")
	} else {
		log.Println("RabbitMQ not configured, membership events disabled")
	}

	indexer := chainindex.NewClient(cfg.IndexerBaseURL, cfg.IndexerAPIKey)
	payments := payment.NewService(db, cfg, indexer, publisher)
	stats := signalstats.NewService(db)

	hub := stream.NewHub(db)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Set up router
	r := routes.SetupRouter(&routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Payments: payments,
		Stats:    stats,
		Hub:      hub,
	})

	// Start server
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
