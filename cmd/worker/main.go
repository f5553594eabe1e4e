package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"signalcatch/internal/ingest"
	"signalcatch/internal/payment"
	"signalcatch/pkg/chainindex"
	"signalcatch/pkg/config"

	"github.com/robfig/cron/v3"
	logrus "github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	cfg := config.Load()

	// Initialize database
	db, err := config.OpenDB()
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer config.CloseDB(db)

	var publisher payment.EventPublisher
	var msgConsumer *config.Consumer
	if os.Getenv("RABBITMQ_HOST") != "" {
		conn, err := config.ConnectRabbitMQ(cfg.RabbitURL)
		if err != nil {
			logrus.Fatal("Failed to connect to RabbitMQ: ", err)
		}
		defer conn.Close()

		pub, err := config.NewPublisher(conn)
		if err != nil {
			logrus.Fatal("Failed to create publisher: ", err)
		}
		defer pub.Close()
		publisher = pub

		msgConsumer, err = config.NewConsumer(conn, ingest.SignalQueue)
		if err != nil {
			logrus.Fatal("Failed to create consumer: ", err)
		}
		defer msgConsumer.Close()
	} else {
		logrus.Warn("RabbitMQ not configured, signal ingestion disabled")
	}

	indexer := chainindex.NewClient(cfg.IndexerBaseURL, cfg.IndexerAPIKey)
	payments := payment.NewService(db, cfg, indexer, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduled payment reconciliation jobs
	c := cron.New()

	c.AddFunc("@every 1m", func() {
		if err := payments.CheckPayments(ctx); err != nil {
			logrus.Errorf("payment check run failed: %v", err)
		}
	})

	c.AddFunc("@every 5m", func() {
		if err := payments.ProcessWithdrawals(); err != nil {
			logrus.Errorf("withdrawal processing run failed: %v", err)
		}
	})

	c.AddFunc("@every 10m", func() {
		n, err := payments.ExpireStaleOrders()
		if err != nil {
			logrus.Errorf("order expiry sweep failed: %v", err)
			return
		}
		if n > 0 {
			logrus.Infof("expired %d stale orders", n)
		}
	})

	c.Start()
	defer c.Stop()

	// Start consuming ingestion messages
	if msgConsumer != nil {
		go func() {
			err := msgConsumer.Consume(func(msg []byte) error {
				return ingest.HandleMessage(db, msg)
			})
			if err != nil {
				logrus.Errorf("consumer stopped: %v", err)
			}
		}()
	}

	logrus.Info("Worker started, waiting for messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Worker shutting down")
}
