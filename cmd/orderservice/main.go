package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/onlinestore/fulfillment/internal/extern"
	"github.com/onlinestore/fulfillment/internal/order"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/config"
	"github.com/onlinestore/fulfillment/pkg/rpc"
)

func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.OrderDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to order database: %v", err)
	}
	repo, err := order.NewGormRepository(db)
	if err != nil {
		log.Fatalf("Failed to migrate order schema: %v", err)
	}

	kafkaBus, err := bus.NewKafka(cfg.KafkaBrokers, bus.LogAndDrop{})
	if err != nil {
		log.Fatalf("Failed to create Kafka bus: %v", err)
	}
	defer func() {
		if err := kafkaBus.Close(); err != nil {
			log.Printf("Error closing Kafka bus: %v", err)
		}
	}()

	rpcClient := rpc.NewHTTPClient(cfg.Endpoints(), cfg.RPCTimeout)
	svc := order.NewService(
		repo,
		extern.NewUserClient(rpcClient),
		extern.NewCatalogClient(rpcClient),
		kafkaBus,
	)
	handler := order.NewHandler(svc)

	mux := rpc.NewMux("orders")
	handler.RegisterRPC(mux)

	app := fiber.New()
	app.Use(logger.New())
	rpc.Attach(app, mux)
	handler.RegisterRoutes(app)

	ctx, cancel := context.WithCancel(context.Background())
	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigterm
		log.Println("Termination signal received. Initiating shutdown...")
		cancel()
		_ = app.Shutdown()
	}()
	go kafkaBus.Run(ctx)

	if err := app.Listen(cfg.OrderHTTPAddr); err != nil {
		log.Fatalf("Failed to start order service HTTP server: %v", err)
	}
}
