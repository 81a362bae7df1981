package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/onlinestore/fulfillment/internal/extern"
	"github.com/onlinestore/fulfillment/internal/stock"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/config"
	"github.com/onlinestore/fulfillment/pkg/rpc"
)

func main() {
	cfg := config.Load()

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
	consumer := stock.NewConsumer(extern.NewCatalogClient(rpcClient))
	if err := consumer.Subscribe(kafkaBus, cfg.StockGroup); err != nil {
		log.Fatalf("Failed to subscribe stock consumer: %v", err)
	}

	app := fiber.New()
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

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

	if err := app.Listen(cfg.StockHTTPAddr); err != nil {
		log.Fatalf("Failed to start stock service HTTP server: %v", err)
	}
}
