package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/onlinestore/fulfillment/internal/model"
	"github.com/onlinestore/fulfillment/internal/shipping"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/config"
)

func main() {
	cfg := config.Load()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStartup()
	store, err := shipping.NewRedisStore(startupCtx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to initialize shipment store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing shipment store: %v", err)
		}
	}()

	kafkaBus, err := bus.NewKafka(cfg.KafkaBrokers, bus.LogAndDrop{})
	if err != nil {
		log.Fatalf("Failed to create Kafka bus: %v", err)
	}
	defer func() {
		if err := kafkaBus.Close(); err != nil {
			log.Printf("Error closing Kafka bus: %v", err)
		}
	}()

	consumer := shipping.NewConsumer(store)
	if err := consumer.Subscribe(kafkaBus, cfg.ShippingGroup); err != nil {
		log.Fatalf("Failed to subscribe shipping consumer: %v", err)
	}

	app := fiber.New()
	app.Get("/shipments/:id", func(c *fiber.Ctx) error {
		shipment, err := store.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			if model.IsNotFound(err) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(shipment)
	})
	app.Patch("/shipments/:id/status", func(c *fiber.Ctx) error {
		var req struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		shipment, err := consumer.UpdateStatus(c.UserContext(), c.Params("id"), model.ShipmentStatus(req.Status))
		if err != nil {
			if model.IsNotFound(err) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(shipment)
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

	if err := app.Listen(cfg.ShippingHTTPAddr); err != nil {
		log.Fatalf("Failed to start shipping service HTTP server: %v", err)
	}
}
