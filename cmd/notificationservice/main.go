package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/onlinestore/fulfillment/internal/extern"
	"github.com/onlinestore/fulfillment/internal/notification"
	"github.com/onlinestore/fulfillment/pkg/bus"
	"github.com/onlinestore/fulfillment/pkg/config"
	"github.com/onlinestore/fulfillment/pkg/mailer"
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
	consumer := notification.NewConsumer(
		mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom),
		extern.NewUserClient(rpcClient),
		extern.NewOrderClient(rpcClient),
	)
	if err := consumer.Subscribe(kafkaBus, cfg.NotificationGroup); err != nil {
		log.Fatalf("Failed to subscribe notification consumer: %v", err)
	}

	app := fiber.New()
	app.Post("/notifications/welcome", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := consumer.SendWelcome(req.Email); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"message": "Welcome email sent successfully"})
	})
	app.Post("/notifications/password-reset", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
			Token string `json:"token"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := consumer.SendPasswordReset(req.Email, req.Token); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"message": "Password reset email sent successfully"})
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

	if err := app.Listen(cfg.NotificationHTTPAddr); err != nil {
		log.Fatalf("Failed to start notification service HTTP server: %v", err)
	}
}
