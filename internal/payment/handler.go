package payment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/onlinestore/fulfillment/pkg/rpc"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRPC(mux *rpc.Mux) {
	mux.Handle("create", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var dto CreatePaymentDTO
		if err := json.Unmarshal(payload, &dto); err != nil {
			return nil, &rpc.RemoteError{StatusCode: 400, Message: err.Error()}
		}
		return h.svc.Create(ctx, dto)
	})

	mux.Handle("findOne", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &rpc.RemoteError{StatusCode: 400, Message: err.Error()}
		}
		return h.svc.FindOne(ctx, req.ID)
	})

	mux.Handle("findByOrder", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			OrderID string `json:"orderId"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &rpc.RemoteError{StatusCode: 400, Message: err.Error()}
		}
		return h.svc.FindByOrder(ctx, req.OrderID)
	})

	mux.Handle("update", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			ID string `json:"id"`
			UpdatePaymentDTO
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &rpc.RemoteError{StatusCode: 400, Message: err.Error()}
		}
		return h.svc.Update(ctx, req.ID, req.UpdatePaymentDTO)
	})

	mux.Handle("processPayment", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &rpc.RemoteError{StatusCode: 400, Message: err.Error()}
		}
		return h.svc.ProcessPayment(ctx, req.ID)
	})

	mux.Handle("remove", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &rpc.RemoteError{StatusCode: 400, Message: err.Error()}
		}
		if err := h.svc.Remove(ctx, req.ID); err != nil {
			return nil, err
		}
		return fiber.Map{"deleted": req.ID}, nil
	})
}

func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/payments", h.create)
	router.Get("/payments/:id", h.findOne)
	router.Get("/payments/order/:orderId", h.findByOrder)
	router.Patch("/payments/:id", h.update)
	router.Post("/payments/:id/process", h.process)
	router.Delete("/payments/:id", h.remove)
}

func (h *Handler) create(c *fiber.Ctx) error {
	var dto CreatePaymentDTO
	if err := c.BodyParser(&dto); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	payment, err := h.svc.Create(c.UserContext(), dto)
	if err != nil {
		return asHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

func (h *Handler) findOne(c *fiber.Ctx) error {
	payment, err := h.svc.FindOne(c.UserContext(), c.Params("id"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(payment)
}

func (h *Handler) findByOrder(c *fiber.Ctx) error {
	payments, err := h.svc.FindByOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(payments)
}

func (h *Handler) update(c *fiber.Ctx) error {
	var dto UpdatePaymentDTO
	if err := c.BodyParser(&dto); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	payment, err := h.svc.Update(c.UserContext(), c.Params("id"), dto)
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(payment)
}

func (h *Handler) process(c *fiber.Ctx) error {
	payment, err := h.svc.ProcessPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(payment)
}

func (h *Handler) remove(c *fiber.Ctx) error {
	if err := h.svc.Remove(c.UserContext(), c.Params("id")); err != nil {
		return asHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func asHTTPError(err error) error {
	var re *rpc.RemoteError
	if errors.As(err, &re) {
		return fiber.NewError(re.StatusCode, re.Message)
	}
	if errors.Is(err, rpc.ErrUnavailable) {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return fiber.NewError(sc.StatusCode(), err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
