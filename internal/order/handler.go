package order

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/onlinestore/fulfillment/internal/model"
	"github.com/onlinestore/fulfillment/pkg/rpc"
)

// Handler exposes the order service over its two thin surfaces: RPC commands
// for peers and REST routes for the gateway.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRPC wires the order commands onto the service's mux.
func (h *Handler) RegisterRPC(mux *rpc.Mux) {
	mux.Handle("create", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var dto CreateOrderDTO
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

	mux.Handle("findByUser", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &rpc.RemoteError{StatusCode: 400, Message: err.Error()}
		}
		return h.svc.FindByUser(ctx, req.UserID)
	})

	mux.Handle("update", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			ID string `json:"id"`
			UpdateOrderDTO
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &rpc.RemoteError{StatusCode: 400, Message: err.Error()}
		}
		return h.svc.Update(ctx, req.ID, req.UpdateOrderDTO)
	})

	mux.Handle("updateStatus", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &rpc.RemoteError{StatusCode: 400, Message: err.Error()}
		}
		return h.svc.UpdateStatus(ctx, req.ID, model.OrderStatus(req.Status))
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

// RegisterRoutes mounts the REST surface.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/orders", h.create)
	router.Get("/orders/:id", h.findOne)
	router.Get("/orders/user/:userId", h.findByUser)
	router.Patch("/orders/:id", h.update)
	router.Patch("/orders/:id/status", h.updateStatus)
	router.Delete("/orders/:id", h.remove)
}

func (h *Handler) create(c *fiber.Ctx) error {
	var dto CreateOrderDTO
	if err := c.BodyParser(&dto); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	order, err := h.svc.Create(c.UserContext(), dto)
	if err != nil {
		return asHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *Handler) findOne(c *fiber.Ctx) error {
	order, err := h.svc.FindOne(c.UserContext(), c.Params("id"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(order)
}

func (h *Handler) findByUser(c *fiber.Ctx) error {
	orders, err := h.svc.FindByUser(c.UserContext(), c.Params("userId"))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(orders)
}

func (h *Handler) update(c *fiber.Ctx) error {
	var dto UpdateOrderDTO
	if err := c.BodyParser(&dto); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	order, err := h.svc.Update(c.UserContext(), c.Params("id"), dto)
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(order)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	order, err := h.svc.UpdateStatus(c.UserContext(), c.Params("id"), model.OrderStatus(req.Status))
	if err != nil {
		return asHTTPError(err)
	}
	return c.JSON(order)
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
