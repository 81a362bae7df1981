// Package extern holds the typed clients for collaborators this core does
// not implement: the catalog and user services, and the order service as
// seen from its RPC peers. Everything here goes over the rpc.Client channel.
package extern

import (
	"context"
	"encoding/json"

	"github.com/onlinestore/fulfillment/internal/model"
	"github.com/onlinestore/fulfillment/pkg/rpc"
)

type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CatalogClient interface {
	FindOne(ctx context.Context, productID string) (Product, error)
	DecreaseStock(ctx context.Context, productID string, quantity int) error
}

type UserClient interface {
	FindOne(ctx context.Context, userID string) (User, error)
}

// OrderClient is how the payment service reaches back into the order
// service to advance order status.
type OrderClient interface {
	FindOne(ctx context.Context, orderID string) (model.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
}

type catalogClient struct {
	rpc rpc.Client
}

func NewCatalogClient(c rpc.Client) CatalogClient {
	return &catalogClient{rpc: c}
}

func (c *catalogClient) FindOne(ctx context.Context, productID string) (Product, error) {
	var product Product
	reply, err := c.rpc.Call(ctx, "products", "findOne", map[string]string{"productId": productID})
	if err != nil {
		return Product{}, err
	}
	err = json.Unmarshal(reply, &product)
	return product, err
}

func (c *catalogClient) DecreaseStock(ctx context.Context, productID string, quantity int) error {
	_, err := c.rpc.Call(ctx, "products", "decreaseStock", map[string]any{
		"productId": productID,
		"quantity":  quantity,
	})
	return err
}

type userClient struct {
	rpc rpc.Client
}

func NewUserClient(c rpc.Client) UserClient {
	return &userClient{rpc: c}
}

func (c *userClient) FindOne(ctx context.Context, userID string) (User, error) {
	var user User
	reply, err := c.rpc.Call(ctx, "users", "findOne", map[string]string{"userId": userID})
	if err != nil {
		return User{}, err
	}
	err = json.Unmarshal(reply, &user)
	return user, err
}

type orderClient struct {
	rpc rpc.Client
}

func NewOrderClient(c rpc.Client) OrderClient {
	return &orderClient{rpc: c}
}

func (c *orderClient) FindOne(ctx context.Context, orderID string) (model.Order, error) {
	var order model.Order
	reply, err := c.rpc.Call(ctx, "orders", "findOne", map[string]string{"id": orderID})
	if err != nil {
		return model.Order{}, err
	}
	err = json.Unmarshal(reply, &order)
	return order, err
}

func (c *orderClient) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	_, err := c.rpc.Call(ctx, "orders", "updateStatus", map[string]string{
		"id":     orderID,
		"status": string(status),
	})
	return err
}
