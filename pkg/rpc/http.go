package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultCallTimeout = 5 * time.Second

// Attach mounts the mux's command and event routes on a fiber app. Commands
// reply synchronously; events are accepted with 202 before the handler's
// outcome is known.
func Attach(app *fiber.App, mux *Mux) {
	app.Post("/rpc/:command", func(c *fiber.Ctx) error {
		payload := json.RawMessage(bytes.Clone(c.Body()))
		result, err := mux.dispatch(c.UserContext(), c.Params("command"), payload)
		if err != nil {
			re := toRemoteError(err)
			return c.Status(re.StatusCode).JSON(re)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusOK).Send(result)
	})

	app.Post("/emit/:event", func(c *fiber.Ctx) error {
		payload := json.RawMessage(bytes.Clone(c.Body()))
		mux.dispatchEvent(c.UserContext(), c.Params("event"), payload)
		return c.SendStatus(fiber.StatusAccepted)
	})
}

// HTTPClient is the Client implementation used between deployed services.
// Peers are addressed by service name through a static endpoint table.
type HTTPClient struct {
	endpoints map[string]string
	hc        *http.Client
	timeout   time.Duration
}

func NewHTTPClient(endpoints map[string]string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &HTTPClient{
		endpoints: endpoints,
		hc:        &http.Client{},
		timeout:   timeout,
	}
}

func (c *HTTPClient) Call(ctx context.Context, service, command string, payload any) (json.RawMessage, error) {
	body, err := c.post(ctx, service, "/rpc/"+command, payload)
	return body, err
}

func (c *HTTPClient) Emit(ctx context.Context, service, eventName string, payload any) error {
	_, err := c.post(ctx, service, "/emit/"+eventName, payload)
	return err
}

func (c *HTTPClient) post(ctx context.Context, service, path string, payload any) (json.RawMessage, error) {
	base, ok := c.endpoints[service]
	if !ok {
		return nil, fmt.Errorf("no endpoint for service %s: %w", service, ErrUnavailable)
	}

	// An unresponsive peer must not stall the caller indefinitely.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s%s: %v: %w", service, path, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading reply from %s%s: %v: %w", service, path, err, ErrUnavailable)
	}

	if resp.StatusCode >= 300 {
		re := &RemoteError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var parsed RemoteError
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Message != "" {
			re.Message = parsed.Message
		}
		return nil, re
	}
	return respBody, nil
}
