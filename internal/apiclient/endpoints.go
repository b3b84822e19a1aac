package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/me/rtodash/pkg/model"
)

// Login exchanges credentials for a token and the agent profile.
func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", model.LoginRequest{Email: email, Password: password})
}

// Register creates an agent account and signs it in.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", req)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*model.AuthResult, error) {
	var payload model.AgentPayload
	env, err := c.do(ctx, http.MethodPost, path, body, &payload)
	if err != nil {
		return nil, err
	}
	if env.Token == "" || payload.Agent == nil {
		return nil, &model.APIError{Status: http.StatusBadGateway, Message: env.Message}
	}
	return &model.AuthResult{Token: env.Token, Agent: payload.Agent}, nil
}

// Me fetches the profile of the agent owning the current token.
func (c *Client) Me(ctx context.Context) (*model.Agent, error) {
	var payload model.AgentPayload
	if _, err := c.do(ctx, http.MethodGet, "/auth/me", nil, &payload); err != nil {
		return nil, err
	}
	if payload.Agent == nil {
		return nil, fmt.Errorf("GET /auth/me: response has no agent")
	}
	return payload.Agent, nil
}

// Balance fetches the wallet balance and top-up options.
func (c *Client) Balance(ctx context.Context) (*model.BalanceInfo, error) {
	var info model.BalanceInfo
	if _, err := c.do(ctx, http.MethodGet, "/pay/balance", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// VerifyPayment asks the API to confirm a gateway order and returns the
// resulting balance.
func (c *Client) VerifyPayment(ctx context.Context, orderID string) (*model.PaymentVerification, error) {
	var v model.PaymentVerification
	body := map[string]string{"order_id": orderID}
	if _, err := c.do(ctx, http.MethodPost, "/pay/verify", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Notifications lists the agent's notifications.
func (c *Client) Notifications(ctx context.Context) ([]model.ServerNotification, error) {
	var payload struct {
		Notifications []model.ServerNotification `json:"notifications"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/notifications", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Notifications, nil
}

// MarkAllNotificationsRead marks every notification read on the server.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPut, "/notifications/mark-all-read", nil, nil)
	return err
}

// ClearAllNotifications deletes every notification on the server.
func (c *Client) ClearAllNotifications(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/notifications/clear-all", nil, nil)
	return err
}

// Chat sends a message to the support chatbot and returns its reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var payload struct {
		Reply string `json:"reply"`
	}
	body := map[string]string{"message": message}
	if _, err := c.do(ctx, http.MethodPost, "/chatbot/message", body, &payload); err != nil {
		return "", err
	}
	return payload.Reply, nil
}
