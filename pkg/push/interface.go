package push

import "context"

// PushProvider delivers one notification to one device.
type PushProvider interface {
	Name() string
	SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error)
}

type NotificationRequest struct {
	Token       string            `json:"token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Sound       string            `json:"sound,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	TTL         int               `json:"ttl,omitempty"`
	CollapseKey string            `json:"collapse_key,omitempty"`
}

type NotificationResponse struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Token     string `json:"token,omitempty"`
}

// NoopProvider is used when push delivery is disabled.
type NoopProvider struct{}

func (NoopProvider) Name() string { return "none" }

func (NoopProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	return &NotificationResponse{Success: true, Token: request.Token}, nil
}
