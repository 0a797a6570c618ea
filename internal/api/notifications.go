package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/joltcab/console/internal/model"
)

// NotificationService is the REST side of the notification feed.
type NotificationService struct {
	client *Client
}

// NewNotificationService creates the notifications facade.
func NewNotificationService(c *Client) *NotificationService {
	return &NotificationService{client: c}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, params Params) ([]model.Notification, error) {
	return fetchList[model.Notification](ctx, s.client, "/notifications", "notifications", params)
}

// MarkRead marks notification id as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	_, err := call(ctx, s.client, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil)
	return err
}

// MarkAllRead marks every notification as read.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	_, err := call(ctx, s.client, http.MethodPost, "/notifications/read-all", nil)
	return err
}
