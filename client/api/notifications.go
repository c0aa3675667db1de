package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"bragboard/server/board/domain"
)

type NotificationFilter struct {
	Skip       int
	Limit      int
	UnreadOnly bool
}

func (c *Client) Notifications(ctx context.Context, filter NotificationFilter) ([]domain.Notification, error) {
	q := url.Values{}
	setIntIf(q, "skip", filter.Skip)
	setIntIf(q, "limit", filter.Limit)
	if filter.UnreadOnly {
		q.Set("unread_only", "true")
	}
	var out []domain.Notification
	err := c.doJSON(ctx, http.MethodGet, "/notifications", q, nil, &out)
	return out, err
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		UnreadCount int64 `json:"unread_count"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/notifications/unread-count", nil, nil, &out)
	return out.UnreadCount, err
}

func (c *Client) MarkRead(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodPut, "/notifications/"+strconv.FormatInt(id, 10)+"/read", nil, nil, nil)
}

func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	err := c.doJSON(ctx, http.MethodPut, "/notifications/read-all", nil, nil, &out)
	return out.Count, err
}
