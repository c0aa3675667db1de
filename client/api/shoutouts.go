package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bragboard/server/board/domain"
)

const dateLayout = "2006-01-02"

type ShoutoutFilter struct {
	Department string
	UserID     int64
	DateFrom   time.Time
	DateTo     time.Time
	Limit      int
	Cursor     string
}

func (f ShoutoutFilter) values() url.Values {
	q := url.Values{}
	setIf(q, "department", f.Department)
	if f.UserID > 0 {
		q.Set("user_id", strconv.FormatInt(f.UserID, 10))
	}
	if !f.DateFrom.IsZero() {
		q.Set("date_from", f.DateFrom.Format(dateLayout))
	}
	if !f.DateTo.IsZero() {
		q.Set("date_to", f.DateTo.Format(dateLayout))
	}
	setIntIf(q, "limit", f.Limit)
	setIf(q, "cursor", f.Cursor)
	return q
}

type ShoutoutPage struct {
	Items      []domain.Shoutout `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// UnmarshalJSON accepts the paginated envelope as well as a bare array.
func (p *ShoutoutPage) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		p.NextCursor = ""
		return json.Unmarshal(trimmed, &p.Items)
	}
	type envelope ShoutoutPage
	var out envelope
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*p = ShoutoutPage(out)
	return nil
}

type NewShoutout struct {
	Title        string
	Message      string
	Tags         []string
	RecipientIDs []int64
	Media        *Upload
}

type ShoutoutEdit struct {
	Title   *string   `json:"title,omitempty"`
	Message *string   `json:"message,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

func (c *Client) Shoutouts(ctx context.Context, filter ShoutoutFilter) (ShoutoutPage, error) {
	var out ShoutoutPage
	err := c.doJSON(ctx, http.MethodGet, "/shoutouts", filter.values(), nil, &out)
	return out, err
}

func (c *Client) Shoutout(ctx context.Context, id int64) (domain.Shoutout, error) {
	var out domain.Shoutout
	err := c.doJSON(ctx, http.MethodGet, shoutoutPath(id), nil, nil, &out)
	return out, err
}

// CreateShoutout sends JSON, or a multipart form when media is attached.
func (c *Client) CreateShoutout(ctx context.Context, in NewShoutout) (domain.Shoutout, error) {
	var out domain.Shoutout
	if in.Media == nil {
		body := struct {
			Title        string   `json:"title,omitempty"`
			Message      string   `json:"message"`
			Tags         []string `json:"tags,omitempty"`
			RecipientIDs []int64  `json:"recipient_ids"`
		}{in.Title, in.Message, in.Tags, in.RecipientIDs}
		err := c.doJSON(ctx, http.MethodPost, "/shoutouts", nil, body, &out)
		return out, err
	}

	fields := url.Values{}
	setIf(fields, "title", in.Title)
	fields.Set("message", in.Message)
	if len(in.Tags) > 0 {
		fields.Set("tags", strings.Join(in.Tags, ","))
	}
	ids := make([]string, 0, len(in.RecipientIDs))
	for _, id := range in.RecipientIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	fields.Set("recipient_ids", strings.Join(ids, ","))
	err := c.doMultipart(ctx, http.MethodPost, "/shoutouts", fields, in.Media, &out)
	return out, err
}

func (c *Client) UpdateShoutout(ctx context.Context, id int64, edit ShoutoutEdit) (domain.Shoutout, error) {
	var out domain.Shoutout
	err := c.doJSON(ctx, http.MethodPut, shoutoutPath(id), nil, edit, &out)
	return out, err
}

func (c *Client) DeleteShoutout(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, shoutoutPath(id), nil, nil, nil)
}

// React toggles a reaction. The returned shoutout is nil when the server
// answers without one.
func (c *Client) React(ctx context.Context, id int64, reaction domain.ReactionType) (*domain.Shoutout, error) {
	var out *domain.Shoutout
	body := map[string]domain.ReactionType{"type": reaction}
	err := c.do(ctx, jsonRequest(http.MethodPost, shoutoutPath(id)+"/react", body), func(r io.Reader) error {
		raw, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		var item domain.Shoutout
		if json.Unmarshal(raw, &item) == nil && item.ID != 0 {
			out = &item
		}
		return nil
	})
	return out, err
}

func (c *Client) AddComment(ctx context.Context, shoutoutID int64, content string, parentID *int64) (domain.Comment, error) {
	var out domain.Comment
	body := struct {
		Content  string `json:"content"`
		ParentID *int64 `json:"parent_id,omitempty"`
	}{content, parentID}
	err := c.doJSON(ctx, http.MethodPost, shoutoutPath(shoutoutID)+"/comments", nil, body, &out)
	return out, err
}

func (c *Client) DeleteComment(ctx context.Context, shoutoutID, commentID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("%s/comments/%d", shoutoutPath(shoutoutID), commentID), nil, nil, nil)
}

func (c *Client) Report(ctx context.Context, shoutoutID int64, reason string) (domain.Report, error) {
	var out domain.Report
	err := c.doJSON(ctx, http.MethodPost, shoutoutPath(shoutoutID)+"/report", nil, map[string]string{"reason": reason}, &out)
	return out, err
}

func shoutoutPath(id int64) string {
	return "/shoutouts/" + strconv.FormatInt(id, 10)
}

func jsonRequest(method, path string, payload any) request {
	raw, _ := json.Marshal(payload)
	return request{method: method, path: path, body: bytes.NewReader(raw), contentType: "application/json"}
}
