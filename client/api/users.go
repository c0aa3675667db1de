package api

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"bragboard/server/board/domain"
)

type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Department *string `json:"department,omitempty"`
	Bio        *string `json:"bio,omitempty"`
}

// Upload is a file sent as the multipart "file" field.
type Upload struct {
	Filename string
	Content  io.Reader
}

func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var out domain.User
	err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateMe(ctx context.Context, in ProfileUpdate) (domain.User, error) {
	var out domain.User
	if err := c.doJSON(ctx, http.MethodPut, "/users/me", nil, in, &out); err != nil {
		return domain.User{}, err
	}
	c.session.SetUser(out)
	return out, nil
}

func (c *Client) UploadAvatar(ctx context.Context, file Upload) (domain.User, error) {
	var out domain.User
	if err := c.doMultipart(ctx, http.MethodPost, "/users/me/picture", nil, &file, &out); err != nil {
		return domain.User{}, err
	}
	c.session.SetUser(out)
	return out, nil
}

func (c *Client) Users(ctx context.Context, query, department string) ([]domain.User, error) {
	q := url.Values{}
	setIf(q, "q", query)
	setIf(q, "department", department)
	var out []domain.User
	err := c.doJSON(ctx, http.MethodGet, "/users", q, nil, &out)
	return out, err
}

func (c *Client) Departments(ctx context.Context) ([]string, error) {
	var out []string
	err := c.doJSON(ctx, http.MethodGet, "/users/departments", nil, nil, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	q := url.Values{}
	setIntIf(q, "limit", limit)
	var out []domain.LeaderboardEntry
	err := c.doJSON(ctx, http.MethodGet, "/leaderboard", q, nil, &out)
	return out, err
}
