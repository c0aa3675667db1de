package api

import (
	"context"
	"net/http"

	"bragboard/client/session"
	"bragboard/server/board/domain"
)

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        domain.User `json:"user"`
}

type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department,omitempty"`
	Bio        string `json:"bio,omitempty"`
}

// Login stores the issued token in the session. When the server answers
// without a user the profile is fetched separately.
func (c *Client) Login(ctx context.Context, email, password string) (domain.User, error) {
	var out tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/login", nil, body, &out); err != nil {
		return domain.User{}, err
	}
	return c.establish(ctx, out)
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (domain.User, error) {
	var out tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/register", nil, in, &out); err != nil {
		return domain.User{}, err
	}
	return c.establish(ctx, out)
}

func (c *Client) establish(ctx context.Context, out tokenResponse) (domain.User, error) {
	c.session.Set(out.AccessToken, out.User)
	if out.User.ID != 0 {
		return out.User, nil
	}
	user, err := c.Me(ctx)
	if err != nil {
		return domain.User{}, err
	}
	c.session.SetUser(user)
	return user, nil
}

func (c *Client) Logout() {
	c.session.Invalidate(session.ReasonLogout)
}
