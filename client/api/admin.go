package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"bragboard/server/board/domain"
)

func (c *Client) AdminStats(ctx context.Context) (domain.Stats, error) {
	var out domain.Stats
	err := c.doJSON(ctx, http.MethodGet, "/admin/stats", nil, nil, &out)
	return out, err
}

func (c *Client) AdminUsers(ctx context.Context, query, department string) ([]domain.User, error) {
	q := url.Values{}
	setIf(q, "q", query)
	setIf(q, "department", department)
	var out []domain.User
	err := c.doJSON(ctx, http.MethodGet, "/admin/users", q, nil, &out)
	return out, err
}

func (c *Client) ChangeRole(ctx context.Context, userID int64, role domain.UserRole) (domain.User, error) {
	var out domain.User
	err := c.doJSON(ctx, http.MethodPatch, "/admin/users/"+strconv.FormatInt(userID, 10)+"/role", nil, map[string]domain.UserRole{"role": role}, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/admin/users/"+strconv.FormatInt(userID, 10), nil, nil, nil)
}

func (c *Client) Settings(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := c.doJSON(ctx, http.MethodGet, "/admin/settings", nil, nil, &out)
	return out, err
}

func (c *Client) PutSettings(ctx context.Context, values map[string]string) (map[string]string, error) {
	var out map[string]string
	err := c.doJSON(ctx, http.MethodPut, "/admin/settings", nil, values, &out)
	return out, err
}

func (c *Client) Reports(ctx context.Context, status domain.ReportStatus) ([]domain.Report, error) {
	q := url.Values{}
	setIf(q, "status", string(status))
	var out []domain.Report
	err := c.doJSON(ctx, http.MethodGet, "/admin/reports", q, nil, &out)
	return out, err
}

func (c *Client) ResolveReport(ctx context.Context, id int64) (domain.Report, error) {
	var out domain.Report
	err := c.doJSON(ctx, http.MethodPut, "/admin/reports/"+strconv.FormatInt(id, 10)+"/resolve", nil, nil, &out)
	return out, err
}

func (c *Client) AdminDeleteShoutout(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/admin/shoutouts/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (c *Client) AdminDeleteComment(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/admin/comments/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (c *Client) AdminLogs(ctx context.Context, limit int) ([]domain.AdminLog, error) {
	q := url.Values{}
	setIntIf(q, "limit", limit)
	var out []domain.AdminLog
	err := c.doJSON(ctx, http.MethodGet, "/admin/logs", q, nil, &out)
	return out, err
}

// Export copies the CSV export of kind (users, shoutouts or reports) to w.
func (c *Client) Export(ctx context.Context, kind string, w io.Writer) (int64, error) {
	var written int64
	err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/admin/reports/export/%s", url.PathEscape(kind))}, func(body io.Reader) error {
		n, err := io.Copy(w, body)
		written = n
		return err
	})
	return written, err
}
