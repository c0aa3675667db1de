package httpresp

const (
	ErrUnauthorized         = "unauthorized"
	ErrInvalidCredentials   = "invalid credentials"
	ErrMissingBearerToken   = "bearer token is required"
	ErrInvalidToken         = "invalid token"
	ErrForbidden            = "forbidden"
	ErrInsufficientRole     = "insufficient permissions"
	ErrNotFound             = "not found"
	ErrInvalidID            = "id must be a positive integer"
	ErrDuplicateRequest     = "duplicate request"
	ErrIdempotencyKeyTooBig = "idempotency key is too long"
	ErrInternal             = "internal error"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        any    `json:"user,omitempty"`
}

type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewOKResponse() OKResponse {
	return OKResponse{OK: true}
}

func NewCountResponse(count int64) CountResponse {
	return CountResponse{Count: count}
}

func NewTokenResponse(accessToken string, expiresIn int64, user any) TokenResponse {
	return TokenResponse{AccessToken: accessToken, TokenType: "bearer", ExpiresIn: expiresIn, User: user}
}

func NewPaginatedResponse[T any](items []T, nextCursor string) PaginatedResponse[T] {
	if items == nil {
		items = []T{}
	}
	return PaginatedResponse[T]{Items: items, NextCursor: nextCursor}
}

func NewHealthResponse(status string, err error) HealthResponse {
	resp := HealthResponse{Status: status}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
