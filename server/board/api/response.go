package api

import (
	"bragboard/server/board/domain"
	"bragboard/server/common/transport/httpresp"
)

const (
	ErrUnauthorized       = httpresp.ErrUnauthorized
	ErrInvalidCredentials = httpresp.ErrInvalidCredentials
	ErrForbidden          = httpresp.ErrForbidden
	ErrNotFound           = httpresp.ErrNotFound
	ErrInvalidID          = httpresp.ErrInvalidID
	ErrInternal           = httpresp.ErrInternal
)

type ErrorResponse = httpresp.ErrorResponse
type OKResponse = httpresp.OKResponse
type CountResponse = httpresp.CountResponse
type TokenResponse = httpresp.TokenResponse
type HealthResponse = httpresp.HealthResponse
type ShoutoutPage = httpresp.PaginatedResponse[domain.Shoutout]

var (
	NewErrorResponse  = httpresp.NewErrorResponse
	NewTokenResponse  = httpresp.NewTokenResponse
	NewOKResponse     = httpresp.NewOKResponse
	NewCountResponse  = httpresp.NewCountResponse
	NewHealthResponse = httpresp.NewHealthResponse
)

func NewShoutoutPage(items []domain.Shoutout, nextCursor string) ShoutoutPage {
	return httpresp.NewPaginatedResponse(items, nextCursor)
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}
