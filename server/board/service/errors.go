package service

import "bragboard/server/board/domain"

var (
	ErrNotFound     = domain.ErrNotFound
	ErrForbidden    = domain.ErrForbidden
	ErrInvalidInput = domain.ErrInvalidInput
	ErrConflict     = domain.ErrConflict
)
