package service

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bragboard/server/board/domain"
)

func EncodeCursor(c domain.FeedCursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + strconv.FormatInt(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(token string) (*domain.FeedCursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	shoutoutID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || shoutoutID <= 0 {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	return &domain.FeedCursor{CreatedAt: time.Unix(0, ts).UTC(), ID: shoutoutID}, nil
}
