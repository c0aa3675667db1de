package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	commonlog "bragboard/server/common/log"
	"bragboard/server/common/transport/httpresp"
)

const (
	IdempotencyHeader       = "Idempotency-Key"
	DefaultIdempotencyTTL   = 24 * time.Hour
	maxIdempotencyKeyLength = 128
)

type IdempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Idempotency rejects a replayed Idempotency-Key with 409. The key is
// released again when the handler answers with an error so the caller can retry.
// Requests without the header pass through.
func Idempotency(store IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}
		clientKey := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if clientKey == "" {
			c.Next()
			return
		}
		if len(clientKey) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrIdempotencyKeyTooBig))
			return
		}

		userID, _ := UserIDFromContext(c)
		key := idempotencyKey(userID, c.Request.Method, c.FullPath(), clientKey)
		ctx := c.Request.Context()
		ok, err := store.SetNX(ctx, key, "1", ttl).Result()
		if err != nil {
			commonlog.Warnf("event=idempotency action=setnx status=failed user_id=%d path=%s error=%v", userID, c.FullPath(), err)
			c.Next()
			return
		}
		if !ok {
			commonlog.Infof("event=idempotency action=reject status=duplicate user_id=%d path=%s", userID, c.FullPath())
			c.AbortWithStatusJSON(http.StatusConflict, httpresp.NewErrorResponse(httpresp.ErrDuplicateRequest))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			_, _ = store.Del(context.WithoutCancel(ctx), key).Result()
		}
	}
}

func idempotencyKey(userID int64, method, path, clientKey string) string {
	return fmt.Sprintf("http:idempotency:%d:%s:%s:%s", userID, method, path, clientKey)
}
