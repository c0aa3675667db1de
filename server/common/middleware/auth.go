package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bragboard/server/common/transport/httpresp"
)

const (
	ContextAccessToken = "auth_access_token"
	ContextUserID      = "auth_user_id"
	ContextRole        = "auth_role"
)

type tokenAuth interface {
	ParseAuthContext(token string) (userID int64, role string, err error)
}

// BearerToken reads the Authorization header, falling back to the
// access_token query parameter that browsers must use for WebSocket upgrades.
func BearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != "" {
			return token, true
		}
	}
	if c.IsWebsocket() {
		token := strings.TrimSpace(c.Query("access_token"))
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token != "" {
			return token, true
		}
	}
	return "", false
}

func AuthRequired(auth tokenAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrMissingBearerToken))
			return
		}
		userID, role, err := auth.ParseAuthContext(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidToken))
			return
		}
		c.Set(ContextAccessToken, token)
		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, role := range roles {
		allowed[strings.TrimSpace(role)] = struct{}{}
	}
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrForbidden))
			return
		}
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrInsufficientRole))
			return
		}
		c.Next()
	}
}

func UserIDFromContext(c *gin.Context) (int64, bool) {
	raw, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	userID, ok := raw.(int64)
	return userID, ok && userID > 0
}

func RoleFromContext(c *gin.Context) (string, bool) {
	raw, ok := c.Get(ContextRole)
	if !ok {
		return "", false
	}
	role, ok := raw.(string)
	return role, ok
}
