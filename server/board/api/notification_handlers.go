package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bragboard/server/board/domain"
)

func (h *Handler) listNotifications(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	skip, ok := queryInt(c, "skip", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.Query("unread_only"))
	items, err := h.deps.Notifications.List(c.Request.Context(), userID, domain.NotificationFilter{Skip: skip, Limit: limit, UnreadOnly: unreadOnly})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) unreadCount(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	count, err := h.deps.Notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

func (h *Handler) markRead(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Notifications.MarkRead(c.Request.Context(), userID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}

func (h *Handler) markAllRead(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	updated, err := h.deps.Notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCountResponse(updated))
}

func (h *Handler) leaderboard(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	entries, err := h.deps.Admin.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(entries))
}
