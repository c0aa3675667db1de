package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bragboard/server/board/domain"
)

func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.deps.Admin.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) adminUsers(c *gin.Context) {
	users, err := h.deps.Admin.Users(c.Request.Context(), c.Query("q"), c.Query("department"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(users))
}

func (h *Handler) adminChangeRole(c *gin.Context) {
	adminID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role domain.UserRole `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := h.deps.Admin.ChangeRole(c.Request.Context(), adminID, id, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) adminDeleteUser(c *gin.Context) {
	adminID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Admin.DeleteUser(c.Request.Context(), adminID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}

func (h *Handler) adminSettings(c *gin.Context) {
	settings, err := h.deps.Admin.Settings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) adminPutSettings(c *gin.Context) {
	adminID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	settings, err := h.deps.Admin.PutSettings(c.Request.Context(), adminID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) adminReports(c *gin.Context) {
	reports, err := h.deps.Admin.Reports(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(reports))
}

func (h *Handler) adminResolveReport(c *gin.Context) {
	adminID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.deps.Admin.ResolveReport(c.Request.Context(), adminID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) adminDeleteShoutout(c *gin.Context) {
	adminID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Admin.DeleteShoutout(c.Request.Context(), adminID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}

func (h *Handler) adminDeleteComment(c *gin.Context) {
	adminID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Admin.DeleteComment(c.Request.Context(), adminID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}

func (h *Handler) adminLogs(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	logs, err := h.deps.Admin.Logs(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(logs))
}

// adminExport buffers the CSV so a failed query still yields a JSON error.
func (h *Handler) adminExport(c *gin.Context) {
	adminID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	kind := c.Param("kind")
	var buf bytes.Buffer
	var err error
	switch kind {
	case "users":
		err = h.deps.Admin.ExportUsers(c.Request.Context(), adminID, &buf)
	case "shoutouts":
		err = h.deps.Admin.ExportShoutouts(c.Request.Context(), adminID, &buf)
	case "reports":
		err = h.deps.Admin.ExportReports(c.Request.Context(), adminID, &buf)
	default:
		c.JSON(http.StatusNotFound, NewErrorResponse(ErrNotFound))
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	filename := fmt.Sprintf("bragboard_%s_%s.csv", kind, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
