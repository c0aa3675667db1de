package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bragboard/server/board/domain"
	"bragboard/server/board/service"
)

func (h *Handler) listShoutouts(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, err := service.ParseFeedQuery(service.FeedQuery{
		Department: c.Query("department"),
		UserID:     c.Query("user_id"),
		DateFrom:   c.Query("date_from"),
		DateTo:     c.Query("date_to"),
		Limit:      c.Query("limit"),
		Cursor:     c.Query("cursor"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	items, next, err := h.deps.Shoutouts.Feed(c.Request.Context(), userID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewShoutoutPage(items, next))
}

func (h *Handler) getShoutout(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.deps.Shoutouts.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) createShoutout(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	var in service.CreateShoutoutInput
	if isMultipart(c) {
		parsed, err := h.parseShoutoutForm(c)
		if err != nil {
			writeError(c, err)
			return
		}
		in = parsed
	} else if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.deps.Shoutouts.Create(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// parseShoutoutForm reads tags and recipient_ids either as repeated fields
// or as one comma separated value.
func (h *Handler) parseShoutoutForm(c *gin.Context) (service.CreateShoutoutInput, error) {
	in := service.CreateShoutoutInput{
		Title:   c.PostForm("title"),
		Message: c.PostForm("message"),
		Tags:    splitFormValues(c.PostFormArray("tags")),
	}
	for _, raw := range splitFormValues(c.PostFormArray("recipient_ids")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return service.CreateShoutoutInput{}, &formError{field: "recipient_ids"}
		}
		in.RecipientIDs = append(in.RecipientIDs, id)
	}
	media, err := h.readUpload(c, "file")
	if err != nil {
		return service.CreateShoutoutInput{}, err
	}
	in.Media = media
	return in, nil
}

type formError struct {
	field string
}

func (e *formError) Error() string {
	return e.field + " must be a list of integers"
}

func (e *formError) Unwrap() error {
	return service.ErrInvalidInput
}

func splitFormValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *Handler) updateShoutout(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateShoutoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.deps.Shoutouts.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) deleteShoutout(c *gin.Context) {
	userID, role, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Shoutouts.Delete(c.Request.Context(), userID, role, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}

func (h *Handler) react(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Type domain.ReactionType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	item, err := h.deps.Shoutouts.React(c.Request.Context(), userID, id, req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) addComment(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.CommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	comment, err := h.deps.Shoutouts.AddComment(c.Request.Context(), userID, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) deleteComment(c *gin.Context) {
	userID, role, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}
	if err := h.deps.Shoutouts.DeleteComment(c.Request.Context(), userID, role, id, commentID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}

func (h *Handler) report(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	report, err := h.deps.Shoutouts.Report(c.Request.Context(), userID, id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
