package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bragboard/server/board/service"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// login accepts JSON or an OAuth2 password form where username holds the email.
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = strings.TrimSpace(req.Username)
	}
	if email == "" || req.Password == "" {
		badRequest(c, "email and password are required")
		return
	}
	sess, err := h.deps.Auth.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.tokenResponse(sess))
}

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.deps.Auth.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.tokenResponse(sess))
}

func (h *Handler) tokenResponse(sess service.Session) TokenResponse {
	var expiresIn int64
	if h.deps.Tokens != nil {
		expiresIn = int64(h.deps.Tokens.TTL().Seconds())
	}
	return NewTokenResponse(sess.Token, expiresIn, sess.User)
}

func (h *Handler) me(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	user, err := h.deps.Users.Me(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) updateMe(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := h.deps.Users.UpdateMe(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) uploadPicture(c *gin.Context) {
	userID, _, ok := actorFromContext(c)
	if !ok {
		return
	}
	media, err := h.readUpload(c, "file")
	if err != nil {
		writeError(c, err)
		return
	}
	if media == nil {
		badRequest(c, "file is required")
		return
	}
	user, err := h.deps.Users.UploadAvatar(c.Request.Context(), userID, *media)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.deps.Users.List(c.Request.Context(), c.Query("q"), c.Query("department"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) listDepartments(c *gin.Context) {
	departments, err := h.deps.Users.Departments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if departments == nil {
		departments = []string{}
	}
	c.JSON(http.StatusOK, departments)
}
