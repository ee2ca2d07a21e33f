package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campuslink/campuslink/internal/account"
	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/models"
)

const (
	tokenCookie  = "token"
	ctxUserIDKey = "userID"
	bearerPrefix = "Bearer "
)

// PostReader is the hydration collaborator: the identity core stores post
// ids on the user and the boundary fetches the documents explicitly.
type PostReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	FindByOwner(ctx context.Context, ownerID string) ([]models.Post, error)
}

type Handler struct {
	creds    *auth.Service
	tokens   *auth.TokenIssuer
	reset    *auth.ResetFlow
	accounts *account.Coordinator
	posts    PostReader
	log      *zap.Logger
}

func NewHandler(creds *auth.Service, tokens *auth.TokenIssuer, reset *auth.ResetFlow, accounts *account.Coordinator, posts PostReader, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{creds: creds, tokens: tokens, reset: reset, accounts: accounts, posts: posts, log: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", h.handleRegister)
	authGroup.POST("/login", h.handleLogin)
	authGroup.GET("/logout", h.handleLogout)

	apiGroup.POST("/password/forgot", h.handleForgotPassword)
	apiGroup.PUT("/password/reset/:token", h.handleResetPassword)

	me := apiGroup.Group("/me", h.requireAuth)
	me.GET("", h.handleMyProfile)
	me.PUT("/password", h.handleUpdatePassword)
	me.PUT("/profile", h.handleUpdateProfile)
	me.DELETE("", h.handleDeleteAccount)
	me.GET("/posts", h.handleMyPosts)

	users := apiGroup.Group("/users", h.requireAuth)
	users.GET("", h.handleListUsers)
	users.GET("/:id", h.handleGetUser)
	users.GET("/:id/posts", h.handleUserPosts)
}

// requireAuth resolves the caller from the session cookie or the
// Authorization header and stashes the user id on the request context.
func (h *Handler) requireAuth(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		writeError(c, http.StatusUnauthorized, "authentication required", auth.ErrInvalidToken)
		c.Abort()
		return
	}

	userID, err := h.tokens.Verify(token)
	if err != nil {
		writeError(c, http.StatusUnauthorized, "invalid or expired session", err)
		c.Abort()
		return
	}

	c.Set(ctxUserIDKey, userID)
	c.Next()
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}
	if cookie, err := c.Cookie(tokenCookie); err == nil {
		return cookie
	}
	return ""
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Course *string `json:"course"`
	Branch *string `json:"branch"`
	Year   *string `json:"year"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	user, err := h.creds.Register(c.Request.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeAuthError(c, err, "failed to register user")
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to issue session", err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{
		"user":      user.Sanitize(),
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	user, err := h.creds.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(c, err, "failed to log in")
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to issue session", err)
		return
	}

	posts, err := h.posts.FindByIDs(c.Request.Context(), user.Posts)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to load posts", err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"user":      user.Sanitize(),
		"posts":     posts,
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}

// handleLogout clears the cookie carrying the session token. It is not
// revocation: a copy of the token retained elsewhere stays valid until its
// own expiry.
func (h *Handler) handleLogout(c *gin.Context) {
	c.SetCookie(tokenCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) handleMyProfile(c *gin.Context) {
	userID := c.GetString(ctxUserIDKey)

	user, err := h.creds.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.writeAuthError(c, err, "failed to load profile")
		return
	}

	posts, err := h.posts.FindByIDs(c.Request.Context(), user.Posts)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to load posts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Sanitize(), "posts": posts})
}

func (h *Handler) handleUpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	userID := c.GetString(ctxUserIDKey)
	if err := h.creds.UpdatePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		h.writeAuthError(c, err, "failed to update password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (h *Handler) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	userID := c.GetString(ctxUserIDKey)
	user, err := h.creds.UpdateProfile(c.Request.Context(), userID, auth.ProfileUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Course: req.Course,
		Branch: req.Branch,
		Year:   req.Year,
	})
	if err != nil {
		h.writeAuthError(c, err, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "user": user.Sanitize()})
}

func (h *Handler) handleDeleteAccount(c *gin.Context) {
	userID := c.GetString(ctxUserIDKey)

	report, err := h.accounts.DeleteAccount(c.Request.Context(), userID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to delete account", err)
		return
	}

	c.SetCookie(tokenCookie, "", -1, "/", "", false, true)

	response := gin.H{
		"message":         "account deleted",
		"postsDeleted":    report.PostsDeleted,
		"commentsRemoved": report.CommentsRemoved,
		"likesRemoved":    report.LikesRemoved,
	}
	if len(report.MediaFailures) > 0 {
		refs := make([]string, 0, len(report.MediaFailures))
		for _, failure := range report.MediaFailures {
			refs = append(refs, failure.MediaRef)
		}
		response["mediaNotDeleted"] = refs
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) handleMyPosts(c *gin.Context) {
	h.renderUserPosts(c, c.GetString(ctxUserIDKey))
}

func (h *Handler) handleUserPosts(c *gin.Context) {
	h.renderUserPosts(c, c.Param("id"))
}

func (h *Handler) renderUserPosts(c *gin.Context, userID string) {
	user, err := h.creds.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.writeAuthError(c, err, "failed to load user")
		return
	}

	posts, err := h.posts.FindByIDs(c.Request.Context(), user.Posts)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to load posts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handler) handleGetUser(c *gin.Context) {
	user, err := h.creds.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeAuthError(c, err, "failed to load user")
		return
	}

	posts, err := h.posts.FindByIDs(c.Request.Context(), user.Posts)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to load posts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Sanitize(), "posts": posts})
}

func (h *Handler) handleListUsers(c *gin.Context) {
	query := auth.ListQuery{
		Keyword: c.Query("keyword"),
		Filters: map[string]string{},
	}
	if page, err := strconv.ParseInt(c.Query("page"), 10, 64); err == nil {
		query.Page = page
	}
	if limit, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil {
		query.Limit = limit
	}
	for field, values := range c.Request.URL.Query() {
		if field == "keyword" || field == "page" || field == "limit" || len(values) == 0 {
			continue
		}
		query.Filters[field] = values[0]
	}

	users, err := h.creds.ListUsers(c.Request.Context(), query)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to list users", err)
		return
	}

	sanitized := make([]models.User, 0, len(users))
	for _, user := range users {
		sanitized = append(sanitized, user.Sanitize())
	}

	c.JSON(http.StatusOK, gin.H{"users": sanitized})
}

func (h *Handler) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	if err := h.reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		h.writeAuthError(c, err, "failed to request password reset")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reset email sent"})
}

func (h *Handler) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	if err := h.reset.ConsumeReset(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		h.writeAuthError(c, err, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(tokenCookie, token, int(h.tokens.TTL().Seconds()), "/", "", false, true)
}

// writeAuthError is the single place error kinds become HTTP status codes.
func (h *Handler) writeAuthError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, auth.ErrMissingField):
		writeError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(c, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, auth.ErrDuplicateEmail):
		writeError(c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, auth.ErrIncorrectCredential),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidOrExpiredToken):
		writeError(c, http.StatusUnauthorized, err.Error(), err)
	case errors.Is(err, auth.ErrEmailDelivery):
		writeError(c, http.StatusBadGateway, err.Error(), err)
	default:
		h.log.Error(fallback, zap.Error(err))
		writeError(c, http.StatusInternalServerError, fallback, err)
	}
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
