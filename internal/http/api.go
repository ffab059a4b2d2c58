package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"postboard/internal/domain"
	"postboard/internal/repository"
	"postboard/internal/service"
	"postboard/internal/storage"
)

const (
	ctxUserKey      = "user"
	requestIDHeader = "X-Request-ID"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	profiles  service.ProfileService
	posts     service.PostService
	comments  service.CommentService
	storage   storage.Service
	tokens    *TokenIssuer
	urlExpiry time.Duration
	logger    *logrus.Logger
}

// Deps groups the collaborators of a Handler.
type Deps struct {
	Users     service.UserService
	Profiles  service.ProfileService
	Posts     service.PostService
	Comments  service.CommentService
	Storage   storage.Service
	Tokens    *TokenIssuer
	URLExpiry time.Duration
	Logger    *logrus.Logger
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.URLExpiry <= 0 {
		deps.URLExpiry = 15 * time.Minute
	}
	return &Handler{
		users:     deps.Users,
		profiles:  deps.Profiles,
		posts:     deps.Posts,
		comments:  deps.Comments,
		storage:   deps.Storage,
		tokens:    deps.Tokens,
		urlExpiry: deps.URLExpiry,
		logger:    deps.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)

		api.GET("/profiles", h.listProfiles)
		api.GET("/profiles/:id", h.getProfile)
		api.GET("/posts", h.listPosts)
		api.GET("/posts/:id", h.getPost)
		api.GET("/posts/:id/comments", h.listComments)
	}

	authed := api.Group("")
	authed.Use(h.requireAuth())
	{
		authed.GET("/me", h.me)
		authed.DELETE("/me", h.deleteMe)

		authed.POST("/profiles", h.createProfile)
		authed.PATCH("/profiles/:id", h.updateProfile)
		authed.PUT("/profiles/:id/avatar", h.uploadAvatar)
		authed.DELETE("/profiles/:id", h.deleteProfile)

		authed.POST("/posts", h.createPost)
		authed.PATCH("/posts/:id", h.updatePost)
		authed.PUT("/posts/:id/image", h.uploadPostImage)
		authed.DELETE("/posts/:id", h.deletePost)
		authed.POST("/posts/:id/like", h.likePost)
		authed.DELETE("/posts/:id/like", h.unlikePost)

		authed.POST("/posts/:id/comments", h.createComment)
		authed.DELETE("/comments/:id", h.deleteComment)

		authed.GET("/storage/objects", h.requireStaff(), h.listObjects)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, reqID)

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("request failed")
			return
		}
		entry.Debug("request handled")
	}
}

func (h *Handler) listObjects(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage service not configured"})
		return
	}

	objects, err := h.storage.ListObjects(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

// writeError maps service and repository errors onto status codes. Store
// details stay in the gin error log; clients only see the error kind.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.As(err, &verr):
		status, msg = http.StatusBadRequest, verr.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, service.ErrForbidden.Error()
	case errors.Is(err, service.ErrUserAlreadyExists):
		status, msg = http.StatusConflict, service.ErrUserAlreadyExists.Error()
	case errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, repository.ErrConflict.Error()
	case errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, repository.ErrNotFound.Error()
	case errors.Is(err, storage.ErrObjectNotFound):
		status, msg = http.StatusNotFound, storage.ErrObjectNotFound.Error()
	case errors.Is(err, repository.ErrConstraint):
		status, msg = http.StatusUnprocessableEntity, repository.ErrConstraint.Error()
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}
