package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"postboard/internal/domain"
	"postboard/internal/storage"
)

type UserResponse struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	IsActive    bool    `json:"is_active"`
	IsStaff     bool    `json:"is_staff"`
	IsSuperuser bool    `json:"is_superuser"`
	LastLogin   *string `json:"last_login,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   string       `json:"expires_at"`
	User        UserResponse `json:"user"`
}

type ProfileResponse struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	Nickname  string  `json:"nickname"`
	CreatedOn string  `json:"created_on"`
	Avatar    *string `json:"avatar,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type PostResponse struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	Title     string  `json:"title"`
	CreatedOn string  `json:"created_on"`
	Image     *string `json:"image,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
	Liked     []int64 `json:"liked"`
}

type CommentResponse struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	PostID int64  `json:"post_id"`
	Text   string `json:"text"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func userToResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLogin != nil {
		v := user.LastLogin.Format(time.RFC3339)
		resp.LastLogin = &v
	}
	return resp
}

func (h *Handler) profileToResponse(c *gin.Context, profile domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        profile.ID,
		UserID:    profile.UserID,
		Nickname:  profile.Nickname,
		CreatedOn: profile.CreatedOn.Format(time.RFC3339),
		Avatar:    profile.Avatar,
		AvatarURL: h.objectURL(c, profile.Avatar),
	}
}

func (h *Handler) postToResponse(c *gin.Context, post domain.Post) PostResponse {
	liked := post.Likers
	if liked == nil {
		liked = []int64{}
	}
	return PostResponse{
		ID:        post.ID,
		UserID:    post.UserID,
		Title:     post.Title,
		CreatedOn: post.CreatedOn.Format(time.RFC3339),
		Image:     post.Image,
		ImageURL:  h.objectURL(c, post.Image),
		Liked:     liked,
	}
}

func commentToResponse(comment domain.Comment) CommentResponse {
	return CommentResponse{
		ID:     comment.ID,
		UserID: comment.UserID,
		PostID: comment.PostID,
		Text:   comment.Text,
	}
}

// objectURL resolves a stored key to a fetchable URL; failures leave it empty.
func (h *Handler) objectURL(c *gin.Context, key *string) *string {
	if key == nil || h.storage == nil {
		return nil
	}
	url, err := h.storage.GetObjectURL(c.Request.Context(), *key, h.urlExpiry)
	if err != nil {
		h.logger.WithError(err).WithField("key", *key).Warn("resolve object url")
		return nil
	}
	return &url
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
