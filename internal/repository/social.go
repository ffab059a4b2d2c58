package repository

import (
	"context"

	"postboard/internal/domain"
)

// ProfileRepository persists profiles; one per user.
type ProfileRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, profile *domain.Profile) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Profile, error)
	GetByUser(ctx context.Context, userID int64) (*domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	UpdateNickname(ctx context.Context, id int64, nickname string) error
	UpdateAvatar(ctx context.Context, id int64, avatar *string) error
	Delete(ctx context.Context, id int64) error
}

// PostRepository persists posts and their likers.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context) ([]domain.Post, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Post, error)
	UpdateTitle(ctx context.Context, id int64, title string) error
	UpdateImage(ctx context.Context, id int64, image *string) error
	AddLiker(ctx context.Context, postID, userID int64) error
	RemoveLiker(ctx context.Context, postID, userID int64) error
	Delete(ctx context.Context, id int64) error
}

// CommentRepository persists comments.
type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error)
	Delete(ctx context.Context, id int64) error
}
