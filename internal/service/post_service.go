package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"postboard/internal/domain"
	"postboard/internal/repository"
	"postboard/internal/storage"
)

const permChangePost = "api.change_post"

// PostService manages posts and their likes.
type PostService interface {
	Create(ctx context.Context, actor *domain.User, title string) (*domain.Post, error)
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context) ([]domain.Post, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Post, error)
	UpdateTitle(ctx context.Context, actor *domain.User, id int64, title string) (*domain.Post, error)
	SetImage(ctx context.Context, actor *domain.User, id int64, filename string, body io.Reader, contentType string) (*domain.Post, error)
	Like(ctx context.Context, actor *domain.User, id int64) (*domain.Post, error)
	Unlike(ctx context.Context, actor *domain.User, id int64) (*domain.Post, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

type postService struct {
	posts  repository.PostRepository
	media  storage.Service
	logger *logrus.Logger
}

func NewPostService(posts repository.PostRepository, media storage.Service, logger *logrus.Logger) PostService {
	if logger == nil {
		logger = logrus.New()
	}
	return &postService{
		posts:  posts,
		media:  media,
		logger: logger,
	}
}

func (s *postService) Create(ctx context.Context, actor *domain.User, title string) (*domain.Post, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	post := &domain.Post{UserID: actor.ID, Title: title, Likers: []int64{}}
	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, id int64) (*domain.Post, error) {
	return s.posts.Get(ctx, id)
}

func (s *postService) List(ctx context.Context) ([]domain.Post, error) {
	return s.posts.List(ctx)
}

func (s *postService) ListByUser(ctx context.Context, userID int64) ([]domain.Post, error) {
	return s.posts.ListByUser(ctx, userID)
}

func (s *postService) UpdateTitle(ctx context.Context, actor *domain.User, id int64, title string) (*domain.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}
	post, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.posts.UpdateTitle(ctx, id, title); err != nil {
		return nil, err
	}
	post.Title = title
	return post, nil
}

// SetImage uploads the image at the derived post path and records that path.
func (s *postService) SetImage(ctx context.Context, actor *domain.User, id int64, filename string, body io.Reader, contentType string) (*domain.Post, error) {
	if s.media == nil {
		return nil, fmt.Errorf("storage service not configured")
	}
	post, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key, err := upload(ctx, s.media, s.logger, domain.PostImagePath(*post, filename), body, contentType)
	if err != nil {
		return nil, fmt.Errorf("store post image: %w", err)
	}
	if err := s.posts.UpdateImage(ctx, id, &key); err != nil {
		if post.Image == nil || *post.Image != key {
			removeObjects(ctx, s.media, s.logger, key)
		}
		return nil, err
	}

	if post.Image != nil && *post.Image != key {
		removeObjects(ctx, s.media, s.logger, *post.Image)
	}
	post.Image = &key
	return post, nil
}

// Like adds actor to the likers set. Any user may like, the author included.
func (s *postService) Like(ctx context.Context, actor *domain.User, id int64) (*domain.Post, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if _, err := s.posts.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.posts.AddLiker(ctx, id, actor.ID); err != nil {
		return nil, err
	}
	return s.posts.Get(ctx, id)
}

func (s *postService) Unlike(ctx context.Context, actor *domain.User, id int64) (*domain.Post, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if _, err := s.posts.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.posts.RemoveLiker(ctx, id, actor.ID); err != nil {
		return nil, err
	}
	return s.posts.Get(ctx, id)
}

func (s *postService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	post, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	if post.Image != nil {
		removeObjects(ctx, s.media, s.logger, *post.Image)
	}
	return nil
}

func (s *postService) owned(ctx context.Context, actor *domain.User, id int64) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, post.UserID, permChangePost) {
		return nil, ErrForbidden
	}
	return post, nil
}
