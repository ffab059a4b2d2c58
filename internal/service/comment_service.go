package service

import (
	"context"
	"strings"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

const permDeleteComment = "api.delete_comment"

// CommentService manages comments on posts.
type CommentService interface {
	Create(ctx context.Context, actor *domain.User, postID int64, text string) (*domain.Comment, error)
	Get(ctx context.Context, id int64) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

type commentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository) CommentService {
	return &commentService{
		comments: comments,
		posts:    posts,
	}
}

// Create attaches a comment to an existing post. Text longer than
// domain.MaxCommentLength is rejected by the store.
func (s *commentService) Create(ctx context.Context, actor *domain.User, postID int64, text string) (*domain.Comment, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text", "text is required")
	}
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{UserID: actor.ID, PostID: postID, Text: text}
	if _, err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) Get(ctx context.Context, id int64) (*domain.Comment, error) {
	return s.comments.Get(ctx, id)
}

func (s *commentService) ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

// Delete is allowed for the comment author and for the author of the post.
func (s *commentService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	comment, err := s.comments.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, comment.UserID, permDeleteComment) {
		post, err := s.posts.Get(ctx, comment.PostID)
		if err != nil {
			return err
		}
		if !canModify(actor, post.UserID, permDeleteComment) {
			return ErrForbidden
		}
	}
	return s.comments.Delete(ctx, id)
}
