package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"postboard/internal/domain"
	"postboard/internal/repository"
	"postboard/internal/storage"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when attempting to register with an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrForbidden is returned when the acting user does not own the record.
	ErrForbidden = errors.New("forbidden")
)

// UserService is the account factory. Identities are only ever created through it
// so that emails are normalized and passwords hashed.
type UserService interface {
	CreateUser(ctx context.Context, email string, password *string) (*domain.User, error)
	CreateSuperuser(ctx context.Context, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	posts    repository.PostRepository
	media    storage.Service
	logger   *logrus.Logger
}

func NewUserService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	posts repository.PostRepository,
	media storage.Service,
	logger *logrus.Logger,
) UserService {
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:    users,
		profiles: profiles,
		posts:    posts,
		media:    media,
		logger:   logger,
	}
}

// CreateUser persists a regular account. A nil password leaves the account
// without a usable password.
func (s *userService) CreateUser(ctx context.Context, email string, password *string) (*domain.User, error) {
	user, err := s.createUser(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) createUser(ctx context.Context, email string, password *string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}

	user := domain.NewUser(email)
	if password == nil {
		user.SetUnusablePassword()
	} else if err := user.SetPassword(*password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user created")
	return user, nil
}

// CreateSuperuser creates the account and then grants staff and superuser.
func (s *userService) CreateSuperuser(ctx context.Context, email, password string) (*domain.User, error) {
	if password == "" {
		return nil, domain.NewValidationError("password", "password is required")
	}

	user, err := s.createUser(ctx, email, &password)
	if err != nil {
		return nil, err
	}

	user.IsStaff = true
	user.IsSuperuser = true
	if err := s.users.Update(ctx, user); err != nil {
		// drop the half-made account so the email can be retried
		if derr := s.users.Delete(ctx, user.ID); derr != nil {
			s.logger.WithError(derr).WithField("user_id", user.ID).Error("undo superuser insert")
		}
		return nil, fmt.Errorf("grant superuser: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Warn("superuser created")
	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive || !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("record last login")
	} else {
		user.LastLogin = &now
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// Delete removes the user and, through the store, its profile, posts, likes and
// comments. Images owned by the removed rows are dropped from storage afterwards.
func (s *userService) Delete(ctx context.Context, id int64) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}

	keys, err := s.ownedImageKeys(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("user_id", id).Info("user deleted")

	removeObjects(ctx, s.media, s.logger, keys...)
	return nil
}

func (s *userService) ownedImageKeys(ctx context.Context, userID int64) ([]string, error) {
	var keys []string

	profile, err := s.profiles.GetByUser(ctx, userID)
	switch {
	case err == nil:
		if profile.Avatar != nil {
			keys = append(keys, *profile.Avatar)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	posts, err := s.posts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		if post.Image != nil {
			keys = append(keys, *post.Image)
		}
	}
	return keys, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:          user.ID,
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		LastLogin:   user.LastLogin,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
