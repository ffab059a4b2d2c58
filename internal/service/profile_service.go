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

const permChangeProfile = "api.change_profile"

// ProfileService manages the display profile of a user.
type ProfileService interface {
	Create(ctx context.Context, actor *domain.User, nickname string) (*domain.Profile, error)
	Get(ctx context.Context, id int64) (*domain.Profile, error)
	GetByUser(ctx context.Context, userID int64) (*domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	UpdateNickname(ctx context.Context, actor *domain.User, id int64, nickname string) (*domain.Profile, error)
	SetAvatar(ctx context.Context, actor *domain.User, id int64, filename string, body io.Reader, contentType string) (*domain.Profile, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

type profileService struct {
	profiles repository.ProfileRepository
	media    storage.Service
	logger   *logrus.Logger
}

func NewProfileService(profiles repository.ProfileRepository, media storage.Service, logger *logrus.Logger) ProfileService {
	if logger == nil {
		logger = logrus.New()
	}
	return &profileService{
		profiles: profiles,
		media:    media,
		logger:   logger,
	}
}

func (s *profileService) Create(ctx context.Context, actor *domain.User, nickname string) (*domain.Profile, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, domain.NewValidationError("nickname", "nickname is required")
	}

	profile := &domain.Profile{UserID: actor.ID, Nickname: nickname}
	if _, err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	return s.profiles.Get(ctx, id)
}

func (s *profileService) GetByUser(ctx context.Context, userID int64) (*domain.Profile, error) {
	return s.profiles.GetByUser(ctx, userID)
}

func (s *profileService) List(ctx context.Context) ([]domain.Profile, error) {
	return s.profiles.List(ctx)
}

func (s *profileService) UpdateNickname(ctx context.Context, actor *domain.User, id int64, nickname string) (*domain.Profile, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, domain.NewValidationError("nickname", "nickname is required")
	}
	profile, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdateNickname(ctx, id, nickname); err != nil {
		return nil, err
	}
	profile.Nickname = nickname
	return profile, nil
}

// SetAvatar uploads the image at the derived avatar path and records that path.
func (s *profileService) SetAvatar(ctx context.Context, actor *domain.User, id int64, filename string, body io.Reader, contentType string) (*domain.Profile, error) {
	if s.media == nil {
		return nil, fmt.Errorf("storage service not configured")
	}
	profile, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key, err := upload(ctx, s.media, s.logger, domain.AvatarPath(*profile, filename), body, contentType)
	if err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}
	if err := s.profiles.UpdateAvatar(ctx, id, &key); err != nil {
		if profile.Avatar == nil || *profile.Avatar != key {
			removeObjects(ctx, s.media, s.logger, key)
		}
		return nil, err
	}

	if profile.Avatar != nil && *profile.Avatar != key {
		removeObjects(ctx, s.media, s.logger, *profile.Avatar)
	}
	profile.Avatar = &key
	return profile, nil
}

func (s *profileService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	profile, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		return err
	}
	if profile.Avatar != nil {
		removeObjects(ctx, s.media, s.logger, *profile.Avatar)
	}
	return nil
}

func (s *profileService) owned(ctx context.Context, actor *domain.User, id int64) (*domain.Profile, error) {
	profile, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, profile.UserID, permChangeProfile) {
		return nil, ErrForbidden
	}
	return profile, nil
}
