package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"postboard/internal/domain"
	"postboard/internal/repository"
	"postboard/internal/repository/sqlite"
	"postboard/internal/storage"
)

type fixture struct {
	db       *sql.DB
	media    *storage.MemoryService
	users    UserService
	profiles ProfileService
	posts    PostService
	comments CommentService

	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	postRepo    repository.PostRepository
	logger      *logrus.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	profileRepo := sqlite.NewProfileRepository(db)
	postRepo := sqlite.NewPostRepository(db)
	commentRepo := sqlite.NewCommentRepository(db)
	require.NoError(t, sqlite.InitAll(context.Background(), userRepo, profileRepo, postRepo, commentRepo))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	media := storage.NewMemoryService("")

	return &fixture{
		db:       db,
		media:    media,
		users:    NewUserService(userRepo, profileRepo, postRepo, media, logger),
		profiles: NewProfileService(profileRepo, media, logger),
		posts:    NewPostService(postRepo, media, logger),
		comments: NewCommentService(commentRepo, postRepo),
		userRepo:    userRepo,
		profileRepo: profileRepo,
		postRepo:    postRepo,
		logger:      logger,
	}
}

func (f *fixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	pw := "password1"
	u, err := f.users.CreateUser(context.Background(), email, &pw)
	require.NoError(t, err)
	return u
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

var errStoreDown = errors.New("store down")

// The failing* repositories wrap the real ones and fail the write that follows a first successful step.
type failingUserUpdate struct {
	repository.UserRepository
}

func (failingUserUpdate) Update(context.Context, *domain.User) error { return errStoreDown }

type failingImageUpdate struct {
	repository.PostRepository
}

func (failingImageUpdate) UpdateImage(context.Context, int64, *string) error { return errStoreDown }

type failingAvatarUpdate struct {
	repository.ProfileRepository
}

func (failingAvatarUpdate) UpdateAvatar(context.Context, int64, *string) error { return errStoreDown }
