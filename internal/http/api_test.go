package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/internal/domain"
	"postboard/internal/repository/sqlite"
	"postboard/internal/service"
	"postboard/internal/storage"
)

type testServer struct {
	router *gin.Engine
	users  service.UserService
	media  *storage.MemoryService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	users := service.NewUserService(userRepo, profileRepo, postRepo, media, logger)
	handler := NewHandler(Deps{
		Users:    users,
		Profiles: service.NewProfileService(profileRepo, media, logger),
		Posts:    service.NewPostService(postRepo, media, logger),
		Comments: service.NewCommentService(commentRepo, postRepo),
		Storage:  media,
		Tokens:   tokens,
		Logger:   logger,
	})

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router, users: users, media: media}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "Ann@EXAMPLE.com", "password": "password1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	user := decode[UserResponse](t, rec)
	assert.Equal(t, "Ann@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsStaff)

	rec = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "Ann@example.COM", "password": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "Ann@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterLongPassword(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "long@example.com", string(bytes.Repeat([]byte("p"), 80)))
	assert.NotEmpty(t, token)
}

func TestErrorBodiesHideStoreDetails(t *testing.T) {
	s := newTestServer(t)
	ann := s.login(t, "ann@example.com", "password1")

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": string(bytes.Repeat([]byte("a"), 60)) + "@example.com"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "constraint violation", decode[map[string]string](t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/profiles", ann, gin.H{"nickname": "ann"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/profiles", ann, gin.H{"nickname": "again"})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]string](t, rec)["error"]
	assert.Equal(t, "already exists", body)
	assert.NotContains(t, body, "UNIQUE")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/posts", "", gin.H{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostLifecycle(t *testing.T) {
	s := newTestServer(t)
	ann := s.login(t, "ann@example.com", "password1")
	bob := s.login(t, "bob@example.com", "password2")

	rec := s.do(t, http.MethodPost, "/api/posts", ann, gin.H{"title": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	post := decode[PostResponse](t, rec)
	assert.Empty(t, post.Liked)

	path := fmt.Sprintf("/api/posts/%d", post.ID)
	rec = s.do(t, http.MethodPost, path+"/like", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, path+"/like", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[PostResponse](t, rec).Liked, 1)

	rec = s.do(t, http.MethodPost, path+"/comments", bob, gin.H{"text": "nice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, path+"/comments", bob, gin.H{"text": string(bytes.Repeat([]byte("x"), 101))})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, path+"/comments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]CommentResponse](t, rec), 1)

	rec = s.do(t, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, path, ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadAvatar(t *testing.T) {
	s := newTestServer(t)
	ann := s.login(t, "ann@example.com", "password1")

	rec := s.do(t, http.MethodPost, "/api/profiles", ann, gin.H{"nickname": "ann"})
	require.Equal(t, http.StatusCreated, rec.Code)
	profile := decode[ProfileResponse](t, rec)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/profiles/%d/avatar", profile.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ann)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decode[ProfileResponse](t, rec)
	require.NotNil(t, updated.Avatar)
	assert.Equal(t, fmt.Sprintf("avatars/%dann.png", profile.UserID), *updated.Avatar)
	require.NotNil(t, updated.AvatarURL)

	data, ok := s.media.Get(*updated.Avatar)
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(data))
}

func TestDeleteMeCascades(t *testing.T) {
	s := newTestServer(t)
	ann := s.login(t, "ann@example.com", "password1")

	rec := s.do(t, http.MethodPost, "/api/posts", ann, gin.H{"title": "bye"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/me", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]PostResponse](t, rec))

	rec = s.do(t, http.MethodGet, "/api/me", ann, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStorageObjectsStaffOnly(t *testing.T) {
	s := newTestServer(t)
	ann := s.login(t, "ann@example.com", "password1")

	rec := s.do(t, http.MethodGet, "/api/storage/objects", ann, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err := s.users.CreateSuperuser(context.Background(), "root@example.com", "rootpass")
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "root@example.com", "password": "rootpass"})
	require.Equal(t, http.StatusOK, rec.Code)
	root := decode[TokenResponse](t, rec)
	assert.True(t, root.User.IsSuperuser)

	rec = s.do(t, http.MethodGet, "/api/storage/objects", root.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenIssuer(t *testing.T) {
	issuer, err := NewTokenIssuer("k", time.Minute)
	require.NoError(t, err)

	now := time.Now()
	issuer.now = func() time.Time { return now }

	token, expires, err := issuer.Issue(&domain.User{ID: 42})
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Minute), expires, time.Second)

	id, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	issuer.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenIssuer("other", time.Minute)
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenIssuer(" ", time.Minute)
	assert.Error(t, err)
}
