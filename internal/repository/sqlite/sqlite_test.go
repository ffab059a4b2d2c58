package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

type repos struct {
	db       *sql.DB
	users    repository.UserRepository
	profiles repository.ProfileRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
}

func setupRepos(t *testing.T) repos {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r := repos{
		db:       db,
		users:    NewUserRepository(db),
		profiles: NewProfileRepository(db),
		posts:    NewPostRepository(db),
		comments: NewCommentRepository(db),
	}
	require.NoError(t, InitAll(context.Background(), r.users, r.profiles, r.posts, r.comments))
	return r
}

func createUser(t *testing.T, r repos, email string) *domain.User {
	t.Helper()
	u := domain.NewUser(email)
	u.SetUnusablePassword()
	_, err := r.users.Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestOpen_ForeignKeysOnEveryConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "fk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(2)

	ctx := context.Background()
	first, err := db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sql.Conn{first, second} {
		var on int
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on))
		assert.Equal(t, 1, on)
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	u := createUser(t, r, "ann@example.com")
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := r.users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsStaff)
	assert.False(t, got.IsSuperuser)
	assert.Nil(t, got.LastLogin)

	_, err = r.users.GetByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	r := setupRepos(t)
	createUser(t, r, "ann@example.com")

	dup := domain.NewUser("ann@example.com")
	dup.SetUnusablePassword()
	_, err := r.users.Create(context.Background(), dup)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, 1, count(t, r.db, "users"))
}

func TestUserRepository_UpdateFlags(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	u := createUser(t, r, "root@example.com")

	u.IsStaff = true
	u.IsSuperuser = true
	require.NoError(t, r.users.Update(ctx, u))

	got, err := r.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsStaff)
	assert.True(t, got.IsSuperuser)

	require.NoError(t, r.users.UpdateLastLogin(ctx, u.ID, got.UpdatedAt))
	got, err = r.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLogin)
}

func TestProfileRepository_OnePerUser(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	u := createUser(t, r, "ann@example.com")

	p := &domain.Profile{UserID: u.ID, Nickname: "ann"}
	_, err := r.profiles.Create(ctx, p)
	require.NoError(t, err)
	created := p.CreatedOn

	_, err = r.profiles.Create(ctx, &domain.Profile{UserID: u.ID, Nickname: "again"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	avatar := "avatars/1ann.png"
	require.NoError(t, r.profiles.UpdateAvatar(ctx, p.ID, &avatar))
	require.NoError(t, r.profiles.UpdateNickname(ctx, p.ID, "annie"))

	got, err := r.profiles.GetByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "annie", got.Nickname)
	require.NotNil(t, got.Avatar)
	assert.Equal(t, avatar, *got.Avatar)
	assert.WithinDuration(t, created, got.CreatedOn, time.Second)
}

func TestProfileRepository_Constraints(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	u := createUser(t, r, "ann@example.com")

	_, err := r.profiles.Create(ctx, &domain.Profile{UserID: u.ID, Nickname: strings.Repeat("n", 21)})
	assert.ErrorIs(t, err, repository.ErrConstraint)

	_, err = r.profiles.Create(ctx, &domain.Profile{UserID: 404, Nickname: "ghost"})
	assert.ErrorIs(t, err, repository.ErrConstraint)
}

func TestPostRepository_LikersAreASet(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	author := createUser(t, r, "author@example.com")
	fan := createUser(t, r, "fan@example.com")

	post := &domain.Post{UserID: author.ID, Title: "hello"}
	_, err := r.posts.Create(ctx, post)
	require.NoError(t, err)

	got, err := r.posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likers)

	require.NoError(t, r.posts.AddLiker(ctx, post.ID, fan.ID))
	require.NoError(t, r.posts.AddLiker(ctx, post.ID, fan.ID))
	require.NoError(t, r.posts.AddLiker(ctx, post.ID, author.ID))

	got, err = r.posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{author.ID, fan.ID}, got.Likers)

	require.NoError(t, r.posts.RemoveLiker(ctx, post.ID, fan.ID))
	got, err = r.posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{author.ID}, got.Likers)
}

func TestPostRepository_CreateWithLikers(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	author := createUser(t, r, "author@example.com")

	post := &domain.Post{UserID: author.ID, Title: "self-liked", Likers: []int64{author.ID, author.ID}}
	_, err := r.posts.Create(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, []int64{author.ID}, post.Likers)

	posts, err := r.posts.ListByUser(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, []int64{author.ID}, posts[0].Likers)
}

func TestCommentRepository_TextBound(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	u := createUser(t, r, "ann@example.com")
	post := &domain.Post{UserID: u.ID, Title: "t"}
	_, err := r.posts.Create(ctx, post)
	require.NoError(t, err)

	_, err = r.comments.Create(ctx, &domain.Comment{UserID: u.ID, PostID: post.ID, Text: strings.Repeat("x", 100)})
	require.NoError(t, err)

	_, err = r.comments.Create(ctx, &domain.Comment{UserID: u.ID, PostID: post.ID, Text: strings.Repeat("x", 101)})
	assert.ErrorIs(t, err, repository.ErrConstraint)

	_, err = r.comments.Create(ctx, &domain.Comment{UserID: u.ID, PostID: 404, Text: "orphan"})
	assert.ErrorIs(t, err, repository.ErrConstraint)

	comments, err := r.comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	doomed := createUser(t, r, "doomed@example.com")
	other := createUser(t, r, "other@example.com")

	_, err := r.profiles.Create(ctx, &domain.Profile{UserID: doomed.ID, Nickname: "d"})
	require.NoError(t, err)
	_, err = r.profiles.Create(ctx, &domain.Profile{UserID: other.ID, Nickname: "o"})
	require.NoError(t, err)

	doomedPost := &domain.Post{UserID: doomed.ID, Title: "mine"}
	_, err = r.posts.Create(ctx, doomedPost)
	require.NoError(t, err)
	otherPost := &domain.Post{UserID: other.ID, Title: "theirs"}
	_, err = r.posts.Create(ctx, otherPost)
	require.NoError(t, err)

	require.NoError(t, r.posts.AddLiker(ctx, otherPost.ID, doomed.ID))
	require.NoError(t, r.posts.AddLiker(ctx, doomedPost.ID, other.ID))

	_, err = r.comments.Create(ctx, &domain.Comment{UserID: other.ID, PostID: doomedPost.ID, Text: "on doomed post"})
	require.NoError(t, err)
	_, err = r.comments.Create(ctx, &domain.Comment{UserID: doomed.ID, PostID: otherPost.ID, Text: "by doomed user"})
	require.NoError(t, err)
	kept := &domain.Comment{UserID: other.ID, PostID: otherPost.ID, Text: "survives"}
	_, err = r.comments.Create(ctx, kept)
	require.NoError(t, err)

	require.NoError(t, r.users.Delete(ctx, doomed.ID))

	assert.Equal(t, 1, count(t, r.db, "users"))
	assert.Equal(t, 1, count(t, r.db, "profiles"))
	assert.Equal(t, 1, count(t, r.db, "posts"))
	assert.Equal(t, 0, count(t, r.db, "post_likes"))
	assert.Equal(t, 1, count(t, r.db, "comments"))

	_, err = r.comments.Get(ctx, kept.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, r.users.Delete(ctx, doomed.ID), repository.ErrNotFound)
}

func TestUserRepository_ForeignKeysCascadeWithoutExplicitWalk(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	u := createUser(t, r, "fk@example.com")

	post := &domain.Post{UserID: u.ID, Title: "fk"}
	_, err := r.posts.Create(ctx, post)
	require.NoError(t, err)
	_, err = r.comments.Create(ctx, &domain.Comment{UserID: u.ID, PostID: post.ID, Text: "c"})
	require.NoError(t, err)

	_, err = r.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, u.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, count(t, r.db, "posts"))
	assert.Equal(t, 0, count(t, r.db, "comments"))
}

func TestPostRepository_DeleteCascadesComments(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()
	u := createUser(t, r, "ann@example.com")
	post := &domain.Post{UserID: u.ID, Title: "t"}
	_, err := r.posts.Create(ctx, post)
	require.NoError(t, err)
	require.NoError(t, r.posts.AddLiker(ctx, post.ID, u.ID))
	_, err = r.comments.Create(ctx, &domain.Comment{UserID: u.ID, PostID: post.ID, Text: "c"})
	require.NoError(t, err)

	require.NoError(t, r.posts.Delete(ctx, post.ID))
	assert.Equal(t, 0, count(t, r.db, "comments"))
	assert.Equal(t, 0, count(t, r.db, "post_likes"))
	assert.Equal(t, 1, count(t, r.db, "users"))
}
