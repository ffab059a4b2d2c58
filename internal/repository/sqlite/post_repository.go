package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	title TEXT NOT NULL CHECK (length(title) <= 100),
	created_on DATETIME NOT NULL,
	image TEXT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
CREATE TABLE IF NOT EXISTS post_likes (
	post_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	PRIMARY KEY (post_id, user_id),
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_post_likes_user_id ON post_likes(user_id);
`

const selectPostColumns = `
SELECT id, user_id, title, created_on, image
FROM posts`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

// Create inserts the post and its initial likers in one transaction.
func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	post.CreatedOn = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	res, err := tx.ExecContext(ctx, `
INSERT INTO posts (user_id, title, created_on, image)
VALUES (?, ?, ?, ?)`,
		post.UserID,
		post.Title,
		post.CreatedOn,
		nullString(post.Image),
	)
	if err != nil {
		return 0, translate("insert post", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}

	for _, userID := range post.Likers {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO post_likes (post_id, user_id) VALUES (?, ?)`, id, userID); err != nil {
			return 0, translate("insert post liker", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	post.ID = id
	post.Likers = dedupe(post.Likers)
	return id, nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, selectPostColumns+`
WHERE id=?`, id))
	if err != nil {
		return nil, err
	}
	if post.Likers, err = r.likers(ctx, post.ID); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *PostRepository) List(ctx context.Context) ([]domain.Post, error) {
	return r.list(ctx, selectPostColumns+`
ORDER BY id DESC`)
}

func (r *PostRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Post, error) {
	return r.list(ctx, selectPostColumns+`
WHERE user_id=?
ORDER BY id DESC`, userID)
}

func (r *PostRepository) list(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the only connection before querying likers
	rows.Close()

	for i := range posts {
		if posts[i].Likers, err = r.likers(ctx, posts[i].ID); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (r *PostRepository) UpdateTitle(ctx context.Context, id int64, title string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET title=? WHERE id=?`, title, id)
	if err != nil {
		return translate("update post title", err)
	}
	return expectAffected("update post title", res)
}

func (r *PostRepository) UpdateImage(ctx context.Context, id int64, image *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET image=? WHERE id=?`, nullString(image), id)
	if err != nil {
		return translate("update post image", err)
	}
	return expectAffected("update post image", res)
}

// AddLiker is idempotent: liking twice leaves the set unchanged.
func (r *PostRepository) AddLiker(ctx context.Context, postID, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO post_likes (post_id, user_id) VALUES (?, ?)`, postID, userID); err != nil {
		return translate("add post liker", err)
	}
	return nil
}

func (r *PostRepository) RemoveLiker(ctx context.Context, postID, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id=? AND user_id=?`, postID, userID); err != nil {
		return translate("remove post liker", err)
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id=?`, id); err != nil {
		return fmt.Errorf("delete post comments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id=?`, id); err != nil {
		return fmt.Errorf("delete post likes: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id=?`, id)
	if err != nil {
		return translate("delete post", err)
	}
	if err := expectAffected("delete post", res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit post delete: %w", err)
	}
	return nil
}

func (r *PostRepository) likers(ctx context.Context, postID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM post_likes WHERE post_id=? ORDER BY user_id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("query post likers: %w", err)
	}
	defer rows.Close()

	likers := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan post liker: %w", err)
		}
		likers = append(likers, id)
	}
	return likers, rows.Err()
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var (
		post  domain.Post
		image sql.NullString
	)
	if err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.CreatedOn, &image); err != nil {
		return nil, translate("scan post", err)
	}
	post.Image = stringPtr(image)
	return &post, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
