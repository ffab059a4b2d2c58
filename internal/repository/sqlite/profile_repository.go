package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

const createProfilesTable = `
CREATE TABLE IF NOT EXISTS profiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL UNIQUE,
	nickname TEXT NOT NULL CHECK (length(nickname) <= 20),
	created_on DATETIME NOT NULL,
	avatar TEXT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

const selectProfileColumns = `
SELECT id, user_id, nickname, created_on, avatar
FROM profiles`

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProfilesTable); err != nil {
		return fmt.Errorf("create profiles table: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) (int64, error) {
	profile.CreatedOn = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO profiles (user_id, nickname, created_on, avatar)
VALUES (?, ?, ?, ?)`,
		profile.UserID,
		profile.Nickname,
		profile.CreatedOn,
		nullString(profile.Avatar),
	)
	if err != nil {
		return 0, translate("insert profile", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("profile last insert id: %w", err)
	}
	profile.ID = id
	return id, nil
}

func (r *ProfileRepository) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	return scanProfile(r.db.QueryRowContext(ctx, selectProfileColumns+`
WHERE id=?`, id))
}

func (r *ProfileRepository) GetByUser(ctx context.Context, userID int64) (*domain.Profile, error) {
	return scanProfile(r.db.QueryRowContext(ctx, selectProfileColumns+`
WHERE user_id=?`, userID))
}

func (r *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, selectProfileColumns+`
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

func (r *ProfileRepository) UpdateNickname(ctx context.Context, id int64, nickname string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET nickname=? WHERE id=?`, nickname, id)
	if err != nil {
		return translate("update profile nickname", err)
	}
	return expectAffected("update profile nickname", res)
}

func (r *ProfileRepository) UpdateAvatar(ctx context.Context, id int64, avatar *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET avatar=? WHERE id=?`, nullString(avatar), id)
	if err != nil {
		return translate("update profile avatar", err)
	}
	return expectAffected("update profile avatar", res)
}

func (r *ProfileRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id=?`, id)
	if err != nil {
		return translate("delete profile", err)
	}
	return expectAffected("delete profile", res)
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		profile domain.Profile
		avatar  sql.NullString
	)
	if err := row.Scan(&profile.ID, &profile.UserID, &profile.Nickname, &profile.CreatedOn, &avatar); err != nil {
		return nil, translate("scan profile", err)
	}
	profile.Avatar = stringPtr(avatar)
	return &profile, nil
}
