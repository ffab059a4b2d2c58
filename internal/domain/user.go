package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UnusablePasswordPrefix marks a stored hash that can never match a password.
const UnusablePasswordPrefix = "!"

// Authenticatable is implemented by records that can be logged into with a password.
type Authenticatable interface {
	LoginKey() string
	SetPassword(raw string) error
	SetUnusablePassword()
	HasUsablePassword() bool
	CheckPassword(raw string) bool
}

// PermissionHolder exposes the role flags of an identity.
type PermissionHolder interface {
	IsStaffMember() bool
	IsSuperuserMember() bool
	HasPerm(perm string) bool
}

// User is the authenticable identity. Email is the only login key.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	_ Authenticatable  = (*User)(nil)
	_ PermissionHolder = (*User)(nil)
)

// NewUser returns a user with the default flags: active, not staff, not superuser.
func NewUser(email string) *User {
	return &User{
		Email:    NormalizeEmail(email),
		IsActive: true,
	}
}

func (u *User) LoginKey() string { return u.Email }

func (u *User) SetPassword(raw string) error {
	hash, err := bcrypt.GenerateFromPassword(prehash(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// SetUnusablePassword stores a random marker that no password hashes to.
func (u *User) SetUnusablePassword() {
	u.PasswordHash = UnusablePasswordPrefix + uuid.NewString()
}

func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, UnusablePasswordPrefix)
}

func (u *User) CheckPassword(raw string) bool {
	if !u.HasUsablePassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), prehash(raw)) == nil
}

// prehash folds a password of any length into 44 bytes, under bcrypt's 72 byte limit.
func prehash(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func (u *User) IsStaffMember() bool { return u.IsStaff }

func (u *User) IsSuperuserMember() bool { return u.IsSuperuser }

// HasPerm reports whether the user holds perm. There is no per-permission table,
// so only active superusers hold any permission.
func (u *User) HasPerm(perm string) bool {
	return u.IsActive && u.IsSuperuser
}

func (u *User) String() string { return u.Email }

// NormalizeEmail trims the address and lowercases the domain part. The local
// part is case sensitive and is left alone.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
