package domain

import "time"

// MaxNicknameLength bounds Profile.Nickname.
const MaxNicknameLength = 20

// Profile is the public face of a user. Each user owns at most one.
type Profile struct {
	ID        int64
	UserID    int64
	Nickname  string
	CreatedOn time.Time
	Avatar    *string
}

func (p Profile) String() string { return p.Nickname }
