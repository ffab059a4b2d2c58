package domain

import "time"

// MaxTitleLength bounds Post.Title.
const MaxTitleLength = 100

// Post is authored by a single user and may be liked by any user, the author included.
type Post struct {
	ID        int64
	UserID    int64
	Title     string
	CreatedOn time.Time
	Image     *string
	Likers    []int64
}

func (p Post) String() string { return p.Title }

// LikedBy reports whether userID is in the likers set.
func (p Post) LikedBy(userID int64) bool {
	for _, id := range p.Likers {
		if id == userID {
			return true
		}
	}
	return false
}
