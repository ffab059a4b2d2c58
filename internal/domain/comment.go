package domain

// MaxCommentLength bounds Comment.Text.
const MaxCommentLength = 100

// Comment belongs to one post and one author and goes away with either.
type Comment struct {
	ID     int64
	UserID int64
	PostID int64
	Text   string
}

func (c Comment) String() string { return c.Text }
