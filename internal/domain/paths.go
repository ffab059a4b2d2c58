package domain

import (
	"strconv"
	"strings"
)

const (
	avatarDir    = "avatars"
	postImageDir = "posts"
)

// AvatarPath returns the storage key for a profile's avatar:
// avatars/{owner id}{nickname}.{ext}. Uploads with the same owner, nickname
// and extension map to the same key.
func AvatarPath(p Profile, filename string) string {
	return joinKey(avatarDir, strconv.FormatInt(p.UserID, 10)+p.Nickname+"."+extension(filename))
}

// PostImagePath returns the storage key for a post image:
// posts/{author id}{title}.{ext}.
func PostImagePath(p Post, filename string) string {
	return joinKey(postImageDir, strconv.FormatInt(p.UserID, 10)+p.Title+"."+extension(filename))
}

// extension is whatever follows the last dot; a name without a dot has none.
func extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return filename[i+1:]
}

func joinKey(parts ...string) string {
	return strings.Join(parts, "/")
}
