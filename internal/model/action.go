package model

import "time"

// UserAction is a merged, last-write-wins summary of how one user touched
// one article, kept for profile display. Unlike Likes and Comments it is
// upserted in place: flags only flip on, and LastInteractionAt always
// advances to the latest write.
type UserAction struct {
	ArticleID         string          `json:"articleId"`
	UserID            string          `json:"userId"`
	Liked             bool            `json:"liked"`
	Commented         bool            `json:"commented"`
	Snapshot          ArticleSnapshot `json:"snapshot"`
	LastInteractionAt time.Time       `json:"lastInteractionAt"`
}
