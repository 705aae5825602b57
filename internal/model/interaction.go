package model

import "time"

// Like marks that one user liked one article. At most one Like exists per
// (ArticleID, UserID) pair; the aggregator's toggle enforces that, not the
// store.
type Like struct {
	ID              string           `json:"id"`
	ArticleID       string           `json:"articleId"`
	UserID          string           `json:"userId"`
	Username        string           `json:"username"`
	UserPhoto       string           `json:"userPhoto"`
	CreatedAt       time.Time        `json:"createdAt"`
	ArticleSnapshot *ArticleSnapshot `json:"articleSnapshot,omitempty"`
}

// Comment is a user's comment on one article. Comments are append-only:
// there is no edit or delete path.
type Comment struct {
	ID              string           `json:"id"`
	ArticleID       string           `json:"articleId"`
	UserID          string           `json:"userId"`
	Username        string           `json:"username"`
	UserPhoto       string           `json:"userPhoto"`
	Content         string           `json:"content"`
	CreatedAt       time.Time        `json:"createdAt"`
	ArticleSnapshot *ArticleSnapshot `json:"articleSnapshot,omitempty"`
}

// Interaction is the live-computed view of one article's likes and
// comments. It is recomputed from store subscriptions and never persisted.
type Interaction struct {
	ArticleID     string    `json:"articleId"`
	Comments      []Comment `json:"comments"`
	Likes         []Like    `json:"likes"`
	LikesCount    int       `json:"likesCount"`
	CommentsCount int       `json:"commentsCount"`
}

// LikeBy reports whether userID has a live Like in the aggregate and
// returns it.
func (in Interaction) LikeBy(userID string) (Like, bool) {
	for _, l := range in.Likes {
		if l.UserID == userID {
			return l, true
		}
	}
	return Like{}, false
}
