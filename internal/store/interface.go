package store

import (
	"context"
	"errors"

	"newsloop/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Store is the typed gateway to the document store holding interaction
// records. It performs no business validation; preconditions (auth,
// non-empty content, one like per user) live in the aggregator.
type Store interface {
	// Writes. The store assigns the record id and the creation timestamp;
	// the returned record carries both.
	CreateComment(ctx context.Context, c model.Comment) (model.Comment, error)
	CreateLike(ctx context.Context, l model.Like) (model.Like, error)
	DeleteLike(ctx context.Context, likeID string) error

	// One-shot queries, ordered by creation time descending.
	CommentsByArticle(ctx context.Context, articleID string) ([]model.Comment, error)
	LikesByArticle(ctx context.Context, articleID string) ([]model.Like, error)
	CommentsByUser(ctx context.Context, userID string) ([]model.Comment, error)
	LikesByUser(ctx context.Context, userID string) ([]model.Like, error)

	// Live subscriptions. Each delivers the current record set immediately
	// and a fresh set after every write touching the article. Exactly one
	// Unsubscribe call is expected per subscription; extra calls are safe.
	SubscribeComments(ctx context.Context, articleID string) (*CommentSubscription, error)
	SubscribeLikes(ctx context.Context, articleID string) (*LikeSubscription, error)

	// RecordUserAction merges a per-(user, article) interaction summary,
	// last write wins.
	RecordUserAction(ctx context.Context, action model.UserAction) error
	UserActions(ctx context.Context, userID string) ([]model.UserAction, error)

	// Prefetch queue feeding the readable-content worker.
	EnqueuePrefetch(ctx context.Context, url string) error
	PopPrefetch(ctx context.Context) (string, error)
}
