package activity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"newsloop/internal/auth"
	"newsloop/internal/model"
)

// Kind tags one timeline entry.
type Kind string

const (
	KindLike    Kind = "like"
	KindComment Kind = "comment"
)

// Item is one entry in a user's activity timeline: a like or a comment,
// carrying the article snapshot embedded at write time.
type Item struct {
	Kind      Kind                  `json:"kind"`
	ID        string                `json:"id"`
	Content   string                `json:"content,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	Snapshot  model.ArticleSnapshot `json:"articleSnapshot"`
}

// RecordSource is the slice of the store the projector needs: the same
// interaction records the aggregator maintains, queried by user instead
// of by article.
type RecordSource interface {
	LikesByUser(ctx context.Context, userID string) ([]model.Like, error)
	CommentsByUser(ctx context.Context, userID string) ([]model.Comment, error)
}

// Projector builds activity timelines from interaction records.
type Projector struct {
	store    RecordSource
	identity auth.Identity
}

func NewProjector(st RecordSource, identity auth.Identity) *Projector {
	return &Projector{store: st, identity: identity}
}

// My projects the current user's own timeline. ok=false means nobody is
// signed in; the caller decides whether to prompt authentication.
func (p *Projector) My(ctx context.Context) ([]Item, bool, error) {
	user, ok := p.identity.CurrentUser()
	if !ok {
		return nil, false, nil
	}
	items, err := p.Public(ctx, user.ID)
	return items, true, err
}

// Public projects any user's timeline: all their likes and comments merged
// into one sequence, newest first. Records without an embedded snapshot
// are dropped; they predate the snapshot-embedding rule or were written by
// a misbehaving client, and either way they cannot be rendered.
func (p *Projector) Public(ctx context.Context, userID string) ([]Item, error) {
	likes, err := p.store.LikesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load likes: %w", err)
	}
	comments, err := p.store.CommentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}

	items := make([]Item, 0, len(likes)+len(comments))
	for _, l := range likes {
		if l.ArticleSnapshot == nil {
			continue
		}
		items = append(items, Item{
			Kind:      KindLike,
			ID:        l.ID,
			CreatedAt: l.CreatedAt,
			Snapshot:  *l.ArticleSnapshot,
		})
	}
	for _, c := range comments {
		if c.ArticleSnapshot == nil {
			continue
		}
		items = append(items, Item{
			Kind:      KindComment,
			ID:        c.ID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			Snapshot:  *c.ArticleSnapshot,
		})
	}

	// Creation time is the only sort key; equal timestamps keep an
	// arbitrary relative order.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}
