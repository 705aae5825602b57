package store

import (
	"context"
	"sync"

	"newsloop/internal/model"

	"go.uber.org/zap"
)

// CommentSubscription is a live view of one article's comments. C delivers
// the full current record set: once immediately on subscribe, then again
// after every write touching the article. C is closed by Unsubscribe.
type CommentSubscription struct {
	C <-chan []model.Comment

	stop func()
	once sync.Once
}

// Unsubscribe releases the subscription. Safe to call more than once, but
// exactly one call is expected per subscription.
func (s *CommentSubscription) Unsubscribe() { s.once.Do(s.stop) }

// LikeSubscription is the likes counterpart of CommentSubscription.
type LikeSubscription struct {
	C <-chan []model.Like

	stop func()
	once sync.Once
}

func (s *LikeSubscription) Unsubscribe() { s.once.Do(s.stop) }

// NewCommentSubscription wraps a raw channel in a subscription handle.
// Fake stores in other packages' tests use it to hand-feed updates.
func NewCommentSubscription(c chan []model.Comment, stop func()) *CommentSubscription {
	if stop == nil {
		stop = func() {}
	}
	return &CommentSubscription{C: c, stop: stop}
}

// NewLikeSubscription is the likes counterpart of NewCommentSubscription.
func NewLikeSubscription(c chan []model.Like, stop func()) *LikeSubscription {
	if stop == nil {
		stop = func() {}
	}
	return &LikeSubscription{C: c, stop: stop}
}

// SubscribeComments opens the pub/sub channel first, then runs the initial
// query, so no write can slip between the two unobserved.
func (s *RedisStore) SubscribeComments(ctx context.Context, articleID string) (*CommentSubscription, error) {
	ps := s.rdb.Subscribe(ctx, commentsChannel(articleID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	initial, err := s.CommentsByArticle(ctx, articleID)
	if err != nil {
		ps.Close()
		return nil, err
	}

	out := make(chan []model.Comment, 1)
	out <- initial
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case _, ok := <-ps.Channel():
				if !ok {
					return
				}
				records, err := s.CommentsByArticle(ctx, articleID)
				if err != nil {
					// Keep the last delivered set; the subscriber stays on
					// stale-but-available data.
					s.logger.Error("Comment subscription refresh failed",
						zap.String("article_id", articleID), zap.Error(err))
					continue
				}
				select {
				case out <- records:
				case <-done:
					return
				}
			}
		}
	}()

	return &CommentSubscription{
		C: out,
		stop: func() {
			close(done)
			ps.Close()
		},
	}, nil
}

// SubscribeLikes mirrors SubscribeComments for the likes collection.
func (s *RedisStore) SubscribeLikes(ctx context.Context, articleID string) (*LikeSubscription, error) {
	ps := s.rdb.Subscribe(ctx, likesChannel(articleID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	initial, err := s.LikesByArticle(ctx, articleID)
	if err != nil {
		ps.Close()
		return nil, err
	}

	out := make(chan []model.Like, 1)
	out <- initial
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case _, ok := <-ps.Channel():
				if !ok {
					return
				}
				records, err := s.LikesByArticle(ctx, articleID)
				if err != nil {
					s.logger.Error("Like subscription refresh failed",
						zap.String("article_id", articleID), zap.Error(err))
					continue
				}
				select {
				case out <- records:
				case <-done:
					return
				}
			}
		}
	}()

	return &LikeSubscription{
		C: out,
		stop: func() {
			close(done)
			ps.Close()
		},
	}, nil
}
