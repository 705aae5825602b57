package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"newsloop/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key layout:
//
//	comment:<id> / like:<id>          JSON record bodies
//	comments:article:<aid>            ZSET of comment ids, score = CreatedAt
//	likes:article:<aid>               ZSET of like ids
//	comments:user:<uid>               ZSET of comment ids
//	likes:user:<uid>                  ZSET of like ids
//	action:<uid>:<aid>                JSON UserAction summary
//	actions:user:<uid>                ZSET of article ids
//	queue:prefetch                    LIST of article URLs
//
// Pub/sub channels likes.<aid> and comments.<aid> carry a bare
// notification after every write; subscribers re-query on each one.

// RedisStore implements Store on a Redis instance.
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr string, logger *zap.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{rdb: rdb, logger: logger}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() {
	if s.rdb != nil {
		s.rdb.Close()
	}
}

func commentKey(id string) string { return "comment:" + id }
func likeKey(id string) string    { return "like:" + id }

func commentsChannel(aid string) string { return "comments." + aid }
func likesChannel(aid string) string    { return "likes." + aid }

// CreateComment assigns id and timestamp, writes the record body plus the
// article and user indexes, then notifies subscribers.
func (s *RedisStore) CreateComment(ctx context.Context, c model.Comment) (model.Comment, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(c)
	if err != nil {
		return model.Comment{}, err
	}

	member := redis.Z{Score: float64(c.CreatedAt.UnixNano()), Member: c.ID}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, commentKey(c.ID), data, 0)
	pipe.ZAdd(ctx, "comments:article:"+c.ArticleID, member)
	pipe.ZAdd(ctx, "comments:user:"+c.UserID, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.Comment{}, err
	}

	s.notify(ctx, commentsChannel(c.ArticleID))
	return c, nil
}

// CreateLike mirrors CreateComment for the likes collection.
func (s *RedisStore) CreateLike(ctx context.Context, l model.Like) (model.Like, error) {
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(l)
	if err != nil {
		return model.Like{}, err
	}

	member := redis.Z{Score: float64(l.CreatedAt.UnixNano()), Member: l.ID}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, likeKey(l.ID), data, 0)
	pipe.ZAdd(ctx, "likes:article:"+l.ArticleID, member)
	pipe.ZAdd(ctx, "likes:user:"+l.UserID, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.Like{}, err
	}

	s.notify(ctx, likesChannel(l.ArticleID))
	return l, nil
}

// DeleteLike removes the record and its index entries (hard delete).
func (s *RedisStore) DeleteLike(ctx context.Context, likeID string) error {
	val, err := s.rdb.Get(ctx, likeKey(likeID)).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	var l model.Like
	if err := json.Unmarshal(val, &l); err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, likeKey(likeID))
	pipe.ZRem(ctx, "likes:article:"+l.ArticleID, likeID)
	pipe.ZRem(ctx, "likes:user:"+l.UserID, likeID)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	s.notify(ctx, likesChannel(l.ArticleID))
	return nil
}

func (s *RedisStore) CommentsByArticle(ctx context.Context, articleID string) ([]model.Comment, error) {
	return s.comments(ctx, "comments:article:"+articleID)
}

func (s *RedisStore) CommentsByUser(ctx context.Context, userID string) ([]model.Comment, error) {
	return s.comments(ctx, "comments:user:"+userID)
}

func (s *RedisStore) LikesByArticle(ctx context.Context, articleID string) ([]model.Like, error) {
	return s.likes(ctx, "likes:article:"+articleID)
}

func (s *RedisStore) LikesByUser(ctx context.Context, userID string) ([]model.Like, error) {
	return s.likes(ctx, "likes:user:"+userID)
}

// comments resolves an index ZSET into record bodies, newest first. Ids
// whose body has vanished are skipped rather than failing the whole read.
func (s *RedisStore) comments(ctx context.Context, indexKey string) ([]model.Comment, error) {
	ids, err := s.rdb.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	comments := make([]model.Comment, 0, len(ids))
	for _, id := range ids {
		val, err := s.rdb.Get(ctx, commentKey(id)).Bytes()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return nil, err
		}
		var c model.Comment
		if err := json.Unmarshal(val, &c); err == nil {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

func (s *RedisStore) likes(ctx context.Context, indexKey string) ([]model.Like, error) {
	ids, err := s.rdb.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	likes := make([]model.Like, 0, len(ids))
	for _, id := range ids {
		val, err := s.rdb.Get(ctx, likeKey(id)).Bytes()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return nil, err
		}
		var l model.Like
		if err := json.Unmarshal(val, &l); err == nil {
			likes = append(likes, l)
		}
	}
	return likes, nil
}

// RecordUserAction merges the new summary into any existing one. Flags
// only flip on; the snapshot and timestamp follow the latest write.
func (s *RedisStore) RecordUserAction(ctx context.Context, action model.UserAction) error {
	key := fmt.Sprintf("action:%s:%s", action.UserID, action.ArticleID)

	val, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var prev model.UserAction
		if err := json.Unmarshal(val, &prev); err == nil {
			action.Liked = action.Liked || prev.Liked
			action.Commented = action.Commented || prev.Commented
		}
	} else if err != redis.Nil {
		return err
	}

	data, err := json.Marshal(action)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.ZAdd(ctx, "actions:user:"+action.UserID, redis.Z{
		Score:  float64(action.LastInteractionAt.UnixNano()),
		Member: action.ArticleID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// UserActions lists a user's merged summaries, latest interaction first.
func (s *RedisStore) UserActions(ctx context.Context, userID string) ([]model.UserAction, error) {
	articleIDs, err := s.rdb.ZRevRange(ctx, "actions:user:"+userID, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	actions := make([]model.UserAction, 0, len(articleIDs))
	for _, aid := range articleIDs {
		val, err := s.rdb.Get(ctx, fmt.Sprintf("action:%s:%s", userID, aid)).Bytes()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return nil, err
		}
		var a model.UserAction
		if err := json.Unmarshal(val, &a); err == nil {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

// EnqueuePrefetch queues an article URL for the readable-content worker.
func (s *RedisStore) EnqueuePrefetch(ctx context.Context, url string) error {
	return s.rdb.LPush(ctx, "queue:prefetch", url).Err()
}

// PopPrefetch blocks until a URL is queued.
func (s *RedisStore) PopPrefetch(ctx context.Context) (string, error) {
	result, err := s.rdb.BRPop(ctx, 0, "queue:prefetch").Result()
	if err != nil {
		return "", err
	}
	return result[1], nil
}

// notify wakes subscribers on a pub/sub channel. Delivery failures are
// logged and swallowed: the write itself already succeeded.
func (s *RedisStore) notify(ctx context.Context, channel string) {
	if err := s.rdb.Publish(ctx, channel, "1").Err(); err != nil {
		s.logger.Error("Failed to publish store notification",
			zap.String("channel", channel), zap.Error(err))
	}
}
