package interactions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"newsloop/internal/auth"
	"newsloop/internal/model"
	"newsloop/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *store.RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	st, err := store.NewRedisStore(mr.Addr(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func testUser(id, name string) auth.Identity {
	return auth.Static{User: model.User{ID: id, Username: name, DisplayName: name}}
}

func testArticle(id string) *model.Article {
	return &model.Article{
		ID:    id,
		Title: "Some headline",
		URL:   "https://example.com/" + id,
	}
}

// waitLiked polls until the live aggregate reflects the wanted like state.
func waitLiked(t *testing.T, agg *Aggregator, want bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, liked := agg.Interaction()
		return liked == want
	}, 2*time.Second, 10*time.Millisecond, "aggregate never reached isLiked=%v", want)
}

func TestToggleLike_RoundTripLeavesNoRecords(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	article := testArticle("a1")

	agg := NewAggregator(st, testUser("u1", "alice"), zap.NewNop())
	_, err := agg.Observe(ctx, article)
	require.NoError(t, err)
	defer agg.Unobserve()

	// Not liked -> liked
	require.NoError(t, agg.ToggleLike(ctx))
	waitLiked(t, agg, true)

	// Liked -> not liked
	require.NoError(t, agg.ToggleLike(ctx))
	waitLiked(t, agg, false)

	likes, err := st.LikesByArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Empty(t, likes, "a full toggle round trip must leave zero like records")
}

func TestToggleLike_EmbedsDefaultedSnapshot(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	// Article with most display fields missing
	article := &model.Article{ID: "a1", Title: "Only a title", URL: "https://example.com/a1"}

	agg := NewAggregator(st, testUser("u1", "alice"), zap.NewNop())
	_, err := agg.Observe(ctx, article)
	require.NoError(t, err)
	defer agg.Unobserve()

	require.NoError(t, agg.ToggleLike(ctx))

	likes, err := st.LikesByArticle(ctx, article.ID)
	require.NoError(t, err)
	require.Len(t, likes, 1)

	snap := likes[0].ArticleSnapshot
	require.NotNil(t, snap, "every like must carry the article snapshot")
	assert.Equal(t, "Only a title", snap.Title)
	assert.Equal(t, "", snap.Description)
	assert.Equal(t, model.DefaultSourceName, snap.Source.Name)
	assert.NotEmpty(t, snap.PublishedAt)
}

func TestLikesCount_ConvergesAcrossUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	article := testArticle("a1")

	users := []string{"u1", "u2", "u3"}
	for _, uid := range users {
		agg := NewAggregator(st, testUser(uid, uid), zap.NewNop())
		_, err := agg.Observe(ctx, article)
		require.NoError(t, err)
		require.NoError(t, agg.ToggleLike(ctx))
		agg.Unobserve()
	}

	observer := NewAggregator(st, auth.Anonymous{}, zap.NewNop())
	_, err := observer.Observe(ctx, article)
	require.NoError(t, err)
	defer observer.Unobserve()

	require.Eventually(t, func() bool {
		in, _ := observer.Interaction()
		return in.LikesCount == len(users)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMutations_RejectedWithoutUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	article := testArticle("a1")

	agg := NewAggregator(st, auth.Anonymous{}, zap.NewNop())
	_, err := agg.Observe(ctx, article)
	require.NoError(t, err)
	defer agg.Unobserve()

	assert.ErrorIs(t, agg.ToggleLike(ctx), ErrAuthRequired)
	assert.ErrorIs(t, agg.AddComment(ctx, "hello"), ErrAuthRequired)

	likes, err := st.LikesByArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)

	comments, err := st.CommentsByArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestAddComment_WhitespaceOnlyIsNoOp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	article := testArticle("a1")

	agg := NewAggregator(st, testUser("u1", "alice"), zap.NewNop())
	_, err := agg.Observe(ctx, article)
	require.NoError(t, err)
	defer agg.Unobserve()

	require.NoError(t, agg.AddComment(ctx, "   \t  "))

	comments, err := st.CommentsByArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestAddComment_TrimsAndStores(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	article := testArticle("a1")

	agg := NewAggregator(st, testUser("u1", "alice"), zap.NewNop())
	_, err := agg.Observe(ctx, article)
	require.NoError(t, err)
	defer agg.Unobserve()

	require.NoError(t, agg.AddComment(ctx, "  well said  "))

	comments, err := st.CommentsByArticle(ctx, article.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "well said", comments[0].Content)
	assert.Equal(t, "alice", comments[0].Username)
	require.NotNil(t, comments[0].ArticleSnapshot)
}

func TestObserve_SwitchingArticlesIsolatesAggregates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	agg := NewAggregator(st, testUser("u1", "alice"), zap.NewNop())
	_, err := agg.Observe(ctx, testArticle("a1"))
	require.NoError(t, err)

	_, err = agg.Observe(ctx, testArticle("a2"))
	require.NoError(t, err)
	defer agg.Unobserve()

	// A write against the previously observed article must not leak into
	// the new aggregate.
	_, err = st.CreateLike(ctx, model.Like{
		ArticleID: "a1", UserID: "u9",
		ArticleSnapshot: &model.ArticleSnapshot{ID: "a1", Title: "stale"},
	})
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)

	in, _ := agg.Interaction()
	assert.Equal(t, "a2", in.ArticleID)
	assert.Zero(t, in.LikesCount)
}

func TestObserve_UpdatesChannelDeliversRecomputes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	article := testArticle("a1")

	agg := NewAggregator(st, testUser("u1", "alice"), zap.NewNop())
	updates, err := agg.Observe(ctx, article)
	require.NoError(t, err)
	defer agg.Unobserve()

	require.NoError(t, agg.ToggleLike(ctx))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case in, open := <-updates:
			require.True(t, open, "updates closed before the write arrived")
			if in.LikesCount == 1 {
				return
			}
		case <-deadline:
			t.Fatal("no recompute delivered after the like write")
		}
	}
}

func TestToggleLike_AbortedWhenNothingObserved(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// No Observe call: there is no article to snapshot, so the toggle must
	// abort without writing or crashing.
	agg := NewAggregator(st, testUser("u1", "alice"), zap.NewNop())
	require.NoError(t, agg.ToggleLike(ctx))

	likes, err := st.LikesByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, likes)
}

func TestToggleLike_RecordsUserActionAndPrefetch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	article := testArticle("a1")

	agg := NewAggregator(st, testUser("u1", "alice"), zap.NewNop())
	_, err := agg.Observe(ctx, article)
	require.NoError(t, err)
	defer agg.Unobserve()

	require.NoError(t, agg.ToggleLike(ctx))

	actions, err := st.UserActions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.True(t, actions[0].Liked)
	assert.False(t, actions[0].Commented)

	url, err := st.PopPrefetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, article.URL, url)
}

func TestToggleLike_ImmediateRetoggleSeesOwnWrite(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	article := testArticle("a1")

	agg := NewAggregator(st, testUser("u1", "alice"), zap.NewNop())
	_, err := agg.Observe(ctx, article)
	require.NoError(t, err)
	defer agg.Unobserve()

	// No waiting between the calls: the first write is folded into the
	// aggregate locally, so the second toggle must see "liked" and delete
	// rather than creating a duplicate.
	require.NoError(t, agg.ToggleLike(ctx))
	_, liked := agg.Interaction()
	require.True(t, liked, "own write must be visible before the store pushes it back")

	require.NoError(t, agg.ToggleLike(ctx))
	waitLiked(t, agg, false)

	likes, err := st.LikesByArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Empty(t, likes, "back-to-back toggles must leave zero like records")
}

// fakeStore satisfies store.Store with hand-fed subscription channels, for
// failure paths a real backend will not produce on demand.
type fakeStore struct {
	mu            sync.Mutex
	likes         []model.Like
	comments      []model.Comment
	createLikeErr error

	likeC    chan []model.Like
	commentC chan []model.Comment
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		likeC:    make(chan []model.Like, 4),
		commentC: make(chan []model.Comment, 4),
	}
}

func (f *fakeStore) CreateLike(_ context.Context, l model.Like) (model.Like, error) {
	if f.createLikeErr != nil {
		return model.Like{}, f.createLikeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = fmt.Sprintf("like-%d", len(f.likes)+1)
	l.CreatedAt = time.Now().UTC()
	f.likes = append(f.likes, l)
	return l, nil
}

func (f *fakeStore) CreateComment(_ context.Context, c model.Comment) (model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = fmt.Sprintf("comment-%d", len(f.comments)+1)
	c.CreatedAt = time.Now().UTC()
	f.comments = append(f.comments, c)
	return c, nil
}

func (f *fakeStore) DeleteLike(_ context.Context, likeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.likes {
		if l.ID == likeID {
			f.likes = append(f.likes[:i], f.likes[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) LikesByArticle(context.Context, string) ([]model.Like, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Like{}, f.likes...), nil
}

func (f *fakeStore) CommentsByArticle(context.Context, string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Comment{}, f.comments...), nil
}

func (f *fakeStore) LikesByUser(ctx context.Context, _ string) ([]model.Like, error) {
	return f.LikesByArticle(ctx, "")
}

func (f *fakeStore) CommentsByUser(ctx context.Context, _ string) ([]model.Comment, error) {
	return f.CommentsByArticle(ctx, "")
}

func (f *fakeStore) SubscribeLikes(context.Context, string) (*store.LikeSubscription, error) {
	f.likeC <- nil // initial set
	return store.NewLikeSubscription(f.likeC, nil), nil
}

func (f *fakeStore) SubscribeComments(context.Context, string) (*store.CommentSubscription, error) {
	f.commentC <- nil
	return store.NewCommentSubscription(f.commentC, nil), nil
}

func (f *fakeStore) RecordUserAction(context.Context, model.UserAction) error { return nil }

func (f *fakeStore) UserActions(context.Context, string) ([]model.UserAction, error) {
	return nil, nil
}

func (f *fakeStore) EnqueuePrefetch(context.Context, string) error { return nil }

func (f *fakeStore) PopPrefetch(context.Context) (string, error) { return "", store.ErrNotFound }

func TestToggleLike_CreateFailureDoesNotSurfaceAsLiked(t *testing.T) {
	f := newFakeStore()
	f.createLikeErr = errors.New("store write refused")
	ctx := context.Background()

	agg := NewAggregator(f, testUser("u1", "alice"), zap.NewNop())
	_, err := agg.Observe(ctx, testArticle("a1"))
	require.NoError(t, err)
	defer agg.Unobserve()

	require.Error(t, agg.ToggleLike(ctx))

	in, liked := agg.Interaction()
	assert.False(t, liked, "a failed create must not read back as liked")
	assert.Zero(t, in.LikesCount)

	likes, err := f.LikesByArticle(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, likes)
}

func TestAggregate_RetainedWhenSubscriptionsFail(t *testing.T) {
	f := newFakeStore()
	ctx := context.Background()

	agg := NewAggregator(f, testUser("u1", "alice"), zap.NewNop())
	_, err := agg.Observe(ctx, testArticle("a1"))
	require.NoError(t, err)
	defer agg.Unobserve()

	f.likeC <- []model.Like{
		{ID: "l1", ArticleID: "a1", UserID: "u1"},
		{ID: "l2", ArticleID: "a1", UserID: "u2"},
	}
	require.Eventually(t, func() bool {
		in, _ := agg.Interaction()
		return in.LikesCount == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Dying streams must not blank the aggregate: readers keep the
	// last-good set.
	close(f.likeC)
	close(f.commentC)
	time.Sleep(100 * time.Millisecond)

	in, liked := agg.Interaction()
	assert.Equal(t, 2, in.LikesCount)
	assert.Len(t, in.Likes, 2)
	assert.True(t, liked, "the user's like state survives the stream loss")
}
