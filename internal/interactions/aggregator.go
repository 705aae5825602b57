package interactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"newsloop/internal/auth"
	"newsloop/internal/model"
	"newsloop/internal/store"

	"go.uber.org/zap"
)

// ErrAuthRequired signals that a mutation needs a signed-in user. Callers
// react by prompting authentication; it is never a crash.
var ErrAuthRequired = errors.New("authentication required")

// Aggregator binds one observed article to its live interaction record.
// It holds two store subscriptions (comments, likes), recomputes the
// aggregate and the current user's like state on every push, and exposes
// the mutations operating on that aggregate.
//
// All store writes are read-then-write against the live like set, not a
// store-level uniqueness constraint: two toggles racing in a narrow window
// can both observe "not liked". That weaker guarantee is deliberate.
// Successful writes are folded into the local aggregate immediately, so
// sequential mutations through one aggregator never wait on the store
// push-back to see their own effect.
type Aggregator struct {
	store    store.Store
	identity auth.Identity
	logger   *zap.Logger
	sharer   Sharer

	mu          sync.Mutex
	gen         int
	article     *model.Article
	interaction model.Interaction
	isLiked     bool
	commentsSub *store.CommentSubscription
	likesSub    *store.LikeSubscription
	updates     chan model.Interaction
}

// NewAggregator wires the aggregator's collaborators. Nothing is observed
// until Observe is called.
func NewAggregator(st store.Store, identity auth.Identity, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		store:    st,
		identity: identity,
		logger:   logger,
		sharer:   Clipboard{},
	}
}

// SetSharer swaps the share backend (platform share, test fake).
func (a *Aggregator) SetSharer(s Sharer) { a.sharer = s }

// Observe switches the aggregator to a new article. Any prior
// subscriptions are torn down first, so no update for the old article can
// land in the new aggregate. The initial aggregate is computed before
// Observe returns; later recomputes are pushed on the returned channel,
// which is closed on the next Observe or Unobserve.
func (a *Aggregator) Observe(ctx context.Context, article *model.Article) (<-chan model.Interaction, error) {
	if article == nil || article.ID == "" {
		return nil, fmt.Errorf("cannot observe article without an id")
	}

	a.mu.Lock()
	a.teardownLocked()
	gen := a.gen
	a.mu.Unlock()

	commentsSub, err := a.store.SubscribeComments(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("subscribe comments: %w", err)
	}
	likesSub, err := a.store.SubscribeLikes(ctx, article.ID)
	if err != nil {
		commentsSub.Unsubscribe()
		return nil, fmt.Errorf("subscribe likes: %w", err)
	}

	// Both subscriptions deliver their current record set immediately, so
	// the first aggregate is available synchronously.
	initialComments := <-commentsSub.C
	initialLikes := <-likesSub.C

	updates := make(chan model.Interaction, 1)

	a.mu.Lock()
	if a.gen != gen {
		// A concurrent Observe won the race; ours is already stale.
		a.mu.Unlock()
		commentsSub.Unsubscribe()
		likesSub.Unsubscribe()
		close(updates)
		return updates, nil
	}
	a.article = article
	a.commentsSub = commentsSub
	a.likesSub = likesSub
	a.updates = updates
	a.interaction = model.Interaction{ArticleID: article.ID}
	a.applyCommentsLocked(initialComments)
	a.applyLikesLocked(initialLikes)
	a.mu.Unlock()

	go a.pump(gen, commentsSub, likesSub)
	return updates, nil
}

// Unobserve releases both subscriptions. The last aggregate stays readable.
func (a *Aggregator) Unobserve() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.teardownLocked()
}

// teardownLocked bumps the generation and releases live resources. Callers
// hold a.mu.
func (a *Aggregator) teardownLocked() {
	a.gen++
	if a.commentsSub != nil {
		a.commentsSub.Unsubscribe()
		a.commentsSub = nil
	}
	if a.likesSub != nil {
		a.likesSub.Unsubscribe()
		a.likesSub = nil
	}
	if a.updates != nil {
		close(a.updates)
		a.updates = nil
	}
}

// pump fans both subscription streams into the aggregate until the
// observation is torn down.
func (a *Aggregator) pump(gen int, cs *store.CommentSubscription, ls *store.LikeSubscription) {
	commentC, likeC := cs.C, ls.C
	for commentC != nil || likeC != nil {
		select {
		case comments, ok := <-commentC:
			if !ok {
				commentC = nil
				continue
			}
			a.apply(gen, func() { a.applyCommentsLocked(comments) })
		case likes, ok := <-likeC:
			if !ok {
				likeC = nil
				continue
			}
			a.apply(gen, func() { a.applyLikesLocked(likes) })
		}
	}
}

// apply recomputes under the lock, dropping the update if the observation
// changed while it was in flight. The send also happens under the lock so
// a concurrent teardown cannot close the channel mid-send; it never
// blocks, latest-wins.
func (a *Aggregator) apply(gen int, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != gen {
		return
	}
	fn()
	if a.updates == nil {
		return
	}
	snapshot := a.interaction
	select {
	case a.updates <- snapshot:
	default:
		select {
		case <-a.updates:
		default:
		}
		select {
		case a.updates <- snapshot:
		default:
		}
	}
}

func (a *Aggregator) applyCommentsLocked(comments []model.Comment) {
	a.interaction.Comments = comments
	a.interaction.CommentsCount = len(comments)
}

func (a *Aggregator) applyLikesLocked(likes []model.Like) {
	a.interaction.Likes = likes
	a.interaction.LikesCount = len(likes)
	a.isLiked = false
	if user, ok := a.identity.CurrentUser(); ok {
		_, a.isLiked = a.interaction.LikeBy(user.ID)
	}
}

// Interaction returns the current aggregate and the current user's like
// state.
func (a *Aggregator) Interaction() (model.Interaction, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interaction, a.isLiked
}

// ToggleLike creates or removes the current user's Like on the observed
// article. Without a signed-in user it returns ErrAuthRequired and writes
// nothing. Membership is checked against the live like set.
func (a *Aggregator) ToggleLike(ctx context.Context) error {
	user, ok := a.identity.CurrentUser()
	if !ok {
		return ErrAuthRequired
	}

	a.mu.Lock()
	gen := a.gen
	article := a.article
	existing, liked := a.interaction.LikeBy(user.ID)
	a.mu.Unlock()

	if liked {
		if err := a.store.DeleteLike(ctx, existing.ID); err != nil {
			return fmt.Errorf("remove like: %w", err)
		}
		// Fold our own write into the aggregate ahead of the store
		// push-back, so an immediate re-toggle sees the new state.
		a.apply(gen, func() {
			likes := make([]model.Like, 0, len(a.interaction.Likes))
			for _, l := range a.interaction.Likes {
				if l.ID != existing.ID {
					likes = append(likes, l)
				}
			}
			a.applyLikesLocked(likes)
		})
		return nil
	}

	snap, ok := model.BuildSnapshot(article)
	if !ok {
		// Malformed article; abort the write rather than persist a partial
		// snapshot.
		a.logger.Error("Like aborted: no article to snapshot")
		return nil
	}

	like := model.Like{
		ArticleID:       snap.ID,
		UserID:          user.ID,
		Username:        user.Username,
		UserPhoto:       user.PhotoURL,
		ArticleSnapshot: &snap,
	}
	created, err := a.store.CreateLike(ctx, like)
	if err != nil {
		return fmt.Errorf("create like: %w", err)
	}
	a.apply(gen, func() {
		a.applyLikesLocked(append([]model.Like{created}, a.interaction.Likes...))
	})

	a.recordAction(ctx, user, snap, created.CreatedAt, true, false)
	return nil
}

// AddComment appends a comment by the current user. Whitespace-only
// content is a no-op.
func (a *Aggregator) AddComment(ctx context.Context, content string) error {
	user, ok := a.identity.CurrentUser()
	if !ok {
		return ErrAuthRequired
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	a.mu.Lock()
	gen := a.gen
	article := a.article
	a.mu.Unlock()

	snap, ok := model.BuildSnapshot(article)
	if !ok {
		a.logger.Error("Comment aborted: no article to snapshot")
		return nil
	}

	comment := model.Comment{
		ArticleID:       snap.ID,
		UserID:          user.ID,
		Username:        user.Username,
		UserPhoto:       user.PhotoURL,
		Content:         content,
		ArticleSnapshot: &snap,
	}
	created, err := a.store.CreateComment(ctx, comment)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	a.apply(gen, func() {
		a.applyCommentsLocked(append([]model.Comment{created}, a.interaction.Comments...))
	})

	a.recordAction(ctx, user, snap, created.CreatedAt, false, true)
	return nil
}

// recordAction mirrors a successful write into the per-user action summary
// and queues the article for content prefetch. Both are best-effort; the
// primary write already landed.
func (a *Aggregator) recordAction(ctx context.Context, user model.User, snap model.ArticleSnapshot, at time.Time, liked, commented bool) {
	err := a.store.RecordUserAction(ctx, model.UserAction{
		ArticleID:         snap.ID,
		UserID:            user.ID,
		Liked:             liked,
		Commented:         commented,
		Snapshot:          snap,
		LastInteractionAt: at,
	})
	if err != nil {
		a.logger.Error("Failed to record user action", zap.Error(err))
	}

	if snap.URL == "" {
		return
	}
	if err := a.store.EnqueuePrefetch(ctx, snap.URL); err != nil {
		a.logger.Error("Failed to enqueue prefetch", zap.Error(err))
	}
}

// ShareArticle hands the URL to the share backend. It carries no state;
// a failure is reported to the caller for a user-visible notice.
func (a *Aggregator) ShareArticle(url, title string) error {
	if err := a.sharer.Share(url, title); err != nil {
		return fmt.Errorf("share article: %w", err)
	}
	return nil
}
