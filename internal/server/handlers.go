package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"newsloop/internal/activity"
	"newsloop/internal/auth"
	"newsloop/internal/cache"
	"newsloop/internal/interactions"
	"newsloop/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// identity resolves the request's bearer token to an identity. Missing or
// unknown tokens resolve to Anonymous; the mutation paths reject those.
func (s *Server) identity(r *http.Request) auth.Identity {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return auth.Anonymous{}
	}
	return s.sessions.Resolve(token)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type sessionRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	user := model.User{
		ID:          uuid.New().String(),
		Username:    req.Username,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}
	token := s.sessions.Create(user)
	s.writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if token := strings.TrimPrefix(header, "Bearer "); token != header {
		s.sessions.Revoke(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	resp, err := s.news.Feed(r.Context())
	if err != nil {
		s.logger.Error("Feed fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "news source unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.news.Category(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.logger.Error("Category fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "news source unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	resp, err := s.news.Search(r.Context(), q)
	if err != nil {
		s.logger.Error("Search failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "news source unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// loadInteraction builds a one-shot aggregate straight from the store.
func (s *Server) loadInteraction(r *http.Request, articleID string) (model.Interaction, bool, error) {
	comments, err := s.store.CommentsByArticle(r.Context(), articleID)
	if err != nil {
		return model.Interaction{}, false, err
	}
	likes, err := s.store.LikesByArticle(r.Context(), articleID)
	if err != nil {
		return model.Interaction{}, false, err
	}

	in := model.Interaction{
		ArticleID:     articleID,
		Comments:      comments,
		Likes:         likes,
		LikesCount:    len(likes),
		CommentsCount: len(comments),
	}
	isLiked := false
	if user, ok := s.identity(r).CurrentUser(); ok {
		_, isLiked = in.LikeBy(user.ID)
	}
	return in, isLiked, nil
}

// handleInteractions returns the one-shot aggregate for an article plus
// whether the requesting user has liked it.
func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	in, isLiked, err := s.loadInteraction(r, mux.Vars(r)["id"])
	if err != nil {
		s.logger.Error("Failed to load interactions", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"interaction": in, "isLiked": isLiked})
}

// withAggregator runs fn against a request-scoped aggregator observing the
// article from the request body. The observation is torn down before the
// handler returns.
func (s *Server) withAggregator(w http.ResponseWriter, r *http.Request, article *model.Article, fn func(*interactions.Aggregator) error) {
	if article.ID != mux.Vars(r)["id"] {
		s.writeError(w, http.StatusBadRequest, "article id mismatch")
		return
	}

	agg := interactions.NewAggregator(s.store, s.identity(r), s.logger)
	if _, err := agg.Observe(r.Context(), article); err != nil {
		s.logger.Error("Observe failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	defer agg.Unobserve()

	if err := fn(agg); err != nil {
		if errors.Is(err, interactions.ErrAuthRequired) {
			s.writeError(w, http.StatusUnauthorized, "sign in to interact with articles")
			return
		}
		s.logger.Error("Interaction write failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "interaction could not be saved")
		return
	}

	// The aggregator folds its own successful write into the aggregate,
	// so it is already current.
	in, isLiked := agg.Interaction()
	s.writeJSON(w, http.StatusOK, map[string]any{"interaction": in, "isLiked": isLiked})
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	var article model.Article
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		s.writeError(w, http.StatusBadRequest, "article body required")
		return
	}
	s.withAggregator(w, r, &article, func(agg *interactions.Aggregator) error {
		return agg.ToggleLike(r.Context())
	})
}

type commentRequest struct {
	Article model.Article `json:"article"`
	Content string        `json:"content"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "article and content required")
		return
	}
	s.withAggregator(w, r, &req.Article, func(agg *interactions.Aggregator) error {
		return agg.AddComment(r.Context(), req.Content)
	})
}

func (s *Server) handleMyActivity(w http.ResponseWriter, r *http.Request) {
	projector := activity.NewProjector(s.store, s.identity(r))
	items, ok, err := projector.My(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "sign in to see your activity")
		return
	}
	if err != nil {
		s.logger.Error("Activity projection failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleMyActions returns the per-article summary records: one entry per
// article the user touched, with liked/commented flags for profile display.
func (s *Server) handleMyActions(w http.ResponseWriter, r *http.Request) {
	user, ok := s.identity(r).CurrentUser()
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "sign in to see your actions")
		return
	}
	actions, err := s.store.UserActions(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("Failed to load user actions", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

func (s *Server) handlePublicActivity(w http.ResponseWriter, r *http.Request) {
	projector := activity.NewProjector(s.store, auth.Anonymous{})
	items, err := projector.Public(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.logger.Error("Activity projection failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleRead serves the readable article body, cache-first with on-demand
// extraction as fallback.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if content, err := s.cache.Get(url); err == nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"url": url, "content": content})
		return
	} else if err != cache.ErrMiss {
		s.logger.Error("Cache read failed", zap.Error(err))
	}

	art, err := s.extractor.Extract(url, 30*time.Second)
	if err != nil {
		s.logger.Error("Extraction failed", zap.String("url", url), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "could not extract article")
		return
	}
	if err := s.cache.Put(url, art.Content); err != nil {
		s.logger.Error("Cache write failed", zap.Error(err))
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": url, "content": art.Content})
}
