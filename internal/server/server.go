package server

import (
	"context"
	"net/http"
	"time"

	"newsloop/internal/auth"
	"newsloop/internal/cache"
	"newsloop/internal/feed"
	"newsloop/internal/reader"
	"newsloop/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server is the JSON API consumed by the reading clients. It owns no
// interaction state of its own; every request builds on the store, the
// session registry and the news source collaborator.
type Server struct {
	store     store.Store
	sessions  *auth.Sessions
	news      *feed.Client
	cache     *cache.ContentCache
	extractor reader.Extractor
	logger    *zap.Logger
	router    *mux.Router
	server    *http.Server
}

func NewServer(st store.Store, sessions *auth.Sessions, news *feed.Client, cc *cache.ContentCache, logger *zap.Logger) *Server {
	s := &Server{
		store:     st,
		sessions:  sessions,
		news:      news,
		cache:     cc,
		extractor: &reader.DefaultExtractor{},
		logger:    logger,
		router:    mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/session", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/session", s.handleDeleteSession).Methods("DELETE")

	api.HandleFunc("/feed", s.handleFeed).Methods("GET")
	api.HandleFunc("/category/{name}", s.handleCategory).Methods("GET")
	api.HandleFunc("/search", s.handleSearch).Methods("GET")

	api.HandleFunc("/articles/{id}/interactions", s.handleInteractions).Methods("GET")
	api.HandleFunc("/articles/{id}/like", s.handleToggleLike).Methods("POST")
	api.HandleFunc("/articles/{id}/comments", s.handleAddComment).Methods("POST")

	api.HandleFunc("/me/activity", s.handleMyActivity).Methods("GET")
	api.HandleFunc("/me/actions", s.handleMyActions).Methods("GET")
	api.HandleFunc("/users/{id}/activity", s.handlePublicActivity).Methods("GET")

	api.HandleFunc("/read", s.handleRead).Methods("GET")
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// SetExtractor swaps the readable-content extractor, for tests.
func (s *Server) SetExtractor(e reader.Extractor) { s.extractor = e }

// Start launches the HTTP server
func (s *Server) Start(port string) error {
	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("API server listening", zap.String("addr", port))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
