package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"newsloop/internal/activity"
	"newsloop/internal/auth"
	"newsloop/internal/cache"
	"newsloop/internal/config"
	"newsloop/internal/feed"
	"newsloop/internal/interactions"
	"newsloop/internal/model"
	"newsloop/internal/prefetch"
	"newsloop/internal/server"
	"newsloop/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	cfg        config.Config
	configPath string
	redisAddr  string
	badgerPath string
)

var rootCmd = &cobra.Command{
	Use:   "newsloop",
	Short: "newsloop - a social news reader",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("redis") {
			cfg.Redis.Addr = redisAddr
		}
		if cmd.Flags().Changed("badger") {
			cfg.Badger.Path = badgerPath
		}
		return nil
	},
}

func newsClient() *feed.Client {
	return feed.NewClient(cfg.News.BaseURL, cfg.News.APIKey, cfg.News.Language, cfg.News.Domains, nil, logger)
}

func localIdentity() auth.Identity {
	return auth.Static{User: model.User{
		ID:          cfg.User.ID,
		Username:    cfg.User.Username,
		DisplayName: cfg.User.DisplayName,
		PhotoURL:    cfg.User.PhotoURL,
	}}
}

// articleByRank fetches the current feed and picks the article at the
// given zero-based rank. Ids are rank-derived, so the rank is how the CLI
// names an article.
func articleByRank(ctx context.Context, rank int) (*model.Article, error) {
	resp, err := newsClient().Feed(ctx)
	if err != nil {
		return nil, err
	}
	if rank < 0 || rank >= len(resp.Articles) {
		return nil, fmt.Errorf("rank %d out of range (feed has %d articles)", rank, len(resp.Articles))
	}
	return &resp.Articles[rank], nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the prefetch worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			logger.Info("Shutting down...")
			cancel()
		}()

		st, err := store.NewRedisStore(cfg.Redis.Addr, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		cc, err := cache.Open(cfg.Badger.Path, false)
		if err != nil {
			return err
		}
		defer cc.Close()

		w := prefetch.NewWorker(st, cc, logger)
		go w.Start(ctx)

		srv := server.NewServer(st, auth.NewSessions(), newsClient(), cc, logger)
		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Stop(shutdownCtx)
		}()

		logger.Info("Server running.")
		if err := srv.Start(cfg.Server.Port); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the current feed with ranks",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newsClient().Feed(cmd.Context())
		if err != nil {
			return err
		}
		for i, a := range resp.Articles {
			fmt.Printf("%3d  %s  (%s)\n", i, a.Title, a.Source.Name)
		}
		fmt.Printf("\n%d of %d articles\n", len(resp.Articles), resp.TotalArticles)
		return nil
	},
}

// withArticle runs fn against a request-scoped aggregator observing the
// ranked article.
func withArticle(ctx context.Context, rank int, fn func(*interactions.Aggregator, *model.Article) error) error {
	article, err := articleByRank(ctx, rank)
	if err != nil {
		return err
	}

	st, err := store.NewRedisStore(cfg.Redis.Addr, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	agg := interactions.NewAggregator(st, localIdentity(), logger)
	if _, err := agg.Observe(ctx, article); err != nil {
		return err
	}
	defer agg.Unobserve()

	return fn(agg, article)
}

var likeCmd = &cobra.Command{
	Use:   "like [rank]",
	Short: "Toggle your like on the article at the given feed rank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rank, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("rank must be a number: %w", err)
		}
		return withArticle(cmd.Context(), rank, func(agg *interactions.Aggregator, a *model.Article) error {
			if err := agg.ToggleLike(cmd.Context()); err != nil {
				return err
			}
			if _, liked := agg.Interaction(); liked {
				logger.Info("Liked", zap.String("title", a.Title))
			} else {
				logger.Info("Like removed", zap.String("title", a.Title))
			}
			return nil
		})
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment [rank] [text]",
	Short: "Comment on the article at the given feed rank",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rank, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("rank must be a number: %w", err)
		}
		return withArticle(cmd.Context(), rank, func(agg *interactions.Aggregator, a *model.Article) error {
			if err := agg.AddComment(cmd.Context(), args[1]); err != nil {
				return err
			}
			logger.Info("Comment added", zap.String("title", a.Title))
			return nil
		})
	},
}

var shareCmd = &cobra.Command{
	Use:   "share [rank]",
	Short: "Copy the article link at the given feed rank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rank, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("rank must be a number: %w", err)
		}
		article, err := articleByRank(cmd.Context(), rank)
		if err != nil {
			return err
		}

		if err := (interactions.Clipboard{}).Share(article.URL, article.Title); err != nil {
			return err
		}
		fmt.Println("Link copied to clipboard.")
		return nil
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity [user-id]",
	Short: "Show your activity, or another user's public activity",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewRedisStore(cfg.Redis.Addr, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		projector := activity.NewProjector(st, localIdentity())

		var items []activity.Item
		if len(args) == 1 {
			items, err = projector.Public(cmd.Context(), args[0])
		} else {
			var ok bool
			items, ok, err = projector.My(cmd.Context())
			if !ok {
				return fmt.Errorf("no local user configured; set user in the config file")
			}
		}
		if err != nil {
			return err
		}

		for _, item := range items {
			when := item.CreatedAt.Format("02 Jan 2006 15:04")
			switch item.Kind {
			case activity.KindComment:
				fmt.Printf("%s  commented %q on %s\n", when, item.Content, item.Snapshot.Title)
			default:
				fmt.Printf("%s  liked %s\n", when, item.Snapshot.Title)
			}
		}
		if len(items) == 0 {
			fmt.Println("No activity yet.")
		}
		return nil
	},
}

func main() {
	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "newsloop.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "localhost:6379", "Address of Redis server")
	rootCmd.PersistentFlags().StringVar(&badgerPath, "badger", "./badger-data", "Path to BadgerDB data directory")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(activityCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
