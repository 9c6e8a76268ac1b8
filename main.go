package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"careerbot/internal/api"
	"careerbot/internal/auth"
	"careerbot/internal/config"
	"careerbot/internal/logging"
	"careerbot/internal/redis"
	"careerbot/internal/service/advisor"
	"careerbot/internal/service/ai"
	"careerbot/internal/service/assistant"
	"careerbot/internal/service/extract"
	"careerbot/internal/service/history"
	"careerbot/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	configPath string
	dbType     string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "careerbot",
		Short:         "Career advisory chatbot server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CAREERBOT_CONFIG"), "path to a JSON or YAML config file")
	root.PersistentFlags().StringVar(&opts.dbType, "db", envOr("CAREERBOT_DB", "sqlite3"), "database driver: sqlite3 or mysql")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(opts)
		},
	})
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat("config.json"); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func migrate(opts *options) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := storage.Open(opts.dbType, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return storage.Migrate(db, opts.dbType)
}

func serve(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("opening database", zap.String("driver", opts.dbType))
	db, err := storage.Open(opts.dbType, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, opts.dbType); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Redis is optional: without it anonymous history stays in process memory
	// and tokens are validated against the database only.
	var (
		rdb *redis.Client
		kv  history.KV
	)
	if cfg.Redis.Host != "" {
		rdb, err = redis.NewRedisClient(cfg)
		if err != nil {
			return fmt.Errorf("create redis client: %w", err)
		}
		defer rdb.Close()
		kv = history.NewRedisKV(rdb)
	} else {
		logger.Warn("redis not configured, anonymous history kept in memory")
		kv = history.NewMemoryKV()
	}

	basic := cfg.BasicConfig
	sessionTTL := time.Duration(basic.SessionTTL) * time.Minute
	store := history.NewRouter(history.NewSQLStore(db), history.NewSessionStore(kv, sessionTTL))

	client, err := ai.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init completion client: %w", err)
	}

	adv := advisor.New(store, client, advisor.Config{
		StructuredTemperature:     cfg.Completion.StructuredTemperature,
		ConversationalTemperature: cfg.Completion.ConversationalTemperature,
		RateLimitPerMinute:        basic.RateLimitPerMinute,
	}, logger)

	if err := os.MkdirAll(basic.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	extractor, err := extract.NewExtractor(ctx, basic.UploadDir, basic.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}

	authService := auth.NewService(db, rdb, time.Duration(basic.TokenTTL)*time.Hour)
	authService.SetCookiePolicy(basic.SecureCookies, sessionTTL)
	cleanerDone := authService.StartTokenCleaner(ctx, time.Duration(basic.TokenCleanInterval)*time.Minute, logger)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logging.GinMiddleware(logger), gin.Recovery())
	handlers := api.NewHandler(adv, assistant.NewService(db), authService, extractor, basic.MaxUploadBytes, logger)
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              basic.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stop()
			<-cleanerDone
			return fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	stop()
	<-cleanerDone
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
