package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizard-service/internal/app"
	"quizard-service/internal/config"
	"quizard-service/internal/domain"
	"quizard-service/internal/infra/memory"
	pgarchive "quizard-service/internal/infra/postgres"
	rediscache "quizard-service/internal/infra/redis"
	"quizard-service/internal/logger"
	transport "quizard-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quizard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var archive app.Archive = memory.NewArchive()
	if pool != nil {
		archive = pgarchive.NewArchive(pool)
	}

	admin := domain.Identity(cfg.Identity.Admin)
	distributor := domain.Identity(cfg.Identity.Distributor)
	system, err := app.NewSystem(app.SystemConfig{
		Admin:            admin,
		Distributor:      distributor,
		CredentialName:   cfg.Credential.Name,
		CredentialSymbol: cfg.Credential.Symbol,
		Archive:          archive,
		Logger:           log,
	})
	if err != nil {
		return err
	}

	// Write-behind event log: the feed drains into the archive without
	// blocking the core operations.
	recorderCtx, stopRecorder := context.WithCancel(ctx)
	defer stopRecorder()
	events, cancelEvents := system.Feed.Subscribe()
	defer cancelEvents()
	go app.RecordEvents(recorderCtx, log, archive, events)

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var snapshots transport.SnapshotReader
	if redisClient != nil {
		snapshots = rediscache.NewQuizCache(redisClient, system.Factory, quizTTL)
	} else {
		snapshots = memory.NewQuizCache(system.Factory, quizTTL)
	}

	handler := transport.NewHandler(system, snapshots, log)
	wsHandler := transport.NewWSHandler(system.Feed, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/events", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quizard service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
