package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"driving-quiz-service/internal/app"
	"driving-quiz-service/internal/config"
	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/infra/memory"
	pgloader "driving-quiz-service/internal/infra/postgres"
	redisstore "driving-quiz-service/internal/infra/redis"
	"driving-quiz-service/internal/logging"
	transport "driving-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, logger logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, logger)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string, logger logging.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Environment != "" {
		logger = logging.New(cfg.Environment)
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
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
		redisClient = newRedisClient(cfg)
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleCatalog())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var questions app.QuestionSource
	if redisClient != nil {
		questions = redisstore.NewQuestionRepository(redisClient, loader, quizTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, quizTTL)
	}

	var kv app.KVStore
	if redisClient != nil {
		kv = redisstore.NewKVStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 0))
	} else {
		kv = memory.NewKVStore()
	}

	service := app.NewProgressService(kv, questions, logger, app.Settings{
		TestDuration:  config.TTLDuration(cfg.Quiz.TestDuration, app.DefaultTestDuration),
		TestSize:      cfg.Quiz.TestSize,
		ScreeningSize: cfg.Quiz.ScreeningSize,
	})
	wsHandler := transport.NewWSHandler(service, logger)
	progressHandler := transport.NewProgressHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/progress", progressHandler.CategoryProgress)
	mux.HandleFunc("/tests", progressHandler.Tests)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError(err, "failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog is served when no database is configured.
func sampleCatalog() domain.Catalog {
	options := func(texts ...string) []domain.Option {
		out := make([]domain.Option, 0, len(texts))
		for i, text := range texts {
			out = append(out, domain.Option{ID: i + 1, Text: text, Order: i + 1})
		}
		return out
	}
	return domain.Catalog{
		{ID: 1, Title: "What does a red traffic light mean?", CategoryID: 1, Options: options("Stop", "Proceed with caution", "Speed up"), CorrectAnswerIndex: 1},
		{ID: 2, Title: "Who has priority at an unmarked intersection?", CategoryID: 1, Options: options("Vehicle from the left", "Vehicle from the right", "The faster vehicle"), CorrectAnswerIndex: 2},
		{ID: 3, Title: "What does a solid white line mean?", CategoryID: 2, Options: options("Crossing allowed", "Crossing prohibited"), CorrectAnswerIndex: 2},
		{ID: 4, Title: "Maximum speed in a residential zone?", CategoryID: 3, Screening: true, Options: options("20 km/h", "50 km/h", "60 km/h"), CorrectAnswerIndex: 1},
		{ID: 5, Title: "When must dipped headlights be on?", CategoryID: 3, Screening: true, Options: options("Only at night", "Always while driving"), CorrectAnswerIndex: 2},
		{ID: 6, Title: "Minimum tread depth for summer tyres?", CategoryID: 4, Screening: true, Options: options("0.8 mm", "1.6 mm", "3 mm"), CorrectAnswerIndex: 2},
		{ID: 7, Title: "May you overtake on a pedestrian crossing?", CategoryID: 3, Screening: true, Options: options("Yes", "No"), CorrectAnswerIndex: 2},
	}
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
