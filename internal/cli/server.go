package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizmatch-service/internal/app"
	"quizmatch-service/internal/config"
	"quizmatch-service/internal/domain"
	"quizmatch-service/internal/infra/memory"
	pginfra "quizmatch-service/internal/infra/postgres"
	redisinfra "quizmatch-service/internal/infra/redis"
	transport "quizmatch-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the match server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var store app.MatchStore
	var catalogSource memory.CatalogSource
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB := bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()
		store = pginfra.NewStore(bunDB)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		catalogSource = pginfra.NewCatalog(pool)
	} else {
		store = memory.NewMatchStore()
		catalogSource = memory.NewStaticCatalogSource(sampleQuizzes())
	}

	var catalog app.QuizCatalog
	if redisClient != nil {
		catalog = redisinfra.NewCatalog(redisClient, catalogSource, quizTTL)
	} else {
		catalog = memory.NewCatalog(catalogSource, quizTTL)
	}

	var views app.ViewCache
	if redisClient != nil {
		views = redisinfra.NewViewCache(redisClient, redisTTL)
	} else {
		views = memory.NewViewCache()
	}

	hub := app.NewMatchHub()
	service := app.NewMatchService(store, catalog, views, hub, cfg.Rules())
	wsHandler := transport.NewWSHandler(service)
	mmHandler := transport.NewMatchmakingHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mmHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting match service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds the database-less dev mode with one playable category.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:       "quiz-1",
			Title:    "Science Basics",
			Category: "Science",
			Questions: []domain.Question{
				{
					ID:   "q1",
					Text: "What is H2O commonly called?",
					Answers: []domain.Answer{
						{ID: "a1", Text: "Salt", IsCorrect: false},
						{ID: "a2", Text: "Water", IsCorrect: true},
						{ID: "a3", Text: "Sugar", IsCorrect: false},
						{ID: "a4", Text: "Oxygen", IsCorrect: false},
					},
				},
				{
					ID:   "q2",
					Text: "How many planets orbit the Sun?",
					Answers: []domain.Answer{
						{ID: "a5", Text: "7", IsCorrect: false},
						{ID: "a6", Text: "8", IsCorrect: true},
						{ID: "a7", Text: "9", IsCorrect: false},
						{ID: "a8", Text: "10", IsCorrect: false},
					},
				},
			},
		},
	}
}
