package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"ham-exam-bot/internal/app"
	"ham-exam-bot/internal/config"
	"ham-exam-bot/internal/infra/memory"
	"ham-exam-bot/internal/infra/postgres"
	redisinfra "ham-exam-bot/internal/infra/redis"
	transport "ham-exam-bot/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam server",
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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	poolTTL := config.TTLDuration(cfg.Quiz.PoolTTL, 10*time.Minute)

	var (
		loader memory.PoolLoader = memory.NewStaticPoolLoader(samplePools(), sampleQuestions())
		store  app.ResultStore   = memory.NewResultStore()
	)
	if cfg.Postgres.URL != "" {
		db := openBun(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateDB(ctx, db); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewQuestionPool(pool)
		store = postgres.NewResultStore(db)
	}

	var questions app.QuestionPool
	var registry app.SessionRegistry
	if redisClient != nil {
		questions = redisinfra.NewPoolCache(redisClient, loader, poolTTL)
		registry = redisinfra.NewSessionRegistry(redisClient, redisTTL)
	} else {
		questions = memory.NewPoolCache(loader, poolTTL)
		registry = memory.NewSessionRegistry()
	}

	hub := transport.NewHub()
	service := newService(cfg, registry, store, questions, hub)
	if _, err := service.Recover(ctx); err != nil {
		return err
	}

	wsHandler, err := transport.NewWSHandler(service, hub)
	if err != nil {
		return err
	}
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
	}).Handler(transport.NewRouter(service, wsHandler))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam server on :%s", finalPort)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := service.Shutdown(shutdownCtx); err != nil {
		log.Printf("sessions did not finish: %v", err)
	}
	return server.Shutdown(shutdownCtx)
}

func newService(cfg config.Config, registry app.SessionRegistry, store app.ResultStore, questions app.QuestionPool, presenter app.Presenter) *app.QuizService {
	defaults := app.DefaultPolicy()
	policy := app.Policy{
		DefaultDelay:         config.TTLDuration(cfg.Quiz.DefaultDelay, defaults.DefaultDelay),
		RoundPause:           config.TTLDuration(cfg.Quiz.RoundPause, defaults.RoundPause),
		SendFailureBackoff:   config.TTLDuration(cfg.Quiz.SendFailureBackoff, defaults.SendFailureBackoff),
		RetryFailedRound:     cfg.Quiz.RetryFailedRound,
		WaitFullDelayInMulti: cfg.Quiz.WaitFullDelayMulti,
	}
	return app.NewQuizService(registry, questions, store, presenter, app.WithPolicy(policy))
}
