package cli

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-arena-service/internal/app"
	"quiz-arena-service/internal/config"
	"quiz-arena-service/internal/infra/memory"
	pgleaderboard "quiz-arena-service/internal/infra/postgres"
	redisinfra "quiz-arena-service/internal/infra/redis"
	transport "quiz-arena-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz arena server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// Leaderboard backend preference: Postgres behind an in-process cache,
	// then Redis sorted set, then plain memory.
	cacheTTL := config.TTLDuration(cfg.Leaderboard.CacheTTL, time.Minute)
	var leaderboard app.LeaderboardRepository
	switch {
	case pool != nil:
		leaderboard = memory.NewCachedLeaderboard(pgleaderboard.NewLeaderboard(pool), cacheTTL)
	case redisClient != nil:
		leaderboard = redisinfra.NewLeaderboard(redisClient)
	default:
		leaderboard = memory.NewLeaderboardStore()
	}

	var rooms app.RoomStore
	if redisClient != nil {
		rooms = redisinfra.NewRoomStore(redisClient, redisTTL)
	} else {
		rooms = memory.NewRoomStore()
	}

	opts := app.DefaultOptions()
	if cfg.Game.CountdownTicks > 0 {
		opts.CountdownTicks = cfg.Game.CountdownTicks
	}
	if cfg.Game.DurationSec > 0 {
		opts.GameDuration = cfg.Game.DurationSec
	}
	opts.QuestionDelay = config.TTLDuration(cfg.Game.QuestionDelay, opts.QuestionDelay)
	opts.FastAnswer = config.TTLDuration(cfg.Game.FastAnswer, opts.FastAnswer)
	opts.CleanupGrace = config.TTLDuration(cfg.Game.CleanupGrace, opts.CleanupGrace)
	opts.StaleAge = config.TTLDuration(cfg.Game.StaleAge, opts.StaleAge)

	service := app.NewRoomService(rooms, leaderboard, opts)
	wsHandler := transport.NewWSHandler(service)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go service.RunReclaimLoop(sweepCtx, config.TTLDuration(cfg.Game.SweepInterval, 5*time.Minute))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"activeRooms": service.ActiveRooms(),
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz arena on :%s", finalPort)
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
