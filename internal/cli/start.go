package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizparty-service/internal/app"
	"quizparty-service/internal/config"
	"quizparty-service/internal/domain"
	"quizparty-service/internal/infra/file"
	"quizparty-service/internal/infra/memory"
	"quizparty-service/internal/infra/postgres"
	infraredis "quizparty-service/internal/infra/redis"
)

const defaultStaleMaxAge = time.Hour

// NewStartCmd builds the CLI subcommand to start the game engine.
func NewStartCmd(configPath *string) *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the game engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), *configPath, demo)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "play one scripted game against bots and keep running")
	return cmd
}

func runEngine(ctx context.Context, configPath string, demo bool) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Warn("config not loaded, using defaults", "path", configPath, "error", err)
		cfg = config.Config{}
	}

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cache := app.NewSnapshotCache(store, logger)
	registry := app.NewRoomRegistry(cache, logger)
	engine := app.NewSessionEngine(cache, registry, logger)
	editor := app.NewContentEditor(cache, logger)

	// One sweep at startup; idle rooms from a previous run don't linger.
	maxAge := config.Duration(cfg.Game.StaleMaxAge, defaultStaleMaxAge)
	if _, err := registry.CleanupStaleRooms(ctx, maxAge); err != nil {
		logger.Warn("stale room cleanup failed", "error", err)
	}

	if err := seedContent(ctx, cache, editor, logger); err != nil {
		return err
	}

	interval := config.Duration(cfg.Game.SyncInterval, app.DefaultSyncInterval)
	logger.Info("engine ready", "backend", storageBackend(cfg), "sync_interval", interval)

	if demo {
		if err := runDemoGame(ctx, registry, engine, interval, logger); err != nil {
			return err
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
		logger.Info("shutting down")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down")
	}
	return nil
}

func storageBackend(cfg config.Config) string {
	if cfg.Storage.Backend == "" {
		return "memory"
	}
	return cfg.Storage.Backend
}

// buildStore wires the configured snapshot backend. The returned closer
// releases the backend's connections.
func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (app.SnapshotStore, func(), error) {
	noop := func() {}
	switch storageBackend(cfg) {
	case "memory":
		return memory.NewSnapshotStore(), noop, nil

	case "file":
		path := cfg.Storage.Path
		if path == "" {
			path = "data/snapshot.json"
		}
		return file.NewSnapshotStore(path, logger), noop, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := infraredis.NewSnapshotStore(client, logger, config.Duration(cfg.Redis.TTL, 0))
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return store, func() { client.Close() }, nil

	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		return postgres.NewSnapshotStore(pool, logger), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// seedContent stores a starter quiz and poll on first boot so a fresh
// install has something to play.
func seedContent(ctx context.Context, cache *app.SnapshotCache, editor *app.ContentEditor, logger *slog.Logger) error {
	empty := false
	err := cache.View(ctx, func(snap *domain.Snapshot) {
		empty = len(snap.Quizzes) == 0 && len(snap.Polls) == 0
	})
	if err != nil || !empty {
		return err
	}

	quiz := domain.Quiz{
		Title:      "General Knowledge",
		Category:   "general",
		Difficulty: "easy",
		Questions: []domain.QuizQuestion{
			{
				Text:      "What is the largest ocean on Earth?",
				Answers:   []domain.QuizAnswer{{Text: "Atlantic"}, {Text: "Pacific", Correct: true}, {Text: "Indian"}, {Text: "Arctic"}},
				TimeLimit: 20,
			},
			{
				Text:      "How many continents are there?",
				Answers:   []domain.QuizAnswer{{Text: "5"}, {Text: "6"}, {Text: "7", Correct: true}, {Text: "8"}},
				TimeLimit: 20,
			},
			{
				Text:      "Which language has the most native speakers?",
				Answers:   []domain.QuizAnswer{{Text: "English"}, {Text: "Spanish"}, {Text: "Hindi"}, {Text: "Mandarin", Correct: true}},
				TimeLimit: 20,
			},
		},
		CreatedBy: "system",
		IsPublic:  true,
	}
	if _, err := editor.SaveQuiz(ctx, quiz); err != nil {
		return err
	}

	poll := domain.Poll{
		Title:    "Game Night",
		Category: "fun",
		Questions: []domain.PollQuestion{
			{
				Text:    "What should we play next?",
				Options: []domain.PollOption{{Text: "Quiz"}, {Text: "Charades"}, {Text: "Cards"}},
			},
		},
		CreatedBy: "system",
		IsPublic:  true,
	}
	if _, err := editor.SavePoll(ctx, poll); err != nil {
		return err
	}

	logger.Info("seeded starter content")
	return nil
}

// runDemoGame plays one full game between the host and two bots, driven by
// the same sync loop a browser view would run.
func runDemoGame(ctx context.Context, registry *app.RoomRegistry, engine *app.SessionEngine, interval time.Duration, logger *slog.Logger) error {
	room, err := registry.HostRoom(ctx, "Host", "", 0)
	if err != nil {
		return err
	}
	logger.Info("demo room open", "code", room.Code)

	bots := []string{"Ada", "Linus"}
	botIDs := make([]string, len(bots))
	for i, name := range bots {
		player, err := registry.AddPlayerToRoom(ctx, room.Code, name, "")
		if err != nil {
			return err
		}
		botIDs[i] = player.ID
	}

	started, err := engine.StartGame(ctx, room.Code, room.HostID, app.ContentSelector{})
	if err != nil {
		return err
	}
	logger.Info("demo game started", "content", started.ContentID)

	done := make(chan struct{})
	loop := app.NewSyncLoop(registry, engine, interval, logger)
	loop.StartRoomUpdates(ctx, room.Code, true, app.ViewCallbacks{
		OnUpdate: func(u app.RoomUpdate) {
			if u.Room.State == domain.StateFinished {
				select {
				case <-done:
				default:
					close(done)
				}
				return
			}
			if u.Room.State != domain.StatePlaying {
				return
			}
			// Bots answer whatever they haven't answered yet.
			for i, id := range botIDs {
				if p := u.Room.FindPlayer(id); p != nil && !p.Answered {
					_, _ = engine.SubmitAnswer(ctx, room.Code, id, i%2)
				}
			}
			if p := u.Room.FindPlayer(room.HostID); p != nil && !p.Answered {
				_, _ = engine.SubmitAnswer(ctx, room.Code, room.HostID, 1)
			}
		},
	})

	select {
	case <-done:
	case <-ctx.Done():
		loop.StopUpdates()
		return ctx.Err()
	}
	loop.StopUpdates()

	final, err := registry.FindRoomByCode(ctx, room.Code)
	if err != nil {
		return err
	}
	for i, p := range final.Results {
		logger.Info("demo result", "place", i+1, "player", p.Name, "score", p.Score)
	}
	return nil
}
