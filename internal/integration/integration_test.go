package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizparty-service/internal/app"
	"quizparty-service/internal/domain"
	"quizparty-service/internal/infra/postgres"
	pgmigrations "quizparty-service/internal/infra/postgres/migrations"
	infraredis "quizparty-service/internal/infra/redis"
)

func TestFullGameOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	dsn, cleanup := startPostgres(t, ctx)
	defer cleanup()
	migrateDB(t, ctx, dsn)

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := postgres.NewSnapshotStore(pool, nil)
	playFullGame(t, ctx, store)

	// The finished game survives a cold start against the same database.
	fresh := postgres.NewSnapshotStore(pool, nil)
	snap, err := fresh.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(snap.Rooms) != 1 || snap.Rooms[0].State != domain.StateFinished {
		t.Fatalf("finished room not persisted: %+v", snap.Rooms)
	}
}

func TestFullGameOnRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	addr, cleanup := startRedis(t, ctx)
	defer cleanup()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer client.Close()

	store := infraredis.NewSnapshotStore(client, nil, 0)
	playFullGame(t, ctx, store)

	fresh := infraredis.NewSnapshotStore(client, nil, 0)
	snap, err := fresh.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(snap.Rooms) != 1 || snap.Rooms[0].State != domain.StateFinished {
		t.Fatalf("finished room not persisted: %+v", snap.Rooms)
	}
}

// playFullGame runs host-room, join, start, answer, advance-to-finish
// against the given backend.
func playFullGame(t *testing.T, ctx context.Context, store app.SnapshotStore) {
	t.Helper()

	cache := app.NewSnapshotCache(store, nil)
	registry := app.NewRoomRegistry(cache, nil)
	engine := app.NewSessionEngine(cache, registry, nil)
	editor := app.NewContentEditor(cache, nil)

	quiz, err := editor.SaveQuiz(ctx, domain.Quiz{
		Title: "Integration Quiz",
		Questions: []domain.QuizQuestion{
			{
				Text:      "What is 2 + 2?",
				Answers:   []domain.QuizAnswer{{Text: "3"}, {Text: "4", Correct: true}},
				TimeLimit: 20,
			},
		},
		CreatedBy: "it",
		IsPublic:  true,
	})
	if err != nil {
		t.Fatalf("save quiz: %v", err)
	}

	room, err := registry.HostRoom(ctx, "Alice", "u1", 0)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	if _, err := registry.AddPlayerToRoom(ctx, room.Code, "Bob", "u2"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := engine.StartGame(ctx, room.Code, "u1", app.ContentSelector{ContentID: quiz.ID}); err != nil {
		t.Fatalf("start: %v", err)
	}

	points, err := engine.SubmitAnswer(ctx, room.Code, "u2", 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if points < domain.MinAnswerPoints {
		t.Fatalf("correct answer earned %d points", points)
	}

	final, err := engine.AdvanceQuestion(ctx, room.Code, 0)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if final.State != domain.StateFinished {
		t.Fatalf("expected finished, got %s", final.State)
	}
	if final.Results[0].ID != "u2" {
		t.Fatalf("expected Bob leading, got %+v", final.Results)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
