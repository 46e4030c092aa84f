package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"driving-quiz-service/internal/app"
	"driving-quiz-service/internal/domain"
	pgloader "driving-quiz-service/internal/infra/postgres"
	pgmigrations "driving-quiz-service/internal/infra/postgres/migrations"
	infraredis "driving-quiz-service/internal/infra/redis"
	"driving-quiz-service/internal/logging"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestTimedTestEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedCatalog(t, ctx, pgURL, sampleCatalog())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuestionLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	questions := infraredis.NewQuestionRepository(redisClient, loader, 5*time.Minute)
	kv := infraredis.NewKVStore(redisClient, 0)
	service := app.NewProgressService(kv, questions, logging.NewNopLogger(), app.Settings{TestSize: 2, ScreeningSize: 1})

	if _, err := service.TimedTest(ctx, "u1", 1); !errors.Is(err, domain.ErrScreeningRequired) {
		t.Fatalf("expected locked test before screening, got %v", err)
	}

	gate, err := service.Screening(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("open screening: %v", err)
	}
	if n := len(gate.Navigator().Questions()); n != 1 {
		t.Fatalf("expected the single screening question, got %d", n)
	}
	// Question 3 stores CorrectAnswerIndex 1 as the order of its first option.
	if _, err := gate.Answer(ctx, 3, 0); err != nil {
		t.Fatalf("screening answer: %v", err)
	}
	if !gate.IsPassed(ctx) {
		t.Fatalf("expected screening passed")
	}

	test, err := service.TimedTest(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("open test: %v", err)
	}
	test.Start(ctx, 0)

	// Option arrays come back in insertion order while CorrectAnswerIndex refers to order.
	if _, err := test.Answer(ctx, 1, 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := test.Answer(ctx, 2, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	result, ok := test.Result(ctx)
	if !ok {
		t.Fatalf("expected completed test")
	}
	if result.Total != 2 || result.Correct != 2 || !result.IsPerfect {
		t.Fatalf("expected perfect result, got %+v", result)
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
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedCatalog(t *testing.T, ctx context.Context, dsn string, catalog domain.Catalog) {
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

	if _, err := pgloader.NewCatalogImporter(db).Import(ctx, catalog); err != nil {
		t.Fatalf("import catalog: %v", err)
	}
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		{
			ID:         1,
			Title:      "What does a red traffic light mean?",
			CategoryID: 1,
			Options: []domain.Option{
				{Text: "Proceed with caution", Order: 2},
				{Text: "Stop", Order: 1},
			},
			CorrectAnswerIndex: 1,
		},
		{
			ID:         2,
			Title:      "May you cross a solid white line?",
			CategoryID: 1,
			Options: []domain.Option{
				{Text: "No", Order: 10},
				{Text: "Yes", Order: 20},
			},
			CorrectAnswerIndex: 0,
		},
		{
			ID:         3,
			Title:      "Maximum speed in a residential zone?",
			CategoryID: 2,
			Screening:  true,
			Options: []domain.Option{
				{Text: "20 km/h", Order: 1},
				{Text: "50 km/h", Order: 2},
			},
			CorrectAnswerIndex: 1,
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
