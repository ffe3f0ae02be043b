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

	"quizard-service/internal/app"
	"quizard-service/internal/domain"
	pgarchive "quizard-service/internal/infra/postgres"
	pgmigrations "quizard-service/internal/infra/postgres/migrations"
	infraredis "quizard-service/internal/infra/redis"
)

func TestCredentialFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	archive := pgarchive.NewArchive(pool)

	clock := time.Unix(1671100000, 0) // inside the sample window
	system, err := app.NewSystem(app.SystemConfig{
		Admin:            "admin",
		Distributor:      "distributor",
		CredentialName:   "Quizard Credential",
		CredentialSymbol: "QUIZARD",
		Archive:          archive,
		Clock:            func() time.Time { return clock },
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}

	events, cancelEvents := system.Feed.Subscribe()
	defer cancelEvents()
	recorderCtx, stopRecorder := context.WithCancel(ctx)
	defer stopRecorder()
	go app.RecordEvents(recorderCtx, nil, archive, events)

	quiz, err := system.Factory.CreateQuiz(ctx, "teacher-1", sampleDefinition())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	attempt, err := quiz.Attempt("student-1", []int{0, 2, 1})
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if attempt.Score != 66 || !attempt.Eligible {
		t.Fatalf("expected passing attempt, got %+v", attempt)
	}
	tokenID, err := system.Issuer.Mint("distributor", quiz.Ref(), "student-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tokenID != 0 {
		t.Fatalf("expected token 0, got %d", tokenID)
	}

	// The archived snapshot must round-trip through postgres.
	snapshot, err := archive.QuizSnapshot(ctx, quiz.Ref())
	if err != nil {
		t.Fatalf("archived snapshot: %v", err)
	}
	if snapshot.Definition.Name != "Test Quiz" || len(snapshot.Definition.Questions) != 3 {
		t.Fatalf("unexpected archived snapshot: %+v", snapshot)
	}

	// The write-behind recorder eventually lands all three events.
	deadline := time.Now().Add(10 * time.Second)
	for {
		n, err := archive.EventCount(ctx, quiz.Ref())
		if err != nil {
			t.Fatalf("count events: %v", err)
		}
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 archived events, got %d", n)
		}
		time.Sleep(50 * time.Millisecond)
	}

	// Public reads go through the redis cache backed by the archive.
	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cache := infraredis.NewQuizCache(redisClient, archive, 5*time.Minute)
	cached, err := cache.QuizSnapshot(ctx, quiz.Ref())
	if err != nil {
		t.Fatalf("cached snapshot: %v", err)
	}
	if cached.Definition.PassingScore != 60 {
		t.Fatalf("unexpected cached snapshot: %+v", cached)
	}
	if exists, err := redisClient.Exists(ctx, "quiz:"+quiz.Ref()+":snapshot").Result(); err != nil || exists != 1 {
		t.Fatalf("expected snapshot cached in redis, exists=%d err=%v", exists, err)
	}
}

func sampleDefinition() domain.QuizDefinition {
	return domain.QuizDefinition{
		Name:         "Test Quiz",
		Description:  "This is a test quiz",
		PassingScore: 60,
		Duration:     30 * 60,
		StartTime:    time.Unix(1671033600, 0).UTC(),
		EndTime:      time.Unix(1671465600, 0).UTC(),
		Questions: []domain.Question{
			{Prompt: "What is the capital of France?", Options: []string{"Paris", "London", "Berlin", "Rome"}, CorrectAnswer: 0},
			{Prompt: "What is the capital of Germany?", Options: []string{"Paris", "London", "Berlin", "Rome"}, CorrectAnswer: 2},
			{Prompt: "What is the capital of Italy?", Options: []string{"Paris", "London", "Berlin", "Rome"}, CorrectAnswer: 3},
		},
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("init migrator: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quizard", "POSTGRES_PASSWORD": "quizardpass", "POSTGRES_DB": "quizarddb"},
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
	dsn := fmt.Sprintf("postgres://quizard:quizardpass@%s:%s/quizarddb?sslmode=disable", host, port.Port())
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
