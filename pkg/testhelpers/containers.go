// Package testhelpers starts disposable engines for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// LakeTestImage is the PostgreSQL image used as a stand-in lake engine.
const LakeTestImage = "postgres:16-alpine"

const (
	lakeUser     = "analyst"
	lakePassword = "test_password"
	lakeDatabase = "lake"
	lakeSchema   = "db"
)

// lakeSeed creates a small star schema the detectors have something to find in.
var lakeSeed = []string{
	`CREATE SCHEMA IF NOT EXISTS db`,
	`CREATE TABLE db.customers (id bigint PRIMARY KEY, region varchar(32) NOT NULL, segment varchar(32))`,
	`CREATE TABLE db.orders (id bigint PRIMARY KEY, customer_id bigint NOT NULL, amount numeric(12,2), created_at date NOT NULL)`,
	`INSERT INTO db.customers SELECT g, 'region-' || (g % 5), 'seg-' || (g % 3) FROM generate_series(1, 200) g`,
	`INSERT INTO db.orders SELECT g, 1 + (g % 200), (g % 97) * 1.5, DATE '2024-01-01' + (g % 365) FROM generate_series(1, 5000) g`,
	`ANALYZE db.customers`,
	`ANALYZE db.orders`,
}

// LakeSeedDDL is the DDL of the seeded tables as a batch would carry it.
var LakeSeedDDL = []string{
	`CREATE TABLE lake.db.customers (id bigint, region varchar(32), segment varchar(32))`,
	`CREATE TABLE lake.db.orders (id bigint, customer_id bigint, amount numeric(12,2), created_at date)`,
}

// LakeDB is a running PostgreSQL container with the seed schema loaded.
type LakeDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	Host      string
	Port      string
}

// JDBCURL returns the batch connection url for the container.
func (l *LakeDB) JDBCURL() string {
	return fmt.Sprintf("jdbc:postgresql://%s:%s/%s?user=%s&password=%s&currentSchema=%s&sslmode=disable",
		l.Host, l.Port, lakeDatabase, lakeUser, url.QueryEscape(lakePassword), lakeSchema)
}

var (
	sharedLakeDB     *LakeDB
	sharedLakeDBOnce sync.Once
	sharedLakeDBErr  error
)

// GetLakeDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetLakeDB(t *testing.T) *LakeDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedLakeDBOnce.Do(func() {
		sharedLakeDB, sharedLakeDBErr = setupLakeDB()
	})

	if sharedLakeDBErr != nil {
		t.Fatalf("Failed to setup lake database: %v", sharedLakeDBErr)
	}

	return sharedLakeDB
}

func setupLakeDB() (*LakeDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        LakeTestImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       lakeDatabase,
			"POSTGRES_USER":     lakeUser,
			"POSTGRES_PASSWORD": lakePassword,
		},
		// The official image logs readiness twice: once for the init server, once for the real one.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		lakeUser, lakePassword, host, port.Port(), lakeDatabase)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	for _, stmt := range lakeSeed {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to seed lake schema: %w", err)
		}
	}

	return &LakeDB{
		Container: container,
		Pool:      pool,
		Host:      host,
		Port:      port.Port(),
	}, nil
}
