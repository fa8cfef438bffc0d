package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage = "postgres:16-alpine"
	MySQLImage    = "mysql:8.4"

	testUser     = "portal"
	testPassword = "test_password"
	testDatabase = "portal_test"
)

// TestDB is a shared database container plus the engine params a domain
// would be configured with to reach it.
type TestDB struct {
	Container testcontainers.Container
	Engine    string
	Params    map[string]any
}

// CloneParams returns a copy of Params that the caller may modify.
func (db *TestDB) CloneParams() map[string]any {
	out := make(map[string]any, len(db.Params))
	for k, v := range db.Params {
		out[k] = v
	}
	return out
}

var (
	sharedPostgres     *TestDB
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error

	sharedMySQL     *TestDB
	sharedMySQLOnce sync.Once
	sharedMySQLErr  error
)

// GetTestPostgres returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestPostgres(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = startContainer(testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       testDatabase,
				"POSTGRES_USER":     testUser,
				"POSTGRES_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		}, "postgres", "5432", map[string]any{"ssl_mode": "disable"})
	})

	if sharedPostgresErr != nil {
		t.Fatalf("Failed to setup postgres container: %v", sharedPostgresErr)
	}
	return sharedPostgres
}

// GetTestMySQL returns a shared MySQL container for integration tests.
func GetTestMySQL(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMySQLOnce.Do(func() {
		sharedMySQL, sharedMySQLErr = startContainer(testcontainers.ContainerRequest{
			Image:        MySQLImage,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_DATABASE":      testDatabase,
				"MYSQL_USER":          testUser,
				"MYSQL_PASSWORD":      testPassword,
				"MYSQL_ROOT_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(120 * time.Second),
		}, "mysql", "3306", nil)
	})

	if sharedMySQLErr != nil {
		t.Fatalf("Failed to setup mysql container: %v", sharedMySQLErr)
	}
	return sharedMySQL
}

func startContainer(req testcontainers.ContainerRequest, engine, port string, extra map[string]any) (*TestDB, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s container: %w", engine, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	params := map[string]any{
		"host":     host,
		"port":     mapped.Int(),
		"user":     testUser,
		"password": testPassword,
		"database": testDatabase,
	}
	for k, v := range extra {
		params[k] = v
	}

	return &TestDB{Container: container, Engine: engine, Params: params}, nil
}
