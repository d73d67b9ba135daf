package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "postgres:14-alpine"
	testUser      = "orderstore"
	testPassword  = "orderstore"
	testDatabase  = "orderstore_test"
	migrationDir  = "../../migrations"
)

// setupTestDB starts a throwaway Postgres container, applies every up
// migration, and returns a connected pool plus its cleanup func.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     testUser,
				"POSTGRES_PASSWORD": testPassword,
				"POSTGRES_DB":       testDatabase,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Start postgres container: %v", err)
	}

	terminate := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Terminate container: %v", err)
		}
	}

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		t.Fatalf("Get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		terminate()
		t.Fatalf("Get container port: %v", err)
	}

	db, err := sql.Open("postgres", testDSN(host, port.Port()))
	if err != nil {
		terminate()
		t.Fatalf("Connect to database: %v", err)
	}
	if err := db.Ping(); err != nil {
		terminate()
		t.Fatalf("Ping database: %v", err)
	}

	if err := applyMigrations(db); err != nil {
		terminate()
		t.Fatalf("Apply migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Close database: %v", err)
		}
		terminate()
	}

	return db, cleanup
}

func testDSN(host, port string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testUser, testPassword, host, port, testDatabase)
}

// applyMigrations mirrors scripts/run_migrations.go for the "up"
// direction, resolving the migration files relative to this package.
func applyMigrations(db *sql.DB) error {
	entries, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, filepath.Join(migrationDir, entry.Name()))
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}

	return nil
}
