package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	"github.com/nerrad567/telemetry-core/migrations"
)

const testSecret = "test-secret-that-is-at-least-32-chars!!"

// cheapParams keeps Argon2id fast enough for tests.
var cheapParams = Argon2Params{Time: 1, Memory: 64, Threads: 1}

// testDB opens a temp-file SQLite database with every migration applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// testService wires a Service over a fresh database.
func testService(t *testing.T) (*Service, *SQLiteUserRepository) {
	t.Helper()
	repo := NewUserRepository(testDB(t))
	svc := NewService(ServiceConfig{
		Users:             repo,
		Hasher:            NewArgon2Hasher(cheapParams),
		Issuer:            NewJWTIssuer(testSecret, time.Hour, "telemetry-test"),
		MinPasswordLength: 8,
	})
	return svc, repo
}

// createUser inserts a user with the given role and password directly.
func createUser(t *testing.T, svc *Service, repo UserRepository, username, password string, role Role) *User {
	t.Helper()
	hash, err := svc.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	u := &User{Username: username, PasswordHash: hash, Role: role}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return u
}
