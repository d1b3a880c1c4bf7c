// AngelaMos | 2026
// database.go

package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/carterperez-dev/voice-tutor/internal/config"
	"github.com/carterperez-dev/voice-tutor/internal/core"
)

// OpenDatabase connects to TEST_DATABASE_URL, applies migrations and
// empties every table. The test is skipped when the variable is unset.
func OpenDatabase(t *testing.T) *core.Database {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := core.NewDatabase(context.Background(), config.DatabaseConfig{
		URL:          url,
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	})
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() }) //nolint:errcheck

	if err := core.Migrate(db, core.MigrateUp); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	truncate := `TRUNCATE promo_redemptions, grants, promo_codes, users RESTART IDENTITY CASCADE`
	if _, err := db.DB.ExecContext(context.Background(), truncate); err != nil {
		t.Fatalf("truncate test database: %v", err)
	}

	return db
}

// InsertUser creates a bare users row so grants and redemptions can
// reference it.
func InsertUser(t *testing.T, db *core.Database, id int64) {
	t.Helper()

	_, err := db.DB.ExecContext(context.Background(),
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT DO NOTHING`, id)
	if err != nil {
		t.Fatalf("insert user %d: %v", id, err)
	}
}
