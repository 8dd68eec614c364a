package cache

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/config"
)

// setupTestDB opens a throwaway cache database in a temp directory and runs
// migrations. This lives here rather than in testutil to avoid import cycles.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.CacheConfig{
		Path:          filepath.Join(t.TempDir(), "cache.db"),
		RetentionDays: 30,
	}

	db, err := NewDB(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test cache db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test cache db: %v", err)
		}
	})

	if err := db.RunMigrations("migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}
