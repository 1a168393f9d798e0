package testfixtures

import (
	"path/filepath"
	"testing"

	"github.com/example/slotsync/internal/persistence"
	"github.com/example/slotsync/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool      *sqlite.ConnectionPool
	Users     persistence.UserRepository
	Projects  persistence.ProjectRepository
	Timeslots persistence.TimeslotRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "slotsync.db")
	pool, err := sqlite.NewConnectionPool(path)
	if err != nil {
		tb.Fatalf("open sqlite harness: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:      pool,
		Users:     sqlite.NewUserRepository(pool),
		Projects:  sqlite.NewProjectRepository(pool),
		Timeslots: sqlite.NewTimeslotRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
