package engine

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/keepsake/internal/memory"
	"github.com/lazypower/keepsake/internal/store"
)

// sourceStore builds and closes a store file to migrate from.
func sourceStore(t *testing.T, fill func(db *store.DB)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	fill(db)
	require.NoError(t, db.Close())
	return path
}

func TestMigrateMissingSource(t *testing.T) {
	e, _ := testEngine(t)

	_, err := e.Migrate(filepath.Join(t.TempDir(), "absent.db"))
	assert.ErrorIs(t, err, memory.ErrSourceNotFound)
}

func TestMigrateRejectsSameStore(t *testing.T) {
	e, _ := testEngine(t)

	_, err := e.Migrate(e.DB.Path)
	assert.ErrorIs(t, err, memory.ErrInvalidInput)
}

func TestMigrateSchemaMismatch(t *testing.T) {
	e, _ := testEngine(t)

	// A real SQLite file that is not a keepsake store.
	path := filepath.Join(t.TempDir(), "notes.db")
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = e.Migrate(path)
	assert.ErrorIs(t, err, memory.ErrSchemaMismatch)
}

func TestMigrateMergesRecordsAndSessions(t *testing.T) {
	e, _ := testEngine(t)

	src := sourceStore(t, func(db *store.DB) {
		require.NoError(t, db.InsertMemory(&memory.Record{
			Category: memory.Knowledge, Significance: 8,
			Title: "Staging bucket", Content: "artifacts live in the builds bucket",
			Recall: 1.0,
		}))
		require.NoError(t, db.InsertMemory(&memory.Record{
			Category: memory.Session, Significance: 4,
			Title: "Tuesday triage", Content: "closed three flaky-test bugs",
			Recall: 0.55,
		}))
		require.NoError(t, db.SaveSession(&store.SavedSession{
			SessionID: "old-1", Summary: "summary from the old machine",
		}))
	})

	rep, err := e.Migrate(src)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Scanned)
	assert.Equal(t, 2, rep.Merged)
	assert.Zero(t, rep.Skipped)
	assert.Equal(t, 1, rep.SessionsMerged)
	assert.Empty(t, rep.Warnings)

	// Source recall survives the merge untouched.
	triage, err := e.DB.GetByCategoryTitle(memory.Session, "", "Tuesday triage")
	require.NoError(t, err)
	require.NotNil(t, triage)
	assert.InDelta(t, 0.55, triage.Recall, 1e-9)

	sessions, err := e.DB.CountSessions()
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)
}

func TestMigrateIsIdempotent(t *testing.T) {
	e, _ := testEngine(t)

	src := sourceStore(t, func(db *store.DB) {
		require.NoError(t, db.InsertMemory(&memory.Record{
			Category: memory.Decision, Significance: 6,
			Title: "Keep sqlite", Content: "no server database", Recall: 1.0,
		}))
		require.NoError(t, db.SaveSession(&store.SavedSession{
			SessionID: "old-1", Summary: "first pass",
		}))
	})

	_, err := e.Migrate(src)
	require.NoError(t, err)

	rep, err := e.Migrate(src)
	require.NoError(t, err)
	assert.Zero(t, rep.Merged)
	assert.Equal(t, 1, rep.Skipped)

	total, err := e.DB.CountMemories()
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	sessions, err := e.DB.CountSessions()
	require.NoError(t, err)
	assert.Equal(t, 1, sessions, "session upsert keeps one row")
}

func TestMigrateTitleConflictKeepsBoth(t *testing.T) {
	e, _ := testEngine(t)

	seed(t, e, memory.Record{
		Category: memory.Decision, Significance: 6,
		Title: "Deploy strategy", Content: "canary first, then the fleet", Recall: 1.0,
	})

	src := sourceStore(t, func(db *store.DB) {
		require.NoError(t, db.InsertMemory(&memory.Record{
			Category: memory.Decision, Significance: 6,
			Title: "Deploy strategy", Content: "blue-green swaps with a warm standby pool",
			Recall: 1.0,
		}))
	})

	rep, err := e.Migrate(src)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Renamed)
	require.NotEmpty(t, rep.Warnings)
	assert.Contains(t, rep.Warnings[0], "title conflict")

	imported, err := e.DB.GetByCategoryTitle(memory.Decision, "", "Deploy strategy (imported)")
	require.NoError(t, err)
	require.NotNil(t, imported)
	assert.Equal(t, "blue-green swaps with a warm standby pool", imported.Content)

	original, err := e.DB.GetByCategoryTitle(memory.Decision, "", "Deploy strategy")
	require.NoError(t, err)
	require.NotNil(t, original)
	assert.Equal(t, "canary first, then the fleet", original.Content, "destination record untouched")

	// A repeat run finds the renamed copy and skips it.
	rep2, err := e.Migrate(src)
	require.NoError(t, err)
	assert.Zero(t, rep2.Merged)
	assert.Zero(t, rep2.Renamed)
	assert.Equal(t, 1, rep2.Skipped)

	total, err := e.DB.CountMemories()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestMigrateNearIdenticalSkips(t *testing.T) {
	e, _ := testEngine(t)

	content := "Weekly rotation: alice takes Monday deploys, bo takes Thursday, and the pager flips hands at standup"
	seed(t, e, memory.Record{
		Category: memory.Knowledge, Significance: 7,
		Title: "Rotation", Content: content, Recall: 1.0,
	})

	src := sourceStore(t, func(db *store.DB) {
		require.NoError(t, db.InsertMemory(&memory.Record{
			Category: memory.Knowledge, Significance: 7,
			Title: "Rotation", Content: content + ".", Recall: 1.0,
		}))
	})

	rep, err := e.Migrate(src)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Skipped)
	assert.Zero(t, rep.Renamed)
	assert.Zero(t, rep.Merged)

	total, err := e.DB.CountMemories()
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
