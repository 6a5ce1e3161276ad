package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/memory"
	"github.com/lazypower/keepsake/internal/store"
)

// importedTitleSuffix marks a record kept alongside an existing one with
// the same title but different content. The suffix changes the
// fingerprint, so re-running the same migration finds the renamed copy
// and skips it.
const importedTitleSuffix = " (imported)"

// MigrateReport summarizes one migration run. Warnings carry per-record
// trouble: the run never aborts because one row was bad.
type MigrateReport struct {
	Source          string   `json:"source"`
	Scanned         int      `json:"scanned"`
	Merged          int      `json:"merged"`
	Skipped         int      `json:"skipped"`
	Renamed         int      `json:"renamed"`
	SessionsScanned int      `json:"sessions_scanned"`
	SessionsMerged  int      `json:"sessions_merged"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Migrate merges every record from the store at srcPath into this one.
// The source is opened read-only and never modified, so a failed or
// interrupted run can simply be repeated. Each record lands in exactly
// one of three outcomes:
//
//   - identical fingerprint already present: skipped
//   - same category and title, near-identical content: skipped
//   - same category and title, different content: kept under a renamed
//     title, with a warning
//
// Everything else inserts with its source timestamps and recall intact.
// The whole operation is idempotent: a second run over the same source
// merges nothing new.
func (e *Engine) Migrate(srcPath string) (*MigrateReport, error) {
	if srcPath == e.DB.Path {
		return nil, fmt.Errorf("%w: source and destination are the same store", memory.ErrInvalidInput)
	}

	src, err := store.OpenReadOnly(srcPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ok, err := src.HasTable("memories")
	if err != nil {
		return nil, fmt.Errorf("inspect source: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s has no memories table", memory.ErrSchemaMismatch, srcPath)
	}

	recs, err := src.ListMemories()
	if err != nil {
		return nil, fmt.Errorf("%w: reading source records: %v", memory.ErrSchemaMismatch, err)
	}

	rep := &MigrateReport{Source: srcPath, Scanned: len(recs)}
	for i := range recs {
		e.mergeRecord(&recs[i], rep)
	}

	if err := e.mergeSessions(src, rep); err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("sessions: %v", err))
	}

	e.Logger.Info("migration complete",
		zap.String("source", srcPath),
		zap.Int("scanned", rep.Scanned),
		zap.Int("merged", rep.Merged),
		zap.Int("skipped", rep.Skipped),
		zap.Int("renamed", rep.Renamed),
		zap.Int("warnings", len(rep.Warnings)))
	return rep, nil
}

// mergeRecord decides the fate of one source record. Failures warn and
// return; the caller moves on to the next record.
func (e *Engine) mergeRecord(src *memory.Record, rep *MigrateReport) {
	rec := *src
	rec.ID = 0
	rec.Fingerprint = memory.Fingerprint(rec.Category, rec.Title, rec.Content)

	existing, err := e.DB.GetByFingerprint(rec.Fingerprint)
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("record %q: %v", rec.Title, err))
		return
	}
	if existing != nil {
		rep.Skipped++
		return
	}

	collide, err := e.DB.GetByCategoryTitle(rec.Category, rec.Project, rec.Title)
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("record %q: %v", rec.Title, err))
		return
	}
	if collide != nil {
		if memory.NearIdentical(collide.Content, rec.Content) {
			rep.Skipped++
			return
		}

		// Conflicting content under the same title. Keep both: the
		// destination stays untouched, the import arrives renamed.
		rec.Title += importedTitleSuffix
		rec.Fingerprint = memory.Fingerprint(rec.Category, rec.Title, rec.Content)

		renamed, err := e.DB.GetByFingerprint(rec.Fingerprint)
		if err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("record %q: %v", rec.Title, err))
			return
		}
		if renamed != nil {
			// An earlier run already imported this conflict.
			rep.Skipped++
			return
		}

		rep.Renamed++
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"title conflict on %q (%s): imported copy kept as %q", collide.Title, rec.Category, rec.Title))
	}

	if err := e.DB.InsertMemory(&rec); err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("record %q: insert: %v", rec.Title, err))
		return
	}
	rep.Merged++
}

// mergeSessions copies saved sessions when the source schema has them.
// The session_id upsert makes this leg idempotent on its own.
func (e *Engine) mergeSessions(src *store.DB, rep *MigrateReport) error {
	ok, err := src.HasTable("saved_sessions")
	if err != nil || !ok {
		return err
	}

	sessions, err := src.AllSessions()
	if err != nil {
		return err
	}
	rep.SessionsScanned = len(sessions)

	for i := range sessions {
		s := sessions[i]
		s.ID = 0
		if err := e.DB.SaveSession(&s); err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("session %s: %v", s.SessionID, err))
			continue
		}
		rep.SessionsMerged++
	}
	return nil
}
