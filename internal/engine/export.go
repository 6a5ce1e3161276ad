package engine

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lazypower/keepsake/internal/memory"
	"github.com/lazypower/keepsake/internal/store"
)

// exportFormatVersion names the dump layout, not the database schema.
// Bump only when the JSON shape changes incompatibly.
const exportFormatVersion = 1

// ExportDoc is the full-store JSON dump: every record and session with
// stored field values. Recall is written as persisted, not lazily aged,
// so exporting twice without intervening writes yields identical bytes
// apart from the exported_at header.
type ExportDoc struct {
	FormatVersion int                  `json:"format_version"`
	SchemaVersion int                  `json:"schema_version"`
	ExportedAt    int64                `json:"exported_at"`
	Records       []memory.Record      `json:"records"`
	Sessions      []store.SavedSession `json:"sessions"`
}

// Export writes the whole store to w as indented JSON.
func (e *Engine) Export(w io.Writer) error {
	recs, err := e.DB.ListMemories()
	if err != nil {
		return err
	}
	sessions, err := e.DB.AllSessions()
	if err != nil {
		return err
	}
	schema, err := e.DB.SchemaVersion()
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}

	doc := ExportDoc{
		FormatVersion: exportFormatVersion,
		SchemaVersion: schema,
		ExportedAt:    e.nowFn(),
		Records:       recs,
		Sessions:      sessions,
	}
	if doc.Records == nil {
		doc.Records = []memory.Record{}
	}
	if doc.Sessions == nil {
		doc.Sessions = []store.SavedSession{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}
