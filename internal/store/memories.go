package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/keepsake/internal/memory"
)

// InsertMemory inserts a new record. Zero timestamps default to now,
// tags are normalized, and the fingerprint is derived when absent. The
// caller decides the initial recall (1.0 for fresh adds; migrate carries
// the source value through).
func (db *DB) InsertMemory(rec *memory.Record) error {
	now := time.Now().UnixMilli()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	if rec.LastAccessedAt == 0 {
		rec.LastAccessedAt = rec.CreatedAt
	}
	if rec.LastDecayAt == 0 {
		rec.LastDecayAt = rec.CreatedAt
	}
	if rec.Fingerprint == "" {
		rec.Fingerprint = memory.Fingerprint(rec.Category, rec.Title, rec.Content)
	}
	rec.Tags = memory.NormalizeTags(rec.Tags)
	rec.Recall = memory.ClampRecall(rec.Recall)

	result, err := db.Exec(`
		INSERT INTO memories (fingerprint, category, significance, title, content, tags, project,
			recall, last_decay_at, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Fingerprint, string(rec.Category), rec.Significance, rec.Title, rec.Content,
		marshalStrings(rec.Tags), rec.Project,
		rec.Recall, rec.LastDecayAt, rec.CreatedAt, rec.LastAccessedAt)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}

	id, _ := result.LastInsertId()
	rec.ID = id
	return nil
}

// GetMemory returns a record by id, or nil if not found.
func (db *DB) GetMemory(id int64) (*memory.Record, error) {
	return db.getMemoryWhere("id = ?", id)
}

// GetByFingerprint returns a record by its merge identity, or nil if not found.
func (db *DB) GetByFingerprint(fp string) (*memory.Record, error) {
	return db.getMemoryWhere("fingerprint = ?", fp)
}

// GetByCategoryTitle returns a record in the same category and project
// whose normalized title matches, or nil if none does. Migration uses
// this to spot title collisions that the fingerprint check misses.
func (db *DB) GetByCategoryTitle(category memory.Category, project, title string) (*memory.Record, error) {
	return db.getMemoryWhere(
		"category = ? AND project = ? AND lower(trim(title)) = lower(trim(?))",
		string(category), project, title)
}

func (db *DB) getMemoryWhere(where string, args ...any) (*memory.Record, error) {
	row := db.QueryRow(`
		SELECT id, fingerprint, category, significance, title, content, tags, project,
			recall, last_decay_at, created_at, last_accessed_at
		FROM memories WHERE `+where, args...)

	rec, err := scanMemory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return rec, nil
}

// ListMemories returns all records in stable export order: category,
// then significance descending, then id.
func (db *DB) ListMemories() ([]memory.Record, error) {
	rows, err := db.Query(`
		SELECT id, fingerprint, category, significance, title, content, tags, project,
			recall, last_decay_at, created_at, last_accessed_at
		FROM memories
		ORDER BY category, significance DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// ListScoped returns global records plus those of the given project.
// An empty project returns only global records.
func (db *DB) ListScoped(project string) ([]memory.Record, error) {
	rows, err := db.Query(`
		SELECT id, fingerprint, category, significance, title, content, tags, project,
			recall, last_decay_at, created_at, last_accessed_at
		FROM memories
		WHERE project = '' OR project = ?
		ORDER BY id
	`, project)
	if err != nil {
		return nil, fmt.Errorf("list scoped memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// UpdateMemory rewrites the mutable fields of a record (significance,
// title, content, tags, project) and refreshes the fingerprint. Category
// is immutable after creation. Returns memory.ErrNotFound for unknown ids.
func (db *DB) UpdateMemory(rec *memory.Record) error {
	rec.Tags = memory.NormalizeTags(rec.Tags)
	rec.Fingerprint = memory.Fingerprint(rec.Category, rec.Title, rec.Content)

	result, err := db.Exec(`
		UPDATE memories SET significance = ?, title = ?, content = ?, tags = ?, project = ?, fingerprint = ?
		WHERE id = ?
	`, rec.Significance, rec.Title, rec.Content, marshalStrings(rec.Tags), rec.Project, rec.Fingerprint, rec.ID)
	if err != nil {
		return fmt.Errorf("update memory %d: %w", rec.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("update memory %d: %w", rec.ID, memory.ErrNotFound)
	}
	return nil
}

// SaveRecall persists the decay/boost state of a record: recall,
// last_decay_at, and last_accessed_at. The caller computes the values
// through the pure decay path; this is the write half of the
// read-modify-write.
func (db *DB) SaveRecall(rec *memory.Record) error {
	result, err := db.Exec(`
		UPDATE memories SET recall = ?, last_decay_at = ?, last_accessed_at = ?
		WHERE id = ?
	`, memory.ClampRecall(rec.Recall), rec.LastDecayAt, rec.LastAccessedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("save recall %d: %w", rec.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("save recall %d: %w", rec.ID, memory.ErrNotFound)
	}
	return nil
}

// DeleteMemory removes a record by id. Returns memory.ErrNotFound if the
// id does not exist.
func (db *DB) DeleteMemory(id int64) error {
	result, err := db.Exec("DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete memory %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("delete memory %d: %w", id, memory.ErrNotFound)
	}
	return nil
}

// CountMemories returns the total number of stored records.
func (db *DB) CountMemories() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM memories").Scan(&count)
	return count, err
}

// SearchCandidates returns records matching the query through the FTS
// index (tokenized, prefix-expanded) unioned with a LIKE scan so plain
// substrings still hit. Relevance ordering is the engine's job; this
// only gathers candidates, capped at limit per leg.
func (db *DB) SearchCandidates(query string, limit int) ([]memory.Record, error) {
	seen := make(map[int64]bool)
	var out []memory.Record

	if match := ftsMatchExpr(query); match != "" {
		rows, err := db.Query(`
			SELECT m.id, m.fingerprint, m.category, m.significance, m.title, m.content, m.tags, m.project,
				m.recall, m.last_decay_at, m.created_at, m.last_accessed_at
			FROM memories m
			JOIN memories_fts f ON f.rowid = m.id
			WHERE f.memories_fts MATCH ?
			LIMIT ?
		`, match, limit)
		if err != nil {
			return nil, fmt.Errorf("fts search: %w", err)
		}
		recs, err := scanMemories(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if !seen[r.ID] {
				seen[r.ID] = true
				out = append(out, r)
			}
		}
	}

	// LIKE leg: catches mid-word substrings the tokenizer cannot see.
	where, args := likeClause(query)
	args = append(args, limit)
	rows, err := db.Query(`
		SELECT id, fingerprint, category, significance, title, content, tags, project,
			recall, last_decay_at, created_at, last_accessed_at
		FROM memories
		WHERE `+where+`
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("like search: %w", err)
	}
	recs, err := scanMemories(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if !seen[r.ID] {
			seen[r.ID] = true
			out = append(out, r)
		}
	}

	return out, nil
}

// ftsMatchExpr builds a safe FTS5 MATCH expression: each whitespace term
// quoted and prefix-expanded, OR-joined. Returns "" when the query has no
// usable terms.
func ftsMatchExpr(query string) string {
	var parts []string
	for _, term := range strings.Fields(query) {
		term = strings.ReplaceAll(term, `"`, `""`)
		if term == "" {
			continue
		}
		parts = append(parts, `"`+term+`"*`)
	}
	return strings.Join(parts, " OR ")
}

// likeClause builds a WHERE fragment matching the whole query or any
// single term as a substring of title, content, or tags.
func likeClause(query string) (string, []any) {
	patterns := []string{"%" + strings.TrimSpace(query) + "%"}
	for _, term := range strings.Fields(query) {
		if term != strings.TrimSpace(query) {
			patterns = append(patterns, "%"+term+"%")
		}
	}

	var conds []string
	var args []any
	for _, p := range patterns {
		conds = append(conds, "(title LIKE ? OR content LIKE ? OR tags LIKE ?)")
		args = append(args, p, p, p)
	}
	return strings.Join(conds, " OR "), args
}

func scanMemory(scan func(...any) error) (*memory.Record, error) {
	var rec memory.Record
	var category, tags string
	if err := scan(&rec.ID, &rec.Fingerprint, &category, &rec.Significance,
		&rec.Title, &rec.Content, &tags, &rec.Project,
		&rec.Recall, &rec.LastDecayAt, &rec.CreatedAt, &rec.LastAccessedAt); err != nil {
		return nil, err
	}
	rec.Category = memory.Category(category)
	rec.Tags = unmarshalStrings(tags)
	return &rec, nil
}

func scanMemories(rows *sql.Rows) ([]memory.Record, error) {
	var recs []memory.Record
	for rows.Next() {
		rec, err := scanMemory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func marshalStrings(vals []string) string {
	if len(vals) == 0 {
		return "[]"
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(s), &vals); err != nil {
		return nil
	}
	return vals
}
