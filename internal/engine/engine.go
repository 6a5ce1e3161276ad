package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/llm"
	"github.com/lazypower/keepsake/internal/memory"
	"github.com/lazypower/keepsake/internal/store"
)

// Defaults for tunable limits. Config can override through the setters.
const (
	DefaultBriefMaxChars   = 16 * 1024
	DefaultSessionMaxBytes = 200 * 1024 * 1024
	searchCandidateCap     = 500
	defaultSearchLimit     = 10
	recentSessionsInBrief  = 5
)

// Engine orchestrates the memory lifecycle: adds and updates, the decay
// pass, search with its recall boost, pruning, brief compilation, and
// store migration. All persisted mutation goes through the store's
// transaction primitive; the engine itself holds no state worth locking.
type Engine struct {
	DB     *store.DB
	LLM    llm.Client
	Logger *zap.Logger

	BriefMaxChars   int
	SessionMaxBytes int64

	nowFn func() int64
}

// New creates an Engine over an open store. The logger may not be nil;
// pass zap.NewNop() when logging is unwanted.
func New(db *store.DB, logger *zap.Logger) *Engine {
	return &Engine{
		DB:              db,
		Logger:          logger,
		BriefMaxChars:   DefaultBriefMaxChars,
		SessionMaxBytes: DefaultSessionMaxBytes,
		nowFn:           func() int64 { return time.Now().UnixMilli() },
	}
}

// SetLLM configures the completion provider used by the audit.
func (e *Engine) SetLLM(client llm.Client) {
	e.LLM = client
}

// AddParams carries caller input for a new record.
type AddParams struct {
	Category     string
	Significance int
	Title        string
	Content      string
	Tags         []string
	Project      string
}

// Add validates and stores a new memory with full recall. Returns the
// stored record and whether it was created; adding a memory whose
// category, title, and content already exist returns the existing record
// unchanged.
func (e *Engine) Add(p AddParams) (*memory.Record, bool, error) {
	cat, err := memory.ParseCategory(p.Category)
	if err != nil {
		return nil, false, err
	}
	if err := memory.ValidateSignificance(p.Significance); err != nil {
		return nil, false, err
	}
	title, content, err := e.validateText(p.Title, p.Content)
	if err != nil {
		return nil, false, err
	}

	fp := memory.Fingerprint(cat, title, content)
	if existing, err := e.DB.GetByFingerprint(fp); err != nil {
		return nil, false, err
	} else if existing != nil {
		e.Logger.Debug("add: identical memory already stored",
			zap.Int64("id", existing.ID), zap.String("title", existing.Title))
		return existing, false, nil
	}

	rec := &memory.Record{
		Fingerprint:  fp,
		Category:     cat,
		Significance: p.Significance,
		Title:        title,
		Content:      content,
		Tags:         memory.NormalizeTags(p.Tags),
		Project:      p.Project,
		Recall:       1.0,
	}
	if err := e.DB.InsertMemory(rec); err != nil {
		return nil, false, err
	}

	e.Logger.Info("memory added",
		zap.Int64("id", rec.ID),
		zap.String("category", string(rec.Category)),
		zap.Int("significance", rec.Significance))
	return rec, true, nil
}

// Get returns one record with lazily computed current recall. The
// computed value is not written back.
func (e *Engine) Get(id int64) (*memory.Record, error) {
	rec, err := e.DB.GetMemory(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("memory %d: %w", id, memory.ErrNotFound)
	}
	rec.Age(e.nowFn())
	return rec, nil
}

// UpdateParams carries the mutable fields for a touch operation. Nil
// pointers leave the stored value alone; Tags replaces the whole set
// when non-nil.
type UpdateParams struct {
	ID           int64
	Significance *int
	Title        *string
	Content      *string
	Tags         []string
	Project      *string
}

// Update rewrites a record's mutable fields. Category and recall are
// untouched: significance changes take effect at the next decay pass.
func (e *Engine) Update(p UpdateParams) (*memory.Record, error) {
	rec, err := e.DB.GetMemory(p.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("memory %d: %w", p.ID, memory.ErrNotFound)
	}

	if p.Significance != nil {
		if err := memory.ValidateSignificance(*p.Significance); err != nil {
			return nil, err
		}
		rec.Significance = *p.Significance
	}
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Content != nil {
		rec.Content = *p.Content
	}
	rec.Title, rec.Content, err = e.validateText(rec.Title, rec.Content)
	if err != nil {
		return nil, err
	}
	if p.Tags != nil {
		rec.Tags = p.Tags
	}
	if p.Project != nil {
		rec.Project = *p.Project
	}

	if err := e.DB.UpdateMemory(rec); err != nil {
		return nil, err
	}
	e.Logger.Info("memory updated", zap.Int64("id", rec.ID))
	return rec, nil
}

// Delete removes a record permanently.
func (e *Engine) Delete(id int64) error {
	if err := e.DB.DeleteMemory(id); err != nil {
		return err
	}
	e.Logger.Info("memory deleted", zap.Int64("id", id))
	return nil
}
