package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/llm"
	"github.com/lazypower/keepsake/internal/memory"
)

const (
	// maxAuditRecords bounds the inventory sent to the model. Highest
	// significance first, so what gets cut is what matters least.
	maxAuditRecords = 200

	// maxAuditFindings caps accepted suggestions per run, whatever the
	// model returns.
	maxAuditFindings = 10

	// auditSessionWindow is how many recent sessions feed the activity
	// section before the day cutoff applies.
	auditSessionWindow = 20

	auditTimeout = 120 * time.Second
)

// AuditScope bounds an audit run: one project (plus global records) and
// an activity window in days. Zero days means no cutoff.
type AuditScope struct {
	Project string
	Days    int
}

// AuditFinding is one suggestion from an audit run. Action is "add",
// "update", or "prune"; update and prune name an existing record by id.
type AuditFinding struct {
	Action       string `json:"action"`
	ID           int64  `json:"id,omitempty"`
	Category     string `json:"category,omitempty"`
	Significance int    `json:"significance,omitempty"`
	Title        string `json:"title,omitempty"`
	Content      string `json:"content,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// AuditReport holds the validated findings of one audit run. Nothing is
// applied automatically; the caller decides what to act on.
type AuditReport struct {
	Findings []AuditFinding `json:"findings"`
	Provider string         `json:"provider,omitempty"`
	Tokens   int            `json:"tokens_used,omitempty"`
}

// BuildAuditPrompt assembles the full prompt an audit run would send:
// the record inventory plus recent session activity. Exposed so callers
// can inspect the prompt without spending tokens.
func (e *Engine) BuildAuditPrompt(scope AuditScope) (string, error) {
	recs, err := e.DB.ListScoped(scope.Project)
	if err != nil {
		return "", err
	}
	now := e.nowFn()
	inventory := renderAuditInventory(recs, now)

	sessions, err := e.DB.RecentSessions(auditSessionWindow)
	if err != nil {
		e.Logger.Warn("audit: recent sessions unavailable", zap.Error(err))
	}

	var activity strings.Builder
	cutoff := int64(0)
	if scope.Days > 0 {
		cutoff = now - int64(scope.Days)*24*int64(time.Hour/time.Millisecond)
	}
	for _, s := range sessions {
		if s.CreatedAt < cutoff {
			continue
		}
		ts := time.UnixMilli(s.CreatedAt).UTC().Format("2006-01-02")
		fmt.Fprintf(&activity, "- [%s] %s\n", ts, truncateClean(collapseWhitespace(s.Summary), 300))
	}

	return llm.AuditPrompt(inventory, activity.String()), nil
}

// Audit asks the configured LLM to review the current memory set
// against recent session activity: stale state worth pruning, missing
// knowledge worth recording, significance that no longer fits. Returns
// suggestions only.
func (e *Engine) Audit(ctx context.Context, scope AuditScope) (*AuditReport, error) {
	if e.LLM == nil {
		return nil, fmt.Errorf("%w: audit requires an LLM provider", memory.ErrInvalidInput)
	}

	prompt, err := e.BuildAuditPrompt(scope)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, auditTimeout)
	defer cancel()

	resp, err := e.LLM.Complete(cctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm audit: %w", err)
	}

	findings, err := parseAuditResponse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse audit response: %w", err)
	}

	report := &AuditReport{Provider: resp.Provider, Tokens: resp.TokensUsed}
	for _, f := range findings {
		if len(report.Findings) >= maxAuditFindings {
			e.Logger.Warn("audit: capping findings", zap.Int("returned", len(findings)))
			break
		}
		if err := validateFinding(f); err != nil {
			e.Logger.Warn("audit: rejecting finding",
				zap.String("action", f.Action), zap.String("title", f.Title), zap.Error(err))
			continue
		}
		report.Findings = append(report.Findings, f)
	}

	e.Logger.Info("audit complete",
		zap.String("provider", report.Provider),
		zap.Int("findings", len(report.Findings)),
		zap.Int("tokens", report.Tokens))
	return report, nil
}

// ApplyFinding executes one accepted suggestion. Adds land in the given
// project; updates touch only the fields the finding filled in.
func (e *Engine) ApplyFinding(f AuditFinding, project string) error {
	if err := validateFinding(f); err != nil {
		return fmt.Errorf("%w: %v", memory.ErrInvalidInput, err)
	}

	switch f.Action {
	case "add":
		_, _, err := e.Add(AddParams{
			Category:     f.Category,
			Significance: f.Significance,
			Title:        f.Title,
			Content:      f.Content,
			Project:      project,
		})
		return err
	case "update":
		params := UpdateParams{ID: f.ID}
		if f.Content != "" {
			params.Content = &f.Content
		}
		if f.Significance != 0 {
			params.Significance = &f.Significance
		}
		_, err := e.Update(params)
		return err
	case "prune":
		return e.Delete(f.ID)
	}
	return fmt.Errorf("%w: unknown action %q", memory.ErrInvalidInput, f.Action)
}

// renderAuditInventory lists records for the prompt, one line each,
// highest significance first, effective recall shown.
func renderAuditInventory(recs []memory.Record, now int64) string {
	aged := make([]memory.Record, len(recs))
	copy(aged, recs)
	for i := range aged {
		aged[i].Age(now)
	}
	sort.SliceStable(aged, func(i, j int) bool {
		if aged[i].Significance != aged[j].Significance {
			return aged[i].Significance > aged[j].Significance
		}
		return aged[i].ID < aged[j].ID
	})
	if len(aged) > maxAuditRecords {
		aged = aged[:maxAuditRecords]
	}

	var b strings.Builder
	for i := range aged {
		r := &aged[i]
		fmt.Fprintf(&b, "- id=%d [%s] sig=%d recall=%.0f%% %s: %s\n",
			r.ID, r.Category, r.Significance, r.Recall*100,
			r.Title, truncateClean(collapseWhitespace(r.Content), 200))
	}
	return b.String()
}

// parseAuditResponse extracts the findings array from the raw model
// output, tolerating markdown fences and surrounding prose.
func parseAuditResponse(content string) ([]AuditFinding, error) {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	content = strings.TrimSpace(content)

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var findings []AuditFinding
	if err := json.Unmarshal([]byte(content[start:end+1]), &findings); err != nil {
		return nil, fmt.Errorf("unmarshal findings: %w", err)
	}
	return findings, nil
}

func validateFinding(f AuditFinding) error {
	switch f.Action {
	case "add":
		if _, err := memory.ParseCategory(f.Category); err != nil {
			return err
		}
		if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Content) == "" {
			return fmt.Errorf("add needs a title and content")
		}
		return memory.ValidateSignificance(f.Significance)
	case "update":
		if f.ID <= 0 {
			return fmt.Errorf("update needs a record id")
		}
		if f.Content == "" && f.Significance == 0 {
			return fmt.Errorf("update changes nothing")
		}
		if f.Significance != 0 {
			return memory.ValidateSignificance(f.Significance)
		}
		return nil
	case "prune":
		if f.ID <= 0 {
			return fmt.Errorf("prune needs a record id")
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", f.Action)
}
