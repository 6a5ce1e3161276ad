package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/memory"
	"github.com/lazypower/keepsake/internal/store"
)

// briefEntryMaxChars bounds one decayable entry. Exempt categories are
// rendered in full; they never fade, so they are never cut short.
const briefEntryMaxChars = 400

// BriefScope selects which partition the brief covers: global records
// only, or global plus one project's records.
type BriefScope struct {
	Project string
}

var briefSections = []struct {
	cat   memory.Category
	title string
}{
	{memory.Knowledge, "Knowledge"},
	{memory.CurrentState, "Current State"},
	{memory.Decision, "Decisions"},
	{memory.Session, "Session Notes"},
}

// briefDropOrder lists categories from first-to-drop to last-to-drop
// when the document exceeds its budget. Faded ephemera go before
// decisions; knowledge and current state survive longest.
var briefDropOrder = []memory.Category{
	memory.Session, memory.Decision, memory.CurrentState, memory.Knowledge,
}

// CompileBrief renders the current non-blank memory set as a bounded
// markdown digest: grouped by category, ranked by significance, recall,
// and recency, with recent session activity appended. Output is
// deterministic for a given store state and clock reading. The brief is
// a projection, never a source of truth; it can be regenerated any time.
func (e *Engine) CompileBrief(scope BriefScope) (string, error) {
	recs, err := e.DB.ListScoped(scope.Project)
	if err != nil {
		return "", err
	}
	now := e.nowFn()

	byCat := make(map[memory.Category][]memory.Record, len(briefSections))
	for i := range recs {
		rec := recs[i]
		rec.Age(now)
		if rec.State() == memory.Blank {
			continue // blank records stay searchable but are never briefed
		}
		byCat[rec.Category] = append(byCat[rec.Category], rec)
	}
	for cat := range byCat {
		sortBriefEntries(byCat[cat])
	}

	sessions, err := e.DB.RecentSessions(recentSessionsInBrief)
	if err != nil {
		e.Logger.Warn("brief: recent sessions unavailable", zap.Error(err))
		sessions = nil
	}

	doc := renderBrief(byCat, sessions, scope, now)
	for len(doc) > e.BriefMaxChars {
		if !dropLowestPriority(byCat) {
			break
		}
		doc = renderBrief(byCat, sessions, scope, now)
	}
	return doc, nil
}

// sortBriefEntries orders one category's entries: significance desc,
// recall desc, last access desc, id as the final deterministic key.
func sortBriefEntries(list []memory.Record) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Significance != b.Significance {
			return a.Significance > b.Significance
		}
		if a.Recall != b.Recall {
			return a.Recall > b.Recall
		}
		if a.LastAccessedAt != b.LastAccessedAt {
			return a.LastAccessedAt > b.LastAccessedAt
		}
		return a.ID < b.ID
	})
}

// dropLowestPriority removes the weakest remaining entry, walking
// categories in drop order. Returns false when nothing is left to drop.
func dropLowestPriority(byCat map[memory.Category][]memory.Record) bool {
	for _, cat := range briefDropOrder {
		list := byCat[cat]
		if len(list) == 0 {
			continue
		}
		byCat[cat] = list[:len(list)-1]
		return true
	}
	return false
}

func renderBrief(byCat map[memory.Category][]memory.Record, sessions []store.SavedSession, scope BriefScope, now int64) string {
	var b strings.Builder

	b.WriteString("# Memory Brief\n")
	fmt.Fprintf(&b, "Generated: %s\n", time.UnixMilli(now).UTC().Format(time.RFC3339))
	if scope.Project != "" {
		fmt.Fprintf(&b, "Project: %s\n", scope.Project)
	}

	for _, sec := range briefSections {
		list := byCat[sec.cat]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n", sec.title)
		for i := range list {
			writeBriefEntry(&b, &list[i])
		}
	}

	if len(sessions) > 0 {
		b.WriteString("\n## Recent Activity\n")
		for _, s := range sessions {
			ts := time.UnixMilli(s.CreatedAt).UTC().Format("2006-01-02")
			summary := truncateClean(collapseWhitespace(s.Summary), 200)
			if s.Project != "" {
				fmt.Fprintf(&b, "- [%s] %s: %s\n", ts, s.Project, summary)
			} else {
				fmt.Fprintf(&b, "- [%s] %s\n", ts, summary)
			}
		}
	}

	return b.String()
}

func writeBriefEntry(b *strings.Builder, rec *memory.Record) {
	if !rec.Category.DecayEligible() {
		fmt.Fprintf(b, "- **%s** (sig %d): %s\n", rec.Title, rec.Significance, rec.Content)
		return
	}

	content := truncateClean(collapseWhitespace(rec.Content), briefEntryMaxChars)
	if rec.Recall < 1.0 {
		fmt.Fprintf(b, "- **%s** (sig %d, recall %.0f%%): %s\n",
			rec.Title, rec.Significance, rec.Recall*100, content)
	} else {
		fmt.Fprintf(b, "- **%s** (sig %d): %s\n", rec.Title, rec.Significance, content)
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SessionContext frames the brief for injection into a fresh session.
// A brief with no sections is just the header; injecting it would be
// noise, so it collapses to the empty string.
func (e *Engine) SessionContext(scope BriefScope) (string, error) {
	brief, err := e.CompileBrief(scope)
	if err != nil {
		return "", err
	}
	if !strings.Contains(brief, "\n## ") {
		return "", nil
	}
	return "Long-term memory from previous sessions:\n\n" + brief, nil
}
