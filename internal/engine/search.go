package engine

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/memory"
)

// SearchResult represents a single search result.
type SearchResult struct {
	Record memory.Record `json:"record"`
	Score  float64       `json:"score"`
}

// SearchOpts controls search behavior.
type SearchOpts struct {
	Limit int // max results (default 10)
}

func (o SearchOpts) limit() int {
	if o.Limit <= 0 {
		return defaultSearchLimit
	}
	return o.Limit
}

// Scoring weights. Phrase-in-title dominates every combination of term
// hits (max 3+1+2 = 6 < 8) so full-phrase title matches always outrank
// partial matches.
const (
	titlePhraseWeight   = 8.0
	contentPhraseWeight = 5.0
	titleTermWeight     = 3.0
	tagTermWeight       = 2.0
	contentTermWeight   = 1.0
)

// Search returns relevance-ranked matches over title, content, and tags.
// Blank records stay searchable: finding one is how it gets rescued.
// Every returned record receives the recall boost and a fresh
// last_accessed_at, applied exactly once per invocation.
func (e *Engine) Search(query string, opts SearchOpts) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", memory.ErrInvalidInput)
	}

	cands, err := e.DB.SearchCandidates(query, searchCandidateCap)
	if err != nil {
		return nil, err
	}

	now := e.nowFn()
	var results []SearchResult
	for i := range cands {
		rec := &cands[i]
		rec.Age(now) // current recall for display; persisted below only on hit
		score := relevanceScore(rec, query)
		if score <= 0 {
			continue
		}
		results = append(results, SearchResult{Record: *rec, Score: score})
	}

	// Rank by relevance; ties by significance, then recency of access,
	// then id so equal records order deterministically.
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Record.Significance != b.Record.Significance {
			return a.Record.Significance > b.Record.Significance
		}
		if a.Record.LastAccessedAt != b.Record.LastAccessedAt {
			return a.Record.LastAccessedAt > b.Record.LastAccessedAt
		}
		return a.Record.ID < b.Record.ID
	})

	if limit := opts.limit(); len(results) > limit {
		results = results[:limit]
	}

	// Boost the result set. The aged recall from above is the basis, so
	// a stale stored value cannot leak a larger boost than deserved.
	for i := range results {
		rec := &results[i].Record
		rec.Recall = memory.Boost(rec.Recall)
		rec.LastAccessedAt = now
		if err := e.DB.SaveRecall(rec); err != nil {
			e.Logger.Warn("search: boost failed", zap.Int64("id", rec.ID), zap.Error(err))
		}
	}

	return results, nil
}

// relevanceScore computes term/phrase relevance for one record. Term
// components are normalized by term count so no pile of partial hits can
// outweigh a phrase match.
func relevanceScore(rec *memory.Record, query string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	title := strings.ToLower(rec.Title)
	content := strings.ToLower(rec.Content)
	tags := strings.ToLower(strings.Join(rec.Tags, " "))

	score := 0.0
	if strings.Contains(title, q) {
		score += titlePhraseWeight
	}
	if strings.Contains(content, q) {
		score += contentPhraseWeight
	}

	terms := strings.Fields(q)
	if len(terms) == 0 {
		return score
	}

	var inTitle, inContent, inTags int
	for _, term := range terms {
		if strings.Contains(title, term) {
			inTitle++
		}
		if strings.Contains(content, term) {
			inContent++
		}
		if strings.Contains(tags, term) {
			inTags++
		}
	}

	n := float64(len(terms))
	score += titleTermWeight * float64(inTitle) / n
	score += contentTermWeight * float64(inContent) / n
	score += tagTermWeight * float64(inTags) / n
	return score
}
