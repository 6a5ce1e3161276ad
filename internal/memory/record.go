// Package memory defines the record model and the pure lifecycle math:
// categories, significance-weighted weekly decay, state classification,
// and the search recall boost. Persistence lives in store; orchestration
// in engine. Everything here is deterministic and side-effect free so the
// lazy read path and the persisted decay pass can never disagree.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Category partitions records by how they age. knowledge and current_state
// are exempt from decay; decision and session fade over time.
type Category string

const (
	Knowledge    Category = "knowledge"
	CurrentState Category = "current_state"
	Decision     Category = "decision"
	Session      Category = "session"
)

// Categories lists all valid categories in brief render order.
var Categories = []Category{Knowledge, CurrentState, Decision, Session}

// ParseCategory validates a caller-supplied category string.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Knowledge, CurrentState, Decision, Session:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, s)
	}
}

// DecayEligible reports whether records of this category fade over time.
// knowledge and current_state are pinned at full recall.
func (c Category) DecayEligible() bool {
	switch c {
	case Decision, Session:
		return true
	case Knowledge, CurrentState:
		return false
	default:
		// Unknown categories never reach storage; treat as eligible so a
		// corrupt row still ages out instead of living forever.
		return true
	}
}

func (c Category) String() string { return string(c) }

// State is the derived freshness classification of a record.
type State string

const (
	Clear State = "clear" // recall >= 0.70 and significance >= 6
	Fuzzy State = "fuzzy" // recall >= 0.40, not clear
	Blank State = "blank" // recall < 0.40, prune candidate
)

// States lists all classifications, strongest first.
var States = []State{Clear, Fuzzy, Blank}

func (s State) String() string { return string(s) }

// Record is the atomic unit of stored memory.
type Record struct {
	ID             int64    `json:"id"`
	Fingerprint    string   `json:"-"`
	Category       Category `json:"category"`
	Significance   int      `json:"significance"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Tags           []string `json:"tags,omitempty"`
	Project        string   `json:"project,omitempty"`
	Recall         float64  `json:"recall"`
	CreatedAt      int64    `json:"created_at"`
	LastAccessedAt int64    `json:"last_accessed_at"`
	LastDecayAt    int64    `json:"last_decay_at"`
}

// State classifies the record from its current recall and significance.
func (r *Record) State() State {
	return Classify(r.Recall, r.Significance)
}

// ValidateSignificance checks the 1-10 bound shared by add and touch.
func ValidateSignificance(n int) error {
	if n < 1 || n > 10 {
		return fmt.Errorf("%w: significance %d out of range 1-10", ErrInvalidInput, n)
	}
	return nil
}

// Fingerprint derives the stable merge identity of a record from its
// category, normalized title, and content. Two records with the same
// fingerprint are the same memory for migration purposes.
func Fingerprint(category Category, title, content string) string {
	h := sha256.New()
	h.Write([]byte(category))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(title))))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeTags trims, lowercases, deduplicates, and sorts a tag set so
// storage and comparisons are order-independent.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// SplitTags parses a comma-separated tag list from CLI flags.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(s, ","))
}

// ProjectKey derives the partition key for a working directory: the
// final path element. Hooks and CLI agree on this so records filed from
// either side land in the same partition.
func ProjectKey(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return ""
	}
	key := path.Base(filepath.ToSlash(filepath.Clean(dir)))
	if key == "." || key == "/" {
		return ""
	}
	return key
}
