package transcript

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxRequestChars  = 300
	maxFollowupChars = 150
	maxOutcomeChars  = 600
	maxSummaryChars  = 4000
)

// Summarize condenses a parsed transcript into a session narrative fit
// for long-term storage: the opening request, later user direction, and
// the closing assistant outcome. User messages carry the intent, so
// they all survive in clipped form; assistant chatter mostly does not.
func Summarize(entries []ParsedEntry) string {
	var userMsgs, assistantMsgs []ParsedEntry
	for _, e := range entries {
		if e.Text == "" {
			continue
		}
		switch e.Type {
		case "user":
			userMsgs = append(userMsgs, e)
		case "assistant":
			assistantMsgs = append(assistantMsgs, e)
		}
	}
	if len(userMsgs) == 0 && len(assistantMsgs) == 0 {
		return ""
	}

	var b strings.Builder

	if len(userMsgs) > 0 {
		b.WriteString("Request: ")
		b.WriteString(clip(userMsgs[0].Text, maxRequestChars))
		b.WriteString("\n")
		for _, u := range userMsgs[1:] {
			b.WriteString("- ")
			b.WriteString(clip(u.Text, maxFollowupChars))
			b.WriteString("\n")
		}
	}

	if len(assistantMsgs) > 0 {
		b.WriteString("Outcome: ")
		b.WriteString(clip(assistantMsgs[len(assistantMsgs)-1].Text, maxOutcomeChars))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "(%d user messages, %d assistant replies)",
		len(userMsgs), len(assistantMsgs))

	return clip(strings.TrimSpace(b.String()), maxSummaryChars)
}

// clip shortens s to max bytes at a rune boundary, marking the cut.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
