package llm

import "fmt"

// AuditPrompt builds the prompt for a memory audit: the model reviews
// the current record inventory against recent session activity and
// suggests lifecycle actions.
func AuditPrompt(inventory, activity string) string {
	if inventory == "" {
		inventory = "(store is empty)"
	}
	if activity == "" {
		activity = "(no recent sessions)"
	}

	return fmt.Sprintf(`You are auditing a long-term memory store for an AI coding assistant.

CURRENT MEMORIES (id, category, significance 1-10, recall %%):
%s

RECENT SESSION ACTIVITY:
%s

Categories:
- knowledge: durable facts about the user, their projects, and their environment
- current_state: where things stand right now (branch in flight, blocking bug)
- decision: choices made and why
- session: what happened in one working session

Suggest lifecycle actions:
- "add": a fact visible in the activity that the store is missing
- "update": a memory whose content is stale or whose significance no longer fits
- "prune": a memory that is obsolete, superseded, or wrong

Rules:
- Suggest only changes you are confident about; fewer is better
- Never suggest pruning knowledge or decision records unless clearly superseded
- current_state records that recent activity contradicts are prime prune targets
- significance: 10 never fades, 6+ stays readable for months, 1-3 fades within weeks
- Maximum 10 suggestions
- Return ONLY a JSON array, no other text

Return a JSON array:
[{
  "action": "add|update|prune",
  "id": 0,
  "category": "knowledge|current_state|decision|session",
  "significance": 5,
  "title": "short title (add only)",
  "content": "full content (add/update)",
  "reason": "one sentence"
}]

If nothing needs changing, return: []`, inventory, activity)
}
