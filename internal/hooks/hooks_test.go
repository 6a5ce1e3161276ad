package hooks

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/engine"
	"github.com/lazypower/keepsake/internal/store"
)

func decodeStartOutput(t *testing.T, raw string) SessionStartOutput {
	t.Helper()
	var parsed SessionStartOutput
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("invalid JSON output %q: %v", raw, err)
	}
	return parsed
}

func TestHandleStartWithServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/context" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("project"); got != "demo" {
			t.Errorf("project param = %q, want demo", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"project": "demo",
			"context": "Long-term memory from previous sessions:\n\n# Memory Brief\n\n## Knowledge\n- **Use WAL mode** (sig 8): the store runs better with it\n",
		})
	}))
	defer ts.Close()
	t.Setenv("KEEPSAKE_URL", ts.URL)

	input := `{"session_id":"s-001","hook_event_name":"SessionStart","cwd":"/home/u/src/demo"}`
	var out bytes.Buffer
	Handle("start", strings.NewReader(input), &out)

	parsed := decodeStartOutput(t, out.String())
	if parsed.HookSpecificOutput.HookEventName != "SessionStart" {
		t.Errorf("hookEventName = %q, want SessionStart", parsed.HookSpecificOutput.HookEventName)
	}
	ctx := parsed.HookSpecificOutput.AdditionalContext
	if !strings.Contains(ctx, "Use WAL mode") {
		t.Errorf("context missing brief content: %q", ctx)
	}
	if !strings.HasPrefix(ctx, "Long-term memory") {
		t.Errorf("context missing framing line: %q", ctx)
	}
}

func TestHandleStartServerDownReadsStoreDirectly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "memory.db")
	t.Setenv("KEEPSAKE_URL", "http://127.0.0.1:1")
	t.Setenv("KEEPSAKE_DB", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	eng := engine.New(db, zap.NewNop())
	if _, _, err := eng.Add(engine.AddParams{
		Category:     "knowledge",
		Significance: 8,
		Title:        "Deploy ritual",
		Content:      "Run migrations before restarting the fleet",
		Project:      "demo",
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	db.Close()

	input := `{"session_id":"s-002","hook_event_name":"SessionStart","cwd":"/home/u/src/demo"}`
	var out bytes.Buffer
	Handle("start", strings.NewReader(input), &out)

	parsed := decodeStartOutput(t, out.String())
	ctx := parsed.HookSpecificOutput.AdditionalContext
	if !strings.Contains(ctx, "Deploy ritual") {
		t.Errorf("fallback context missing seeded record: %q", ctx)
	}
	if !strings.HasPrefix(ctx, "Long-term memory") {
		t.Errorf("fallback context missing framing line: %q", ctx)
	}
}

func TestHandleStartEmptyWhenNothingStored(t *testing.T) {
	t.Setenv("KEEPSAKE_URL", "http://127.0.0.1:1")
	t.Setenv("KEEPSAKE_DB", filepath.Join(t.TempDir(), "absent.db"))

	input := `{"session_id":"s-003","hook_event_name":"SessionStart","cwd":"/tmp/fresh"}`
	var out bytes.Buffer
	Handle("start", strings.NewReader(input), &out)

	parsed := decodeStartOutput(t, out.String())
	if parsed.HookSpecificOutput.AdditionalContext != "" {
		t.Errorf("expected empty context, got %q", parsed.HookSpecificOutput.AdditionalContext)
	}
}

func TestHandleStartEmptyStdin(t *testing.T) {
	t.Setenv("KEEPSAKE_URL", "http://127.0.0.1:1")

	var out bytes.Buffer
	Handle("start", strings.NewReader(""), &out)

	parsed := decodeStartOutput(t, out.String())
	if parsed.HookSpecificOutput.AdditionalContext != "" {
		t.Errorf("expected empty context on empty stdin, got %q", parsed.HookSpecificOutput.AdditionalContext)
	}
}

const testTranscript = `{"type":"user","message":{"role":"user","content":"Fix the flaky login test"}}
{"type":"assistant","message":{"role":"assistant","content":"Looking at the listener startup first."}}
{"type":"user","message":{"role":"user","content":"Also check the teardown path"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"The race was in listener startup. Fixed by waiting for the ready signal."},{"type":"tool_use","name":"Edit","input":{"file_path":"/repo/auth_test.go"}}]}}
`

func writeTranscript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	if err := os.WriteFile(path, []byte(testTranscript), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestHandleEndSavesSessionToServer(t *testing.T) {
	var saved map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&saved)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"status": "saved"})
	}))
	defer ts.Close()
	t.Setenv("KEEPSAKE_URL", ts.URL)

	transcriptPath := writeTranscript(t)
	input, _ := json.Marshal(map[string]string{
		"session_id":      "s-100",
		"hook_event_name": "SessionEnd",
		"transcript_path": transcriptPath,
		"cwd":             "/home/u/src/demo",
	})

	Handle("end", bytes.NewReader(input), &bytes.Buffer{})

	if saved == nil {
		t.Fatal("server never received session payload")
	}
	if saved["session_id"] != "s-100" {
		t.Errorf("session_id = %v, want s-100", saved["session_id"])
	}
	if saved["project"] != "demo" {
		t.Errorf("project = %v, want demo", saved["project"])
	}
	summary, _ := saved["summary"].(string)
	if !strings.Contains(summary, "Fix the flaky login test") {
		t.Errorf("summary missing user request: %q", summary)
	}
	files, _ := saved["files_changed"].([]any)
	if len(files) != 1 || files[0] != "/repo/auth_test.go" {
		t.Errorf("files_changed = %v", files)
	}
}

func TestHandleEndServerDownWritesStoreDirectly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "memory.db")
	t.Setenv("KEEPSAKE_URL", "http://127.0.0.1:1")
	t.Setenv("KEEPSAKE_DB", dbPath)

	transcriptPath := writeTranscript(t)
	input, _ := json.Marshal(map[string]string{
		"session_id":      "s-101",
		"hook_event_name": "SessionEnd",
		"transcript_path": transcriptPath,
		"cwd":             "/home/u/src/demo",
	})

	Handle("end", bytes.NewReader(input), &bytes.Buffer{})

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	sessions, err := db.RecentSessions(5)
	if err != nil {
		t.Fatalf("recent sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].SessionID != "s-101" {
		t.Errorf("session_id = %q, want s-101", sessions[0].SessionID)
	}
	if !strings.Contains(sessions[0].Summary, "Fix the flaky login test") {
		t.Errorf("summary missing user request: %q", sessions[0].Summary)
	}
}

func TestHandleEndSkipsWithoutTranscript(t *testing.T) {
	t.Setenv("KEEPSAKE_URL", "http://127.0.0.1:1")
	// No transcript path: the hook has nothing to summarize and must
	// return without touching the store.
	Handle("end", strings.NewReader(`{"session_id":"s-102","hook_event_name":"SessionEnd"}`), &bytes.Buffer{})
}

func TestHandleEndSkipsTrivialSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "memory.db")
	t.Setenv("KEEPSAKE_URL", "http://127.0.0.1:1")
	t.Setenv("KEEPSAKE_DB", dbPath)

	short := `{"type":"user","message":{"role":"user","content":"thanks, looks good"}}` + "\n"
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	if err := os.WriteFile(path, []byte(short), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	input, _ := json.Marshal(map[string]string{
		"session_id":      "s-103",
		"hook_event_name": "SessionEnd",
		"transcript_path": path,
		"cwd":             "/home/u/src/demo",
	})
	Handle("end", bytes.NewReader(input), &bytes.Buffer{})

	if _, err := os.Stat(dbPath); err == nil {
		t.Error("single-exchange session should not reach the store")
	}
}

func TestHookInputProject(t *testing.T) {
	input := &HookInput{CWD: "/home/u/src/keepsake"}
	if got := input.Project(); got != "keepsake" {
		t.Errorf("Project() = %q, want keepsake", got)
	}

	input.CWD = ""
	if got := input.Project(); got != "" {
		t.Errorf("Project() on empty cwd = %q, want empty", got)
	}
}

func TestSessionStartOutputFormat(t *testing.T) {
	var out bytes.Buffer
	writeSessionStart(&out, "test context")

	var parsed map[string]any
	if err := json.Unmarshal(out.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	hookOutput, ok := parsed["hookSpecificOutput"].(map[string]any)
	if !ok {
		t.Fatal("missing hookSpecificOutput")
	}
	if hookOutput["hookEventName"] != "SessionStart" {
		t.Errorf("hookEventName = %v", hookOutput["hookEventName"])
	}
	if hookOutput["additionalContext"] != "test context" {
		t.Errorf("additionalContext = %v", hookOutput["additionalContext"])
	}
}

func TestServerClientSessionContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/context" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"context": "framed memory"})
	}))
	defer ts.Close()

	client := newServerClient(ts.URL + "/") // trailing slash must not double up
	ctx, ok := client.SessionContext("")
	if !ok {
		t.Fatal("SessionContext returned ok=false against a live server")
	}
	if ctx != "framed memory" {
		t.Errorf("context = %q, want framed memory", ctx)
	}
}

func TestServerClientContextFalseWhenDown(t *testing.T) {
	client := newServerClient("http://127.0.0.1:1")
	if _, ok := client.SessionContext("demo"); ok {
		t.Error("expected ok=false when server is not running")
	}
}

func TestServerClientSaveSession(t *testing.T) {
	var gotBody sessionPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/sessions" && r.Method == http.MethodPost {
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusCreated)
			return
		}
		http.Error(w, `{"error":"nope"}`, http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := newServerClient(ts.URL)
	err := client.SaveSession(sessionPayload{SessionID: "s-1", Summary: "did things"})
	if err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if gotBody.SessionID != "s-1" || gotBody.Summary != "did things" {
		t.Errorf("payload = %+v", gotBody)
	}

	bad := newServerClient("http://127.0.0.1:1")
	if err := bad.SaveSession(sessionPayload{SessionID: "s-2"}); err == nil {
		t.Error("expected error when server is down")
	}
}
