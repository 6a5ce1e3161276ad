package store

import (
	"fmt"
	"strings"
	"testing"
)

func TestSaveSession(t *testing.T) {
	db := testDB(t)

	s := &SavedSession{
		SessionID:    "sess-001",
		Project:      "keepsake",
		Summary:      "wired up the decay pass",
		FilesChanged: []string{"internal/engine/decay.go"},
	}
	if err := db.SaveSession(s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if s.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if s.CreatedAt == 0 {
		t.Error("expected CreatedAt to default to now")
	}
}

func TestSaveSessionUpsert(t *testing.T) {
	db := testDB(t)

	first := &SavedSession{SessionID: "sess-x", Summary: "first half"}
	if err := db.SaveSession(first); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// Resumed session ends again with a fuller summary.
	second := &SavedSession{SessionID: "sess-x", Summary: "first half, then fixed the tests"}
	if err := db.SaveSession(second); err != nil {
		t.Fatalf("SaveSession upsert: %v", err)
	}

	count, err := db.CountSessions()
	if err != nil {
		t.Fatalf("CountSessions: %v", err)
	}
	if count != 1 {
		t.Errorf("sessions = %d, want 1 after upsert", count)
	}

	recent, err := db.RecentSessions(10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if recent[0].Summary != second.Summary {
		t.Errorf("summary = %q, want refreshed value", recent[0].Summary)
	}
}

func TestRecentSessionsOrder(t *testing.T) {
	db := testDB(t)

	for i := 1; i <= 3; i++ {
		s := &SavedSession{
			SessionID: fmt.Sprintf("sess-%d", i),
			Summary:   fmt.Sprintf("session %d", i),
			CreatedAt: int64(i * 1000),
		}
		if err := db.SaveSession(s); err != nil {
			t.Fatalf("SaveSession %d: %v", i, err)
		}
	}

	recent, err := db.RecentSessions(2)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].SessionID != "sess-3" || recent[1].SessionID != "sess-2" {
		t.Errorf("order = %s, %s; want sess-3, sess-2", recent[0].SessionID, recent[1].SessionID)
	}
}

func TestTrimSessions(t *testing.T) {
	db := testDB(t)

	big := strings.Repeat("x", 1000)
	for i := 1; i <= 5; i++ {
		s := &SavedSession{
			SessionID: fmt.Sprintf("sess-%d", i),
			Summary:   big,
			CreatedAt: int64(i * 1000),
		}
		if err := db.SaveSession(s); err != nil {
			t.Fatalf("SaveSession %d: %v", i, err)
		}
	}

	// Budget fits roughly two sessions; the three oldest go.
	removed, err := db.TrimSessions(2100)
	if err != nil {
		t.Fatalf("TrimSessions: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	recent, err := db.RecentSessions(10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("remaining = %d, want 2", len(recent))
	}
	if recent[0].SessionID != "sess-5" || recent[1].SessionID != "sess-4" {
		t.Errorf("kept %s, %s; want newest two", recent[0].SessionID, recent[1].SessionID)
	}
}

func TestTrimSessionsKeepsLastOne(t *testing.T) {
	db := testDB(t)

	s := &SavedSession{SessionID: "only", Summary: strings.Repeat("y", 500)}
	if err := db.SaveSession(s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	removed, err := db.TrimSessions(10)
	if err != nil {
		t.Fatalf("TrimSessions: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0 (sole session is kept)", removed)
	}
}
