package session

import (
	"fmt"
	"testing"
	"time"
)

func TestGetOrCreateMintsID(t *testing.T) {
	m := NewManager()

	s := m.GetOrCreate("")
	if s.ID() == "" {
		t.Fatal("Expected a minted session id")
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", m.Count())
	}

	// A second empty id mints a different session
	s2 := m.GetOrCreate("")
	if s2.ID() == s.ID() {
		t.Error("Expected distinct ids for distinct sessions")
	}
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	m := NewManager()

	s := m.GetOrCreate("client-chosen-id")
	if s.ID() != "client-chosen-id" {
		t.Errorf("Expected client id to be kept, got %s", s.ID())
	}

	again := m.GetOrCreate("client-chosen-id")
	if again != s {
		t.Error("Expected the same session instance")
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", m.Count())
	}
}

func TestGet(t *testing.T) {
	m := NewManager()
	m.GetOrCreate("known")

	if _, ok := m.Get("known"); !ok {
		t.Error("Expected to find known session")
	}
	if _, ok := m.Get("unknown"); ok {
		t.Error("Did not expect to find unknown session")
	}
}

func TestTurnsRecordedAndCapped(t *testing.T) {
	m := NewManager()
	s := m.GetOrCreate("")

	s.AddTurn("user", "take me to the airport")
	s.AddTurn("assistant", "Okay, changing destination to the airport.")

	turns := s.Turns()
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Errorf("Unexpected roles: %s, %s", turns[0].Role, turns[1].Role)
	}

	// Overflow the window; oldest turns drop first
	for i := 0; i < maxHistoryTurns+5; i++ {
		s.AddTurn("user", fmt.Sprintf("turn %d", i))
	}
	if s.TurnCount() != maxHistoryTurns {
		t.Errorf("Expected window capped at %d, got %d", maxHistoryTurns, s.TurnCount())
	}
	turns = s.Turns()
	if turns[len(turns)-1].Text != fmt.Sprintf("turn %d", maxHistoryTurns+4) {
		t.Errorf("Expected newest turn kept, got %q", turns[len(turns)-1].Text)
	}
}

func TestTouchUpdatesLastActive(t *testing.T) {
	m := NewManager()
	s := m.GetOrCreate("")

	before := s.LastActive()
	time.Sleep(2 * time.Millisecond)
	s.Touch()

	if !s.LastActive().After(before) {
		t.Error("Expected Touch to advance LastActive")
	}
}

func TestPrune(t *testing.T) {
	m := NewManager()

	stale := m.GetOrCreate("stale")
	fresh := m.GetOrCreate("fresh")

	// Backdate the stale session
	stale.mu.Lock()
	stale.lastActive = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	dropped := m.Prune(30 * time.Minute)
	if dropped != 1 {
		t.Errorf("Expected 1 session pruned, got %d", dropped)
	}
	if _, ok := m.Get("stale"); ok {
		t.Error("Stale session should be gone")
	}
	if _, ok := m.Get(fresh.ID()); !ok {
		t.Error("Fresh session should survive")
	}
}

func TestDelete(t *testing.T) {
	m := NewManager()
	m.GetOrCreate("gone")
	m.Delete("gone")

	if m.Count() != 0 {
		t.Errorf("Expected 0 sessions after delete, got %d", m.Count())
	}
}

func TestIDs(t *testing.T) {
	m := NewManager()
	m.GetOrCreate("a")
	m.GetOrCreate("b")

	ids := m.IDs()
	if len(ids) != 2 {
		t.Fatalf("Expected 2 ids, got %d", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("Unexpected ids: %v", ids)
	}
}
