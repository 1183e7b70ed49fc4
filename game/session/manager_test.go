package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/codemaze/game/engine"
)

func createTestLevel() *engine.Level {
	return &engine.Level{
		Number: 1,
		Name:   "Test Level",
		Grid:   engine.GridSize{Columns: 1, Rows: 3},
		AllowedCells: []engine.Position{
			{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2},
		},
		StartPosition:  engine.Position{X: 0, Y: 2},
		FinishPosition: engine.Position{X: 0, Y: 0},
		CompletedCode:  "move(2);",
		CodeLines:      1,
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", level, engine.Options{})
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", level, engine.Options{})
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", level, engine.Options{})
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", level, engine.Options{})
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		_, err := manager.Create("a b", level, engine.Options{})
		if err != ErrInvalidSessionID {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		invalid := createTestLevel()
		invalid.CompletedCode = ""
		_, err := manager.Create("invalid-test", invalid, engine.Options{})
		if err == nil {
			t.Error("Expected error for invalid level")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create("get-test", createTestLevel(), engine.Options{})

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Errorf("Expected the created session")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil || session != created {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_CreateReleasesEngineOnConflict(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	if _, err := manager.Create("dup", level, engine.Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.Create("DUP", level, engine.Options{}); err != ErrSessionAlreadyExists {
		t.Fatalf("Expected ErrSessionAlreadyExists, got %v", err)
	}
	if manager.Count() != 1 {
		t.Errorf("Count() = %d, want 1", manager.Count())
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()
	manager.Create("delete-test", level, engine.Options{})

	if err := manager.Delete("DELETE-TEST"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, err := manager.Get("delete-test"); err != ErrSessionNotFound {
		t.Error("Expected session to be deleted")
	}
	if err := manager.Delete("non-existent"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	for _, id := range []string{"list-1", "list-2", "list-3"} {
		if _, err := manager.Create(id, level, engine.Options{}); err != nil {
			t.Fatal(err)
		}
	}

	found := make(map[string]bool)
	for _, s := range manager.List() {
		found[s.ID] = true
	}
	for _, id := range []string{"list-1", "list-2", "list-3"} {
		if !found[id] {
			t.Errorf("Session %s not found in list", id)
		}
	}
	if manager.Count() != 3 {
		t.Errorf("Count() = %d, want 3", manager.Count())
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	active, _ := manager.Create("active", level, engine.Options{})
	expired, _ := manager.Create("expired", level, engine.Options{})

	expired.Touch(time.Now().Add(-2 * time.Hour))
	active.Touch(time.Now())

	if deleted := manager.CleanupExpiredSessions(time.Hour); deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}
	if _, err := manager.Get("expired"); err != ErrSessionNotFound {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	session, _ := manager.Create("access-test", createTestLevel(), engine.Options{})
	originalTime := session.LastAccessed()

	time.Sleep(10 * time.Millisecond)

	if err := manager.UpdateLastAccessed("access-test"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}
	updated, _ := manager.Get("access-test")
	if !updated.LastAccessed().After(originalTime) {
		t.Error("Expected LastAccessedAt to be updated")
	}
	if err := manager.UpdateLastAccessed("missing"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Create("", level, engine.Options{})
			if err != nil && err != ErrSessionAlreadyExists {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() == 0 {
		t.Error("Expected sessions to be created")
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	session1, _ := manager.Create("iso-1", level, engine.Options{})
	session2, _ := manager.Create("iso-2", level, engine.Options{})

	if _, err := session1.Engine.Submit("move(2);"); err != nil {
		t.Fatal(err)
	}

	if session2.Engine.State().Status != engine.StatusIdle {
		t.Error("Session 2 should not be affected by session 1 submissions")
	}
	if session1.Engine.State().Position == session2.Engine.State().Position {
		t.Error("Sessions should have independent execution state")
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	generated := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := manager.Create("", level, engine.Options{})
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if generated[strings.ToLower(session.ID)] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		generated[strings.ToLower(session.ID)] = true
	}
}
