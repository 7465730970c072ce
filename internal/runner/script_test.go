package runner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sqlrun/sqlrun/internal/logging"
)

func TestLoadReturnsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.sql")
	if err := os.WriteFile(path, []byte("SELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	content, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if content != "SELECT 1;\n" {
		t.Errorf("Unexpected content: %q", content)
	}
}

func TestLoadEmptyAndWhitespaceScripts(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.sql")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	blank := filepath.Join(dir, "blank.sql")
	if err := os.WriteFile(blank, []byte(" \n\t\r\n "), 0o644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	for _, path := range []string{empty, blank} {
		if _, err := Load(path); !errors.Is(err, ErrEmptyScript) {
			t.Errorf("Load(%q) = %v, want ErrEmptyScript", path, err)
		}
	}
}

func TestLoadMissingFileIsNotEmpty(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.sql"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if errors.Is(err, ErrEmptyScript) {
		t.Error("A read failure must not be reported as empty")
	}
}

func TestRollbackIsNoOpWithoutTransaction(t *testing.T) {
	sess := &fakeSession{}
	Rollback(sess, "test", logging.Nop())
	if sess.rollbacks != 0 {
		t.Errorf("Expected no rollback calls, got %d", sess.rollbacks)
	}
}

func TestRollbackRollsBackOpenTransaction(t *testing.T) {
	sess := &fakeSession{inTx: true}
	Rollback(sess, "test", logging.Nop())
	if sess.rollbacks != 1 {
		t.Errorf("Expected one rollback call, got %d", sess.rollbacks)
	}
	if sess.inTx {
		t.Error("Expected transaction to be closed")
	}
}

func TestRollbackNilSession(t *testing.T) {
	// Must not panic.
	Rollback(nil, "test", logging.Nop())
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"per-file", "all-or-nothing", "per-file-until-error"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q) returned error: %v", valid, err)
		}
	}
	if _, err := ParseMode("yolo"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
