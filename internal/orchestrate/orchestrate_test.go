package orchestrate

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/sqlrun/sqlrun/internal/database"
	"github.com/sqlrun/sqlrun/internal/logging"
	"github.com/sqlrun/sqlrun/internal/runner"
)

type fakeSession struct {
	inTx     bool
	executed []string
	commits  int
	closed   bool
}

func (s *fakeSession) Ping(ctx context.Context) error { return nil }

func (s *fakeSession) Begin(ctx context.Context) error {
	if s.inTx {
		return errors.New("transaction already open")
	}
	s.inTx = true
	return nil
}

func (s *fakeSession) Exec(ctx context.Context, query string) error {
	if strings.Contains(query, "BOOM") {
		return errors.New("syntax error near BOOM")
	}
	s.executed = append(s.executed, strings.TrimSpace(query))
	return nil
}

func (s *fakeSession) Commit() error {
	s.inTx = false
	s.commits++
	return nil
}

func (s *fakeSession) Rollback() error {
	s.inTx = false
	return nil
}

func (s *fakeSession) InTx() bool { return s.inTx }
func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type countingConnector struct {
	sess  database.Session
	calls int
}

func (c *countingConnector) Connect(ctx context.Context) (database.Session, error) {
	c.calls++
	return c.sess, nil
}

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func baseOptions(dir string, mode runner.Mode, conn database.Connector) Options {
	return Options{
		Dir:       dir,
		Mode:      mode,
		Connector: conn,
		Sink:      logging.Nop(),
		RunID:     "test-run",
	}
}

func TestRunMissingDirectoryIsFatal(t *testing.T) {
	conn := &countingConnector{sess: &fakeSession{}}
	opts := baseOptions(filepath.Join(t.TempDir(), "nope"), runner.ModePerFile, conn)

	rep, err := Run(context.Background(), opts)
	if err == nil {
		t.Fatal("Expected error for missing directory")
	}
	if !rep.FatalError {
		t.Error("Expected fatal report")
	}
	if conn.calls != 0 {
		t.Error("Must not connect for a missing directory")
	}
}

func TestRunUnknownModeIsFatal(t *testing.T) {
	conn := &countingConnector{sess: &fakeSession{}}
	opts := baseOptions(t.TempDir(), runner.Mode("sometimes"), conn)

	rep, err := Run(context.Background(), opts)
	if err == nil {
		t.Fatal("Expected error for unknown mode")
	}
	if !rep.FatalError {
		t.Error("Expected fatal report")
	}
}

func TestRunEmptyDirectorySucceedsWithoutConnecting(t *testing.T) {
	conn := &countingConnector{sess: &fakeSession{}}
	opts := baseOptions(t.TempDir(), runner.ModePerFile, conn)

	rep, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if rep.FatalError {
		t.Error("A directory with no scripts is a clean run")
	}
	if conn.calls != 0 {
		t.Error("Must not connect when there is nothing to execute")
	}
}

func TestAnomalyGateBlocksStrictModes(t *testing.T) {
	for _, mode := range []runner.Mode{runner.ModeAllOrNothing, runner.ModePerFileUntilError} {
		t.Run(string(mode), func(t *testing.T) {
			dir := t.TempDir()
			valid := writeScript(t, dir, "1.sql", "SELECT 1;")
			broken := filepath.Join(dir, "2.sql")
			if err := os.Symlink(filepath.Join(dir, "gone.sql"), broken); err != nil {
				t.Skipf("Cannot create symlinks on this platform: %v", err)
			}

			conn := &countingConnector{sess: &fakeSession{}}
			rep, err := Run(context.Background(), baseOptions(dir, mode, conn))
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}

			if conn.calls != 0 {
				t.Error("Anomalies must prevent any connection attempt")
			}
			if !rep.FatalError {
				t.Error("Expected fatal run")
			}
			if !reflect.DeepEqual(rep.Errors, []string{broken}) {
				t.Errorf("Expected anomaly promoted to errors, got %v", rep.Errors)
			}
			if !reflect.DeepEqual(rep.Unprocessed, []string{valid}) {
				t.Errorf("Expected valid file unprocessed, got %v", rep.Unprocessed)
			}
		})
	}
}

func TestAnomaliesAreToleratedPerFile(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "1.sql", "SELECT 1;")
	broken := filepath.Join(dir, "2.sql")
	if err := os.Symlink(filepath.Join(dir, "gone.sql"), broken); err != nil {
		t.Skipf("Cannot create symlinks on this platform: %v", err)
	}

	sess := &fakeSession{}
	conn := &countingConnector{sess: sess}
	rep, err := Run(context.Background(), baseOptions(dir, runner.ModePerFile, conn))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if conn.calls == 0 {
		t.Error("Per-file mode must proceed despite anomalies")
	}
	if rep.FatalError {
		t.Error("Anomalies alone must not fail a per-file run")
	}
	if !reflect.DeepEqual(rep.Anomalies, []string{broken}) {
		t.Errorf("Expected anomaly listed separately, got %v", rep.Anomalies)
	}
	if len(rep.Executed) != 1 {
		t.Errorf("Expected the valid file executed, got %v", rep.Executed)
	}
}

func TestRunExecutesInNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "f10.sql", "SELECT 10;")
	writeScript(t, dir, "f2.sql", "SELECT 2;")
	writeScript(t, dir, "f1.sql", "SELECT 1;")

	sess := &fakeSession{}
	conn := &countingConnector{sess: sess}
	rep, err := Run(context.Background(), baseOptions(dir, runner.ModePerFile, conn))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []string{"SELECT 1;", "SELECT 2;", "SELECT 10;"}
	if !reflect.DeepEqual(sess.executed, want) {
		t.Errorf("Expected natural execution order %v, got %v", want, sess.executed)
	}
	if len(rep.Executed) != 3 {
		t.Errorf("Expected 3 executed files, got %v", rep.Executed)
	}
}

func TestRunPartitionInvariant(t *testing.T) {
	dir := t.TempDir()
	ok1 := writeScript(t, dir, "1.sql", "SELECT 1;")
	bad := writeScript(t, dir, "2.sql", "BOOM;")
	empty := writeScript(t, dir, "3.sql", "   ")
	ok2 := writeScript(t, dir, "4.sql", "SELECT 4;")

	for _, mode := range []runner.Mode{
		runner.ModePerFile, runner.ModePerFileUntilError, runner.ModeAllOrNothing,
	} {
		t.Run(string(mode), func(t *testing.T) {
			sess := &fakeSession{}
			conn := &countingConnector{sess: sess}
			rep, err := Run(context.Background(), baseOptions(dir, mode, conn))
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}

			all := map[string]int{}
			for _, list := range [][]string{rep.Executed, rep.Errors, rep.EmptyFiles, rep.Unprocessed} {
				for _, path := range list {
					all[path]++
				}
			}
			for _, path := range []string{ok1, bad, empty, ok2} {
				if all[path] != 1 {
					t.Errorf("Mode %s: %s appears %d times across outcome sets", mode, path, all[path])
				}
			}
			if len(all) != 4 {
				t.Errorf("Mode %s: outcome sets cover %d paths, want 4", mode, len(all))
			}
		})
	}
}

func TestRunUntilErrorMarksRemainderUnprocessed(t *testing.T) {
	dir := t.TempDir()
	ok1 := writeScript(t, dir, "1.sql", "SELECT 1;")
	bad := writeScript(t, dir, "2.sql", "BOOM;")
	ok2 := writeScript(t, dir, "3.sql", "SELECT 3;")

	sess := &fakeSession{}
	conn := &countingConnector{sess: sess}
	rep, err := Run(context.Background(), baseOptions(dir, runner.ModePerFileUntilError, conn))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !reflect.DeepEqual(rep.Executed, []string{ok1}) {
		t.Errorf("Expected executed [1.sql], got %v", rep.Executed)
	}
	if !reflect.DeepEqual(rep.Errors, []string{bad}) {
		t.Errorf("Expected errors [2.sql], got %v", rep.Errors)
	}
	if !reflect.DeepEqual(rep.Unprocessed, []string{ok2}) {
		t.Errorf("Expected unprocessed [3.sql], got %v", rep.Unprocessed)
	}
	if !rep.FatalError {
		t.Error("Expected fatal run")
	}
	if !sess.closed {
		t.Error("Expected session closed after the run")
	}
}

func TestRunWritesReports(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "1.sql", "SELECT 1;")
	reportDir := filepath.Join(t.TempDir(), "reports")

	sess := &fakeSession{}
	conn := &countingConnector{sess: sess}
	opts := baseOptions(dir, runner.ModePerFile, conn)
	opts.ReportDir = reportDir

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	path := filepath.Join(reportDir, "test-run_per_file_committed_files.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected report listing %s: %v", path, err)
	}
	if !strings.Contains(string(data), "1.sql") {
		t.Errorf("Expected committed file in listing, got %q", data)
	}
}

// End-to-end over a real database, the way the run command wires it.
func TestRunAllOrNothingAgainstSQLite(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "1.sql", "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT);")
	writeScript(t, dir, "2.sql", "INSERT INTO items (name) VALUES ('first');")
	writeScript(t, dir, "10.sql", "INSERT INTO items (name) VALUES ('second');")

	dbPath := filepath.Join(t.TempDir(), "e2e.db")
	conn := database.NewRetryConnector("sqlite", dbPath, logging.Nop())

	rep, err := Run(context.Background(), baseOptions(dir, runner.ModeAllOrNothing, conn))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if rep.FatalError || rep.FailedAllOrNothing {
		t.Fatalf("Expected clean batch, got %+v", rep)
	}
	if len(rep.Executed) != 3 {
		t.Fatalf("Expected 3 executed files, got %v", rep.Executed)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer func() { _ = db.Close() }()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 committed rows, got %d", count)
	}
}

func TestRunAllOrNothingRollsBackOnSQLiteError(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "1.sql", "CREATE TABLE items (id INTEGER PRIMARY KEY);")
	writeScript(t, dir, "2.sql", "INSERT INTO nonexistent VALUES (1);")

	dbPath := filepath.Join(t.TempDir(), "rollback.db")
	conn := database.NewRetryConnector("sqlite", dbPath, logging.Nop())

	rep, err := Run(context.Background(), baseOptions(dir, runner.ModeAllOrNothing, conn))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !rep.FatalError || !rep.FailedAllOrNothing {
		t.Fatalf("Expected failed batch, got %+v", rep)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// The CREATE TABLE from 1.sql must have been rolled back.
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count)
	if err == nil {
		t.Error("Expected items table to be rolled back with the batch")
	}
}
