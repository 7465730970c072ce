package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lib/pq"

	"github.com/sqlrun/sqlrun/internal/database"
	"github.com/sqlrun/sqlrun/internal/logging"
)

// ErrEmptyScript marks a script whose content is empty or all
// whitespace. Such scripts are reported and never executed.
var ErrEmptyScript = errors.New("script is empty")

// ExecError is a database-reported failure executing a script's
// statement batch. Code carries the engine's error code (SQLSTATE for
// Postgres) when the driver exposes one.
type ExecError struct {
	Path string
	Code string
	Err  error
}

func (e *ExecError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("executing %s (SQLSTATE %s): %v", e.Path, e.Code, e.Err)
	}
	return fmt.Sprintf("executing %s: %v", e.Path, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// CommitError is a failure committing a transaction. The caller always
// follows it with a rollback attempt.
type CommitError struct {
	Path string
	Code string
	Err  error
}

func (e *CommitError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("committing %s (SQLSTATE %s): %v", e.Path, e.Code, e.Err)
	}
	return fmt.Sprintf("committing %s: %v", e.Path, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Load reads a script as text. Empty or all-whitespace content returns
// ErrEmptyScript; an I/O failure is a distinct error, never conflated
// with empty.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyScript
	}
	return content, nil
}

// Exec submits the full script text as one statement batch to the
// session's open transaction.
func Exec(ctx context.Context, sess database.Session, content, path string, sink logging.Sink) error {
	sink.Info("executing script", logging.F("path", path))
	if err := sess.Exec(ctx, content); err != nil {
		code := sqlState(err)
		sink.Error("database execution error",
			logging.F("path", path),
			logging.F("sqlstate", code),
			logging.F("error", err.Error()))
		return &ExecError{Path: path, Code: code, Err: err}
	}
	sink.Info("script executed", logging.F("path", path))
	return nil
}

// Commit commits the session's open transaction for the given script.
func Commit(sess database.Session, path string, mode Mode, sink logging.Sink) error {
	if err := sess.Commit(); err != nil {
		code := sqlState(err)
		sink.Error("database commit error",
			logging.F("path", path),
			logging.F("sqlstate", code),
			logging.F("error", err.Error()))
		return &CommitError{Path: path, Code: code, Err: err}
	}
	sink.Info("transaction committed", logging.F("path", path), logging.F("mode", string(mode)))
	return nil
}

// Rollback aborts the session's open transaction if there is one.
// Best-effort cleanup: failures are logged and never returned, and a
// session with no open transaction is a logged no-op.
func Rollback(sess database.Session, reason string, sink logging.Sink) {
	if sess == nil {
		sink.Warn("cannot roll back, no connection", logging.F("reason", reason))
		return
	}
	if !sess.InTx() {
		sink.Info("nothing to roll back", logging.F("reason", reason))
		return
	}
	sink.Warn("attempting rollback", logging.F("reason", reason))
	if err := sess.Rollback(); err != nil {
		sink.Error("rollback failed", logging.F("reason", reason), logging.F("error", err.Error()))
		return
	}
	sink.Info("rollback successful", logging.F("reason", reason))
}

// sqlState extracts the Postgres SQLSTATE code when the underlying
// driver error carries one.
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
