package runner

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/sqlrun/sqlrun/internal/database"
	"github.com/sqlrun/sqlrun/internal/logging"
)

// failurePolicy parameterizes the shared per-file loop. The three
// transaction modes are the three combinations actually used.
type failurePolicy struct {
	// haltOnError stops the loop on the first per-file failure.
	haltOnError bool
	// deferCommit runs every script inside one transaction and leaves
	// the final commit to the caller.
	deferCommit bool
}

func policyFor(mode Mode) failurePolicy {
	switch mode {
	case ModePerFileUntilError:
		return failurePolicy{haltOnError: true}
	case ModeAllOrNothing:
		return failurePolicy{haltOnError: true, deferCommit: true}
	default:
		return failurePolicy{}
	}
}

// Engine drives one transaction-mode workflow over a sorted file list.
type Engine struct {
	Connector database.Connector
	Sink      logging.Sink
}

// Run executes files under the given mode. It takes ownership of sess
// and returns the (possibly replaced) session; the caller closes it.
// Unprocessed is left for the caller to derive from the partition.
func (e *Engine) Run(ctx context.Context, mode Mode, sess database.Session, files []string) (Report, database.Session) {
	var rep Report
	pol := policyFor(mode)

	if pol.deferCommit {
		if err := sess.Begin(ctx); err != nil {
			e.Sink.Critical("failed to open batch transaction", logging.F("error", err.Error()))
			rep.FatalError = true
			rep.FailedAllOrNothing = true
			return rep, sess
		}
	}

	for _, path := range files {
		e.Sink.Info("processing file", logging.F("path", path), logging.F("mode", string(mode)))

		// A dropped connection is recoverable between files in the
		// per-file modes. In all-or-nothing a reconnect could not
		// rejoin the batch transaction, so loss surfaces as an
		// execution error instead.
		if !pol.deferCommit {
			newSess, err := database.Ensure(ctx, e.Connector, sess, e.Sink)
			if err != nil {
				rep.FatalError = true
				if pol.haltOnError {
					rep.Errors = append(rep.Errors, path)
				}
				e.Sink.Error("skipping remaining files, connection lost", logging.F("path", path))
				break
			}
			sess = newSess
		}

		content, err := Load(path)
		if errors.Is(err, ErrEmptyScript) {
			e.Sink.Warn("script is empty, skipping", logging.F("path", path))
			rep.EmptyFiles = append(rep.EmptyFiles, path)
			continue
		}
		if err != nil {
			e.Sink.Error("cannot read script", logging.F("path", path), logging.F("error", err.Error()))
			rep.Errors = append(rep.Errors, path)
			if pol.haltOnError {
				Rollback(sess, "read error "+filepath.Base(path), e.Sink)
				e.haltRun(&rep, pol, path)
				break
			}
			continue
		}

		if !pol.deferCommit {
			if err := sess.Begin(ctx); err != nil {
				e.Sink.Error("cannot open transaction", logging.F("path", path), logging.F("error", err.Error()))
				rep.Errors = append(rep.Errors, path)
				Rollback(sess, "begin error "+filepath.Base(path), e.Sink)
				if pol.haltOnError {
					e.haltRun(&rep, pol, path)
					break
				}
				continue
			}
		}

		if err := Exec(ctx, sess, content, path, e.Sink); err != nil {
			rep.Errors = append(rep.Errors, path)
			Rollback(sess, "execution error "+filepath.Base(path), e.Sink)
			if pol.haltOnError {
				e.haltRun(&rep, pol, path)
				break
			}
			continue
		}

		if pol.deferCommit {
			rep.Executed = append(rep.Executed, path)
			e.Sink.Info("script added to batch transaction", logging.F("path", path))
			continue
		}

		if err := Commit(sess, path, mode, e.Sink); err != nil {
			rep.Errors = append(rep.Errors, path)
			Rollback(sess, "commit error "+filepath.Base(path), e.Sink)
			if pol.haltOnError {
				e.haltRun(&rep, pol, path)
				break
			}
			continue
		}

		rep.Executed = append(rep.Executed, path)
	}

	return rep, sess
}

func (e *Engine) haltRun(rep *Report, pol failurePolicy, path string) {
	rep.FatalError = true
	if pol.deferCommit {
		rep.FailedAllOrNothing = true
	}
	e.Sink.Critical("halting run", logging.F("path", path))
}

// Finalize performs the all-or-nothing terminal commit/rollback
// decision. A clean loop gets one commit attempt; a failure there
// retroactively fails the whole batch and triggers a rollback attempt,
// even though every individual statement succeeded.
func (e *Engine) Finalize(sess database.Session, rep *Report) {
	if rep.FatalError {
		e.Sink.Warn("final commit skipped, batch already failed")
		rep.FailedAllOrNothing = true
		return
	}

	e.Sink.Info("attempting final commit for batch transaction")
	if sess == nil || !sess.InTx() {
		e.Sink.Critical("final commit failed, no open transaction")
		rep.FatalError = true
		rep.FailedAllOrNothing = true
		return
	}
	if err := sess.Commit(); err != nil {
		e.Sink.Critical("final commit failed",
			logging.F("sqlstate", sqlState(err)), logging.F("error", err.Error()))
		rep.FatalError = true
		rep.FailedAllOrNothing = true
		Rollback(sess, "final commit failure", e.Sink)
		return
	}
	e.Sink.Info("final commit successful")
}
