// Package orchestrate sequences a full run: directory validation, file
// discovery, the anomaly gate, natural ordering, mode dispatch, the
// all-or-nothing final commit and report emission.
package orchestrate

import (
	"context"
	"fmt"
	"os"

	"github.com/sqlrun/sqlrun/internal/database"
	"github.com/sqlrun/sqlrun/internal/logging"
	"github.com/sqlrun/sqlrun/internal/natsort"
	"github.com/sqlrun/sqlrun/internal/report"
	"github.com/sqlrun/sqlrun/internal/runner"
	"github.com/sqlrun/sqlrun/internal/scan"
)

// Options configure one run.
type Options struct {
	Dir       string
	Suffix    string
	Mode      runner.Mode
	Connector database.Connector
	Sink      logging.Sink
	// ReportDir receives the category listings; empty disables them.
	ReportDir string
	RunID     string
}

// Run executes every matching script under opts.Dir according to the
// selected mode and returns the final accounting. The returned error
// covers conditions that prevented the run from being attempted at
// all; everything else is expressed through Report.FatalError.
func Run(ctx context.Context, opts Options) (runner.Report, error) {
	var rep runner.Report
	sink := opts.Sink
	if opts.Suffix == "" {
		opts.Suffix = ".sql"
	}

	sink.Info("starting SQL script run",
		logging.F("dir", opts.Dir),
		logging.F("mode", string(opts.Mode)),
		logging.F("run_id", opts.RunID))

	if _, err := runner.ParseMode(string(opts.Mode)); err != nil {
		rep.FatalError = true
		return rep, err
	}

	if info, err := os.Stat(opts.Dir); err != nil || !info.IsDir() {
		rep.FatalError = true
		sink.Error("script directory not found, halting", logging.F("dir", opts.Dir))
		return rep, fmt.Errorf("script directory not found: %s", opts.Dir)
	}

	scanned, err := scan.Scan(opts.Dir, opts.Suffix, sink)
	if err != nil {
		rep.FatalError = true
		return rep, fmt.Errorf("scanning %s: %w", opts.Dir, err)
	}

	rep.Anomalies = natsort.Sorted(scanned.Anomalies)
	files := natsort.Sorted(scanned.Files)

	// Anomaly gate: the strict modes treat any scan anomaly as a
	// failed run before a single connection attempt is made.
	if len(rep.Anomalies) > 0 {
		sink.Warn("anomalous paths found during scanning",
			logging.F("count", len(rep.Anomalies)))
		if opts.Mode != runner.ModePerFile {
			for _, path := range rep.Anomalies {
				sink.Warn("file anomaly", logging.F("path", path))
			}
			sink.Critical("halting before transaction start, anomalies present",
				logging.F("mode", string(opts.Mode)))
			rep.FatalError = true
			rep.Errors = append(rep.Errors, rep.Anomalies...)
			rep.Unprocessed = files
			finish(opts, &rep, sink)
			return rep, nil
		}
	}

	sink.Info("search and sorting complete", logging.F("files", len(files)))

	if len(files) == 0 {
		sink.Warn("no scripts found, nothing to execute", logging.F("dir", opts.Dir))
		finish(opts, &rep, sink)
		return rep, nil
	}

	sess, err := opts.Connector.Connect(ctx)
	if err != nil {
		rep.FatalError = true
		rep.Unprocessed = files
		sink.Error("cannot proceed without a database connection")
		finish(opts, &rep, sink)
		return rep, nil
	}
	defer func() {
		if sess != nil {
			if err := sess.Close(); err != nil {
				sink.Error("error closing connection", logging.F("error", err.Error()))
			} else {
				sink.Info("database connection closed")
			}
		}
	}()

	engine := &runner.Engine{Connector: opts.Connector, Sink: sink}
	loopRep, sess := engine.Run(ctx, opts.Mode, sess, files)
	loopRep.Anomalies = rep.Anomalies
	rep = loopRep

	if opts.Mode == runner.ModeAllOrNothing {
		engine.Finalize(sess, &rep)
	}

	rep.Unprocessed = unprocessed(files, rep)

	finish(opts, &rep, sink)
	return rep, nil
}

// unprocessed derives the files never reached: discovered minus
// (executed, errored, empty), preserving execution order.
func unprocessed(files []string, rep runner.Report) []string {
	seen := make(map[string]bool, len(files))
	for _, path := range rep.Executed {
		seen[path] = true
	}
	for _, path := range rep.Errors {
		seen[path] = true
	}
	for _, path := range rep.EmptyFiles {
		seen[path] = true
	}

	var out []string
	for _, path := range files {
		if !seen[path] {
			out = append(out, path)
		}
	}
	return out
}

func finish(opts Options, rep *runner.Report, sink logging.Sink) {
	processedDesc := "committed scripts"
	if rep.FailedAllOrNothing {
		processedDesc = "scripts executed before rollback"
	}
	sink.Info("execution summary",
		logging.F("mode", string(opts.Mode)),
		logging.F(processedDesc, len(rep.Executed)),
		logging.F("errors", len(rep.Errors)),
		logging.F("empty_files", len(rep.EmptyFiles)),
		logging.F("file_anomalies", len(rep.Anomalies)),
		logging.F("unprocessed_files", len(rep.Unprocessed)),
		logging.F("fatal", rep.FatalError))

	if opts.ReportDir == "" {
		return
	}
	if err := os.MkdirAll(opts.ReportDir, 0o755); err != nil {
		sink.Error("could not create report directory, listings skipped",
			logging.F("dir", opts.ReportDir), logging.F("error", err.Error()))
		return
	}
	if err := report.WriteRun(opts.ReportDir, opts.RunID, opts.Mode, *rep, sink); err != nil {
		sink.Error("failed to write report files", logging.F("error", err.Error()))
	}
}
