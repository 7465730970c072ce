// Package runner executes a sorted list of SQL scripts under one of
// three transaction modes and accounts for the outcome of every file.
package runner

import "fmt"

// Mode selects the commit/rollback granularity for a run.
type Mode string

const (
	// ModePerFile commits after every successfully executed script and
	// keeps going past per-script failures.
	ModePerFile Mode = "per-file"
	// ModePerFileUntilError commits per script but halts on the first
	// failure of any kind.
	ModePerFileUntilError Mode = "per-file-until-error"
	// ModeAllOrNothing runs the whole list in a single transaction,
	// committed only if every script succeeds.
	ModeAllOrNothing Mode = "all-or-nothing"
)

// ParseMode validates a mode selector.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePerFile, ModePerFileUntilError, ModeAllOrNothing:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown transaction mode: %q (valid: %s, %s, %s)",
			s, ModePerFile, ModeAllOrNothing, ModePerFileUntilError)
	}
}

// Report is the aggregate accounting for one run. Executed, Errors,
// EmptyFiles and Unprocessed partition the discovered valid-file set;
// Anomalies lists paths that never qualified as scripts.
//
// Executed always means "ran without error in this attempt". Whether
// those scripts are durable is a property of the run: when
// FailedAllOrNothing is set the whole batch was rolled back and nothing
// in Executed persisted.
type Report struct {
	Executed    []string
	Errors      []string
	EmptyFiles  []string
	Anomalies   []string
	Unprocessed []string

	// FatalError marks a run that did not complete cleanly.
	FatalError bool
	// FailedAllOrNothing marks an all-or-nothing batch that was rolled
	// back in full.
	FailedAllOrNothing bool
}
