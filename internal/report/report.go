// Package report writes the per-category plain-text listings produced
// at the end of a run: one file per outcome category, one path per
// line, with the literal "None" standing in for an empty category.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqlrun/sqlrun/internal/logging"
	"github.com/sqlrun/sqlrun/internal/runner"
	"github.com/sqlrun/sqlrun/internal/scan"
)

const emptyMarker = "None"

// WriteRun writes the five category listings for a finished run into
// dir. The processed category is named committed_files, or
// executable_files when the all-or-nothing batch was rolled back and
// nothing actually persisted.
func WriteRun(dir, runID string, mode runner.Mode, rep runner.Report, sink logging.Sink) error {
	prefix := runID + "_" + strings.ReplaceAll(string(mode), "-", "_")
	header := fmt.Sprintf("Mode: '%s' | Run: %s", mode, runID)

	processedName := "committed_files"
	if rep.FailedAllOrNothing {
		processedName = "executable_files"
	}

	listings := []struct {
		name    string
		entries []string
	}{
		{processedName, rep.Executed},
		{"file_anomalies", rep.Anomalies},
		{"errors", rep.Errors},
		{"empty_files", rep.EmptyFiles},
		{"unprocessed_files", rep.Unprocessed},
	}

	for _, l := range listings {
		path := filepath.Join(dir, prefix+"_"+l.name+".txt")
		if err := writeListing(path, l.name, header, l.entries); err != nil {
			return err
		}
	}

	sink.Info("report files created", logging.F("dir", dir))
	return nil
}

// WriteScan writes the files_found/anomalies listings for a scan-only
// invocation.
func WriteScan(dir, runID string, res scan.Result, sink logging.Sink) error {
	header := "Date: " + runID
	listings := []struct {
		name    string
		entries []string
	}{
		{"files_found", res.Files},
		{"anomalies", res.Anomalies},
	}
	for _, l := range listings {
		path := filepath.Join(dir, l.name+".log")
		if err := writeListing(path, l.name, header, l.entries); err != nil {
			return err
		}
	}
	sink.Info("listings created", logging.F("dir", dir))
	return nil
}

func writeListing(path, category, header string, entries []string) error {
	full := fmt.Sprintf("Listing: '%s' | %s", category, header)

	var b strings.Builder
	b.WriteString(full)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", len(full)))
	b.WriteString("\n")
	if len(entries) == 0 {
		b.WriteString(emptyMarker)
	} else {
		b.WriteString(strings.Join(entries, "\n"))
	}
	b.WriteString("\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
