// Package scan locates candidate script files under a directory tree.
// The walk follows symbolic links and never reads file content; it only
// classifies paths as usable scripts or anomalies.
package scan

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqlrun/sqlrun/internal/logging"
)

// Result partitions the discovered paths. Both collections are in
// filesystem-walk order; callers impose ordering separately.
type Result struct {
	// Files are paths that end with the requested suffix and resolve
	// to regular files.
	Files []string
	// Anomalies are paths that match the suffix but cannot be treated
	// as scripts: broken symlinks, irregular files, inaccessible paths.
	Anomalies []string
}

// Scan walks root recursively, following symlinked directories, and
// classifies every entry whose name ends with suffix. Per-entry stat
// failures become anomalies and never abort the walk; only a failure
// to read the root directory itself is an error.
func Scan(root, suffix string, sink logging.Sink) (Result, error) {
	sink.Info("scanning for scripts", logging.F("dir", root), logging.F("suffix", suffix))

	var res Result
	visited := make(map[string]bool)
	if err := walk(root, suffix, sink, visited, &res, true); err != nil {
		return Result{}, err
	}
	return res, nil
}

func walk(dir, suffix string, sink logging.Sink, visited map[string]bool, res *Result, isRoot bool) error {
	// Guard against symlink cycles by tracking resolved directories.
	resolved, err := filepath.EvalSymlinks(dir)
	if err == nil {
		if visited[resolved] {
			return nil
		}
		visited[resolved] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isRoot {
			return err
		}
		sink.Warn("cannot read directory, skipping subtree",
			logging.F("dir", dir), logging.F("error", err.Error()))
		return nil
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if err := walk(path, suffix, sink, visited, res, false); err != nil {
				return err
			}
			continue
		}

		// A symlink may point at a directory; descend into it the way
		// the walk follows any other directory.
		if entry.Type()&os.ModeSymlink != 0 {
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				if strings.HasSuffix(entry.Name(), suffix) {
					// Matches the suffix but is a directory behind a
					// link; still an anomaly for reporting purposes.
					sink.Warn("path is not a regular file, skipping",
						logging.F("path", path))
					res.Anomalies = append(res.Anomalies, path)
					continue
				}
				if err := walk(path, suffix, sink, visited, res, false); err != nil {
					return err
				}
				continue
			}
		}

		if !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		classify(path, sink, res)
	}
	return nil
}

func classify(path string, sink logging.Sink, res *Result) {
	info, err := os.Stat(path)
	if err != nil {
		switch {
		case isBrokenSymlink(path, err):
			sink.Warn("path is a broken symlink, skipping", logging.F("path", path))
		case errors.Is(err, fs.ErrPermission):
			sink.Error("cannot access path, check permissions",
				logging.F("path", path), logging.F("error", err.Error()))
		default:
			sink.Error("cannot stat path, skipping",
				logging.F("path", path), logging.F("error", err.Error()))
		}
		res.Anomalies = append(res.Anomalies, path)
		return
	}

	if !info.Mode().IsRegular() {
		sink.Warn("path is not a regular file, skipping", logging.F("path", path))
		res.Anomalies = append(res.Anomalies, path)
		return
	}

	res.Files = append(res.Files, path)
}

func isBrokenSymlink(path string, statErr error) bool {
	if !errors.Is(statErr, fs.ErrNotExist) {
		return false
	}
	li, err := os.Lstat(path)
	return err == nil && li.Mode()&os.ModeSymlink != 0
}
