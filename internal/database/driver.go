package database

import (
	"fmt"
	"strings"
)

// DetectDriver determines the database driver from a connection string.
func DetectDriver(connString string) string {
	switch {
	case strings.HasPrefix(connString, "postgres://"),
		strings.HasPrefix(connString, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(connString, "libsql://"),
		strings.HasPrefix(connString, "wss://"),
		strings.HasPrefix(connString, "ws://"):
		return "libsql"
	case strings.HasPrefix(connString, "file:"),
		strings.HasSuffix(connString, ".db"),
		strings.HasSuffix(connString, ".sqlite"),
		strings.HasSuffix(connString, ".sqlite3"):
		return "sqlite"
	default:
		return "postgres"
	}
}

// SQLDriverName maps a driver type to the name registered with
// database/sql by the blank imports in main.go.
func SQLDriverName(driver string) (string, error) {
	switch driver {
	case "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite", nil
	case "libsql":
		return "libsql", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}
