package wizard

import (
	"os"
	"strings"
	"testing"

	"github.com/sqlrun/sqlrun/internal/config"
)

func TestWriteFilesCreatesConfig(t *testing.T) {
	chdirT(t, t.TempDir())
	// A go.mod marks the project root so config discovery stays inside
	// the temp dir.
	if err := os.WriteFile("go.mod", []byte("module x\n"), 0o600); err != nil {
		t.Fatalf("Failed to write go.mod: %v", err)
	}

	env := config.EnvironmentConfig{
		Driver:   "postgres",
		Host:     "localhost",
		Port:     "5432",
		Database: "postgres",
		User:     "postgres",
	}
	written, err := writeFiles("local", env, false)
	if err != nil {
		t.Fatalf("writeFiles returned error: %v", err)
	}
	if len(written) != 1 || written[0] != "sqlrun.toml" {
		t.Errorf("Expected sqlrun.toml written, got %v", written)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DefaultEnvironment != "local" {
		t.Errorf("Expected default environment local, got %q", cfg.DefaultEnvironment)
	}
	if got := cfg.Environments["local"].Host; got != "localhost" {
		t.Errorf("Expected host localhost, got %q", got)
	}
}

func TestWriteFilesRefusesDuplicateWithoutForce(t *testing.T) {
	chdirT(t, t.TempDir())
	if err := os.WriteFile("go.mod", []byte("module x\n"), 0o600); err != nil {
		t.Fatalf("Failed to write go.mod: %v", err)
	}

	env := config.EnvironmentConfig{Driver: "postgres", Host: "h"}
	if _, err := writeFiles("local", env, false); err != nil {
		t.Fatalf("First writeFiles returned error: %v", err)
	}
	if _, err := writeFiles("local", env, false); err == nil {
		t.Error("Expected error overwriting existing environment without force")
	}
	if _, err := writeFiles("local", env, true); err != nil {
		t.Errorf("Expected force overwrite to succeed, got %v", err)
	}
}

func TestWritePassword(t *testing.T) {
	chdirT(t, t.TempDir())

	path, err := WritePassword("local", "s3cret")
	if err != nil {
		t.Fatalf("WritePassword returned error: %v", err)
	}
	if path != ".env.local" {
		t.Errorf("Expected .env.local, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read dotenv: %v", err)
	}
	if !strings.Contains(string(data), "DB_PASS=s3cret") {
		t.Errorf("Expected DB_PASS entry, got %q", data)
	}
}
