package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const defaultEnvironmentName = "local"

// Defaults match the official Postgres Docker image so a freshly
// started container works with zero configuration.
const (
	defaultDriver   = "postgres"
	defaultHost     = "localhost"
	defaultPort     = "5432"
	defaultDatabase = "postgres"
	defaultUser     = "postgres"
	defaultPassword = "mysecretpassword"
)

// ConnParams are fully-resolved database connection parameters.
type ConnParams struct {
	Environment string
	Driver      string
	Host        string
	Port        string
	Database    string
	User        string
	Password    string
	// URL, when non-empty, is used verbatim instead of the individual
	// fields.
	URL string

	FromConfig bool
	FromDotenv bool
	DotenvPath string
}

// ConnString renders the connection string for the resolved driver.
// Postgres URLs disable SSL the same way local tooling typically does;
// sqlite and libsql require an explicit URL.
func (p *ConnParams) ConnString() string {
	if p.URL != "" {
		return p.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Resolve turns a named environment into concrete connection
// parameters. Precedence, highest first: process environment variables,
// the environment's dotenv file (.env.<name>, falling back to .env),
// sqlrun.toml values, built-in defaults.
func Resolve(config *Config, name string) (*ConnParams, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	var (
		envConfig EnvironmentConfig
		envExists bool
	)
	if config != nil && config.Environments != nil {
		if cfg, ok := config.Environments[envName]; ok {
			envConfig = cfg
			envExists = true
		}
	}
	if config != nil && config.Environments != nil && len(config.Environments) > 0 && !envExists {
		return nil, fmt.Errorf("environment %q not defined in %s", envName, configFileName)
	}

	params := &ConnParams{
		Environment: envName,
		Driver:      envConfig.Driver,
		Host:        envConfig.Host,
		Port:        envConfig.Port,
		Database:    envConfig.Database,
		User:        envConfig.User,
		Password:    envConfig.Password,
		URL:         envConfig.URL,
		FromConfig:  envExists,
	}

	// Dotenv overlay. Values are read without mutating the process
	// environment so real environment variables keep precedence.
	baseDir := ""
	if config != nil {
		baseDir = config.ConfigDir()
	}
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	dotenvPath := filepath.Join(baseDir, ".env."+envName)
	if _, err := os.Stat(dotenvPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to access %s: %w", dotenvPath, err)
		}
		dotenvPath = filepath.Join(baseDir, ".env")
	}
	if info, err := os.Stat(dotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(dotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
		}
		params.FromDotenv = true
		params.DotenvPath = dotenvPath
		applyVars(params, func(key string) string { return values[key] })
	}

	// Process environment wins over everything.
	applyVars(params, os.Getenv)

	// An explicit URL carries its own driver information; the caller
	// detects it from the string shape. Without one, fall back to the
	// postgres defaults.
	if params.URL == "" {
		if params.Driver == "" {
			params.Driver = defaultDriver
		}
		if params.Driver != "postgres" {
			return nil, fmt.Errorf("driver %q requires a url in %s or DB_URL", params.Driver, configFileName)
		}
		if params.Host == "" {
			params.Host = defaultHost
		}
		if params.Port == "" {
			params.Port = defaultPort
		}
		if params.Database == "" {
			params.Database = defaultDatabase
		}
		if params.User == "" {
			params.User = defaultUser
		}
		if params.Password == "" {
			params.Password = defaultPassword
		}
	}

	return params, nil
}

func applyVars(params *ConnParams, get func(string) string) {
	if v := get("DB_DRIVER"); v != "" {
		params.Driver = v
	}
	if v := get("DB_HOST"); v != "" {
		params.Host = v
	}
	if v := get("DB_PORT"); v != "" {
		params.Port = v
	}
	if v := get("DB_NAME"); v != "" {
		params.Database = v
	}
	if v := get("DB_USER"); v != "" {
		params.User = v
	}
	if v := get("DB_PASS"); v != "" {
		params.Password = v
	}
	if v := get("DB_URL"); v != "" {
		params.URL = v
	}
}
