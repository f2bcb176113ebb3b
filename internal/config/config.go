// Package config handles loading and parsing application configuration.
// It supports two sources for the file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Before the file is read, an optional .env file in the working directory
// is loaded into the environment. Secrets (the remote store token and the
// two passwords) normally live there rather than in the YAML.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// AuditPath is the filesystem path to the SQLite audit journal.
	AuditPath string `yaml:"audit_path" env:"AUDIT_PATH" env-default:"storage/audit.db"`

	HTTPServer `yaml:"http_server"`
	Storage    Storage `yaml:"storage"`
	Auth       Auth    `yaml:"auth"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:8082"`
}

// Storage selects and configures the Record Store Adapter.
type Storage struct {
	Backend   string `yaml:"backend"    env:"STORAGE_BACKEND" env-default:"local"`
	LocalPath string `yaml:"local_path" env:"STORAGE_PATH"    env-default:"1stsem.xlsx"`
	Remote    Remote `yaml:"remote"`
}

// Remote points at the spreadsheet inside a private repository.
type Remote struct {
	APIURL        string        `yaml:"api_url"        env:"REMOTE_API_URL"        env-default:"https://api.github.com"`
	Owner         string        `yaml:"owner"          env:"REMOTE_OWNER"`
	Repo          string        `yaml:"repo"           env:"REMOTE_REPO"`
	Path          string        `yaml:"path"           env:"REMOTE_PATH"           env-default:"1stsem.xlsx"`
	Branch        string        `yaml:"branch"         env:"REMOTE_BRANCH"         env-default:"main"`
	Token         string        `yaml:"token"          env:"GITHUB_TOKEN"`
	CommitMessage string        `yaml:"commit_message" env:"REMOTE_COMMIT_MESSAGE" env-default:"Update student details"`
	Timeout       time.Duration `yaml:"timeout"        env:"REMOTE_TIMEOUT"        env-default:"30s"`
}

// Auth holds the shared secrets. They are compared, never generated.
type Auth struct {
	AppPassword   string        `yaml:"app_password"   env:"APP_PASSWORD"   env-required:"true"`
	AdminPassword string        `yaml:"admin_password" env:"ADMIN_PASSWORD" env-required:"true"`
	SessionTTL    time.Duration `yaml:"session_ttl"    env:"SESSION_TTL"    env-default:"30m"`
}

// Validate checks the cross-field rules cleanenv tags cannot express.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.LocalPath == "" {
			return errors.New("storage.local_path is required for the local backend")
		}
	case BackendRemote:
		r := c.Storage.Remote
		if r.Owner == "" || r.Repo == "" || r.Path == "" {
			return errors.New("storage.remote owner, repo and path are required for the remote backend")
		}
		if r.Token == "" {
			return errors.New("storage.remote.token (or GITHUB_TOKEN) is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q (want %q or %q)", c.Storage.Backend, BackendLocal, BackendRemote)
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	return nil
}

// Load reads the YAML file at path (environment overrides applied) and
// validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: read %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// MustLoad reads, validates, and returns the application config.
// It exits the process on any problem: a service with no store or no
// passwords has nothing useful to do.
func MustLoad() *Config {
	// .env is optional; only a malformed one is an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("cannot read .env: %s", err.Error())
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}
	return cfg
}
