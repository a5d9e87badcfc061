// Package config resolves where the tables and logs live.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file, environment variables, and command-line flags (applied by the
// caller on the returned Config).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"library-records/library"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "library.yaml"

// Table locates one table file.
type Table struct {
	// Dir defaults to <BasePath>/assets.
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
}

// Config is the resolved configuration.
type Config struct {
	BasePath  string `yaml:"base_path"`
	Books     Table  `yaml:"books"`
	Users     Table  `yaml:"users"`
	Checkouts Table  `yaml:"checkouts"`
	// LogDir defaults to <BasePath>/logs.
	LogDir   string `yaml:"log_dir"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in defaults rooted at the working directory.
func Default() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return &Config{
		BasePath:  wd,
		Books:     Table{File: "books.csv"},
		Users:     Table{File: "users.csv"},
		Checkouts: Table{File: "checkout.csv"},
		LogLevel:  "info",
	}, nil
}

// Load reads defaults, then the YAML file at path (DefaultFile when empty; a
// missing default file is fine, a missing explicit file is not), then the
// environment.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyEnv applies the environment variables understood by the tool.
// STORAGE_FILE_NAME and STORAGE_FILE_PATH are older spellings of the
// BOOKS_ variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.BasePath, "BASE_PATH")
	set(&c.Books.File, "BOOKS_STORAGE_FILE_NAME", "STORAGE_FILE_NAME")
	set(&c.Books.Dir, "BOOKS_STORAGE_FILE_PATH", "STORAGE_FILE_PATH")
	set(&c.Users.File, "USERS_STORAGE_FILE_NAME")
	set(&c.Users.Dir, "USERS_STORAGE_FILE_PATH")
	set(&c.Checkouts.File, "CHECKOUT_STORAGE_FILE_NAME")
	set(&c.Checkouts.Dir, "CHECKOUT_STORAGE_FILE_PATH")
	set(&c.LogDir, "LOGS_FILE_PATH")
	set(&c.LogLevel, "LOG_LEVEL")
}

func (c *Config) assetsDir() string { return filepath.Join(c.BasePath, "assets") }

func (c *Config) resolve(t Table) (string, error) {
	if t.File == "" {
		return "", errors.New("table file name is empty")
	}
	dir := t.Dir
	if dir == "" {
		dir = c.assetsDir()
	}
	return filepath.Abs(filepath.Join(dir, t.File))
}

// ResolvedLogDir returns the absolute log directory.
func (c *Config) ResolvedLogDir() (string, error) {
	dir := c.LogDir
	if dir == "" {
		dir = filepath.Join(c.BasePath, "logs")
	}
	return filepath.Abs(dir)
}

// Paths returns the absolute table paths and makes sure their directories
// exist.
func (c *Config) Paths() (library.Paths, error) {
	var p library.Paths
	for _, x := range []struct {
		dst  *string
		t    Table
		name string
	}{
		{&p.Books, c.Books, "books"},
		{&p.Users, c.Users, "users"},
		{&p.Checkouts, c.Checkouts, "checkouts"},
	} {
		path, err := c.resolve(x.t)
		if err != nil {
			return library.Paths{}, fmt.Errorf("%s table: %w", x.name, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return library.Paths{}, fmt.Errorf("create %s table dir: %w", x.name, err)
		}
		*x.dst = path
	}
	return p, nil
}
