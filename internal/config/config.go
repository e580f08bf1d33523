package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AppName        = "wxctl"
	ConfigFileName = "wxctl.yaml"

	// DefaultBinding is the binding used when none is given on the command line.
	DefaultBinding   = "wx_binding"
	DefaultTableName = "archive"
)

// ErrConfig is wrapped by every error caused by a missing or invalid configuration.
var ErrConfig = errors.New("configuration error")

// DefaultObservations are the archive columns summarized when a binding does not list its own.
var DefaultObservations = []string{
	"barometer",
	"pressure",
	"inTemp",
	"outTemp",
	"inHumidity",
	"outHumidity",
	"windSpeed",
	"windGust",
	"rain",
	"rainRate",
	"dewpoint",
	"radiation",
	"UV",
}

// Config is the top-level wxctl configuration file.
type Config struct {
	Station       Station                 `yaml:"station"`
	Logging       Logging                 `yaml:"logging"`
	DataBindings  map[string]DataBinding  `yaml:"data_bindings"`
	Databases     map[string]DatabaseDict `yaml:"databases"`
	DatabaseTypes map[string]DatabaseDict `yaml:"database_types"`

	// path is the file the configuration was read from.
	path string
}

// Station holds station-wide settings.
type Station struct {
	Timezone string `yaml:"timezone"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DataBinding ties a binding name to a database and the archive table inside it.
type DataBinding struct {
	Database     string   `yaml:"database"`
	TableName    string   `yaml:"table_name"`
	Observations []string `yaml:"observations"`
}

// DatabaseDict describes how to reach one database. Entries under database_types
// supply defaults that the matching databases entry overrides field by field.
type DatabaseDict struct {
	DatabaseName string `yaml:"database_name"`
	DatabaseType string `yaml:"database_type"`
	Driver       string `yaml:"driver"`
	SQLiteRoot   string `yaml:"sqlite_root"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"sslmode"`
}

// ManagerDict is everything a database manager needs to open one binding.
type ManagerDict struct {
	Binding      string
	TableName    string
	Observations []string
	Database     DatabaseDict
}

// Read loads the configuration file. An empty path searches the default locations.
// It returns the path that was actually used.
func Read(path string) (string, *Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return "", nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to read %s: %v", ErrConfig, resolved, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return "", nil, fmt.Errorf("%w (file %s)", err, resolved)
	}
	cfg.path = resolved

	return resolved, cfg, nil
}

// Parse decodes a YAML configuration document and applies environment overrides.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrConfig, err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Path returns the file this configuration was read from, if any.
func (c *Config) Path() string {
	return c.path
}

func resolvePath(path string) (string, error) {
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrConfig, err)
		}
		return abs, nil
	}

	candidates := []string{}
	if env := os.Getenv("WXCTL_CONFIG"); env != "" {
		candidates = append(candidates, env)
	}
	candidates = append(candidates, ConfigFileName)
	if dataDir, err := DataDir(); err == nil {
		candidates = append(candidates, filepath.Join(dataDir, ConfigFileName))
	}
	candidates = append(candidates, filepath.Join("/etc", AppName, ConfigFileName))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return filepath.Abs(c)
		}
	}

	return "", fmt.Errorf("%w: no configuration file found (tried %s)", ErrConfig, strings.Join(candidates, ", "))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyDatabaseEnv overrides connection settings of a resolved database entry,
// whether it was declared inline or through database_types.
func applyDatabaseEnv(db *DatabaseDict) {
	switch db.Driver {
	case "sqlite":
		if v := os.Getenv("WXCTL_SQLITE_ROOT"); v != "" {
			db.SQLiteRoot = v
		}
	case "postgres", "postgresql", "pgx":
		if v := os.Getenv("WXCTL_PG_HOST"); v != "" {
			db.Host = v
		}
		if v := os.Getenv("WXCTL_PG_PORT"); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				db.Port = port
			}
		}
		if v := os.Getenv("WXCTL_PG_PASSWORD"); v != "" {
			db.Password = v
		}
	}
}

// ManagerDict resolves a binding into the settings needed to open its database.
func (c *Config) ManagerDict(binding string) (ManagerDict, error) {
	b, ok := c.DataBindings[binding]
	if !ok {
		return ManagerDict{}, fmt.Errorf("%w: binding '%s' not found", ErrConfig, binding)
	}
	if b.Database == "" {
		return ManagerDict{}, fmt.Errorf("%w: binding '%s' does not name a database", ErrConfig, binding)
	}

	db, ok := c.Databases[b.Database]
	if !ok {
		return ManagerDict{}, fmt.Errorf("%w: database '%s' (binding '%s') not found", ErrConfig, b.Database, binding)
	}

	if db.DatabaseType != "" {
		defaults, ok := c.DatabaseTypes[db.DatabaseType]
		if !ok {
			return ManagerDict{}, fmt.Errorf("%w: database type '%s' not found", ErrConfig, db.DatabaseType)
		}
		db = merge(defaults, db)
	}

	if db.DatabaseName == "" {
		return ManagerDict{}, fmt.Errorf("%w: database '%s' has no database_name", ErrConfig, b.Database)
	}
	db.Driver = strings.ToLower(db.Driver)
	if db.Driver == "" {
		db.Driver = "sqlite"
	}
	applyDatabaseEnv(&db)
	if db.Driver == "sqlite" {
		db.SQLiteRoot = c.resolveSQLiteRoot(db.SQLiteRoot)
	}

	md := ManagerDict{
		Binding:      binding,
		TableName:    b.TableName,
		Observations: b.Observations,
		Database:     db,
	}
	if md.TableName == "" {
		md.TableName = DefaultTableName
	}
	if len(md.Observations) == 0 {
		md.Observations = append([]string(nil), DefaultObservations...)
	}

	return md, nil
}

func (c *Config) resolveSQLiteRoot(root string) string {
	if root == "" {
		if dataDir, err := DataDir(); err == nil {
			return dataDir
		}
		return "."
	}
	if filepath.IsAbs(root) || c.path == "" {
		return root
	}
	return filepath.Join(filepath.Dir(c.path), root)
}

// merge returns defaults overridden by every non-zero field of override.
func merge(defaults, override DatabaseDict) DatabaseDict {
	out := defaults
	if override.DatabaseName != "" {
		out.DatabaseName = override.DatabaseName
	}
	if override.DatabaseType != "" {
		out.DatabaseType = override.DatabaseType
	}
	if override.Driver != "" {
		out.Driver = override.Driver
	}
	if override.SQLiteRoot != "" {
		out.SQLiteRoot = override.SQLiteRoot
	}
	if override.Host != "" {
		out.Host = override.Host
	}
	if override.Port != 0 {
		out.Port = override.Port
	}
	if override.User != "" {
		out.User = override.User
	}
	if override.Password != "" {
		out.Password = override.Password
	}
	if override.SSLMode != "" {
		out.SSLMode = override.SSLMode
	}
	return out
}

// Location returns the station time zone used to cut days. Defaults to local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Station.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Station.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid station timezone '%s': %v", ErrConfig, c.Station.Timezone, err)
	}
	return loc, nil
}

// DataDir returns the path to the wxctl data directory (~/.wxctl/)
// Creates the directory if it doesn't exist
// Can be overridden with WXCTL_DATA_DIR environment variable (primarily for testing)
func DataDir() (string, error) {
	if dataDir := os.Getenv("WXCTL_DATA_DIR"); dataDir != "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return "", err
		}
		return dataDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dataDir := filepath.Join(home, "."+AppName)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}

// LogDir returns the path to the log directory (~/.wxctl/logs/)
// Creates the directory if it doesn't exist
func LogDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}

	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", err
	}

	return logDir, nil
}
