// Package settings manages persistent user settings for the saimeta CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Defaults used when a setting is unset.
const (
	DefaultRedisAddr  = "127.0.0.1:6379"
	DefaultAsicDB     = 1
	DefaultCountersDB = 2
	DefaultSSHPort    = 22
	DefaultLogLevel   = "info"
)

// Settings holds persistent user preferences
type Settings struct {
	// RedisAddr is the switch Redis address (through the tunnel when SSHHost is set)
	RedisAddr string `json:"redis_addr,omitempty"`

	AsicDB     int `json:"asic_db,omitempty"`
	CountersDB int `json:"counters_db,omitempty"`

	// SchemaPath overrides the built-in attribute schema
	SchemaPath string `json:"schema_path,omitempty"`

	// RecordFile enables operation recording to a JSON-lines file
	RecordFile string `json:"record_file,omitempty"`

	SSHHost    string `json:"ssh_host,omitempty"`
	SSHUser    string `json:"ssh_user,omitempty"`
	SSHPort    int    `json:"ssh_port,omitempty"`
	KnownHosts string `json:"known_hosts,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "saimeta_settings.json"
	}
	return filepath.Join(home, ".saimeta", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetRedisAddr returns the Redis address (with fallback)
func (s *Settings) GetRedisAddr() string {
	if s.RedisAddr != "" {
		return s.RedisAddr
	}
	return DefaultRedisAddr
}

// GetAsicDB returns the ASIC_DB number (with fallback)
func (s *Settings) GetAsicDB() int {
	if s.AsicDB > 0 {
		return s.AsicDB
	}
	return DefaultAsicDB
}

// GetCountersDB returns the COUNTERS_DB number (with fallback)
func (s *Settings) GetCountersDB() int {
	if s.CountersDB > 0 {
		return s.CountersDB
	}
	return DefaultCountersDB
}

// GetSSHPort returns the SSH port (with fallback)
func (s *Settings) GetSSHPort() int {
	if s.SSHPort > 0 {
		return s.SSHPort
	}
	return DefaultSSHPort
}

// GetLogLevel returns the log level (with fallback)
func (s *Settings) GetLogLevel() string {
	if s.LogLevel != "" {
		return s.LogLevel
	}
	return DefaultLogLevel
}

type field struct {
	get func(*Settings) string
	set func(*Settings, string) error
}

func stringField(p func(*Settings) *string) field {
	return field{
		get: func(s *Settings) string { return *p(s) },
		set: func(s *Settings, v string) error { *p(s) = v; return nil },
	}
}

func intField(p func(*Settings) *int) field {
	return field{
		get: func(s *Settings) string {
			if *p(s) == 0 {
				return ""
			}
			return strconv.Itoa(*p(s))
		},
		set: func(s *Settings, v string) error {
			if v == "" {
				*p(s) = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid number %q", v)
			}
			*p(s) = n
			return nil
		},
	}
}

// fields maps the names accepted by "settings set" to their storage.
var fields = map[string]field{
	"redis_addr":  stringField(func(s *Settings) *string { return &s.RedisAddr }),
	"asic_db":     intField(func(s *Settings) *int { return &s.AsicDB }),
	"counters_db": intField(func(s *Settings) *int { return &s.CountersDB }),
	"schema_path": stringField(func(s *Settings) *string { return &s.SchemaPath }),
	"record_file": stringField(func(s *Settings) *string { return &s.RecordFile }),
	"ssh_host":    stringField(func(s *Settings) *string { return &s.SSHHost }),
	"ssh_user":    stringField(func(s *Settings) *string { return &s.SSHUser }),
	"ssh_port":    intField(func(s *Settings) *int { return &s.SSHPort }),
	"known_hosts": stringField(func(s *Settings) *string { return &s.KnownHosts }),
	"log_level":   stringField(func(s *Settings) *string { return &s.LogLevel }),
}

// Keys returns the setting names in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns a setting by name. Unset settings are empty.
func (s *Settings) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown setting %q", key)
	}
	return f.get(s), nil
}

// Set assigns a setting by name. An empty value unsets it.
func (s *Settings) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	if err := f.set(s, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
