package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix namespaces every environment override.
	EnvPrefix = "KINOSHKA_"
	// PathEnvVar overrides the config file location.
	PathEnvVar = EnvPrefix + "CONFIG"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings represents the application configuration.
type Settings struct {
	Server   ServerSettings   `koanf:"server" json:"server"`
	Metadata MetadataSettings `koanf:"metadata" json:"metadata"`
	Storage  StorageSettings  `koanf:"storage" json:"storage"`
	Log      LogConfig        `koanf:"log" json:"log"`
}

type ServerSettings struct {
	Host string `koanf:"host" json:"host"`
	Port int    `koanf:"port" json:"port" validate:"min=1,max=65535"`
}

// Addr returns the listen address.
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type MetadataSettings struct {
	APIKey            string  `koanf:"api_key" json:"apiKey"`
	BaseURL           string  `koanf:"base_url" json:"baseUrl" validate:"required,url"`
	CacheTTLHours     int     `koanf:"cache_ttl_hours" json:"cacheTtlHours" validate:"min=1"`
	RequestsPerSecond float64 `koanf:"requests_per_second" json:"requestsPerSecond" validate:"min=0"`
	TimeoutSeconds    int     `koanf:"timeout_seconds" json:"timeoutSeconds" validate:"min=1"`
}

// CacheTTL returns the catalog cache lifetime.
func (m MetadataSettings) CacheTTL() time.Duration {
	return time.Duration(m.CacheTTLHours) * time.Hour
}

// Timeout returns the per-request timeout of the catalog client.
func (m MetadataSettings) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

type StorageSettings struct {
	Backend   string `koanf:"backend" json:"backend" validate:"oneof=badger file sqlite"`
	Directory string `koanf:"directory" json:"directory" validate:"required"`
}

// LogConfig controls log output and rotation.
type LogConfig struct {
	Level      string `koanf:"level" json:"level" validate:"oneof=trace debug info warn error disabled"`
	Format     string `koanf:"format" json:"format" validate:"oneof=json console"`
	Caller     bool   `koanf:"caller" json:"caller"`
	File       string `koanf:"file" json:"file"`
	MaxSize    int    `koanf:"max_size" json:"maxSize"`       // megabytes
	MaxBackups int    `koanf:"max_backups" json:"maxBackups"` // old files kept
	MaxAge     int    `koanf:"max_age" json:"maxAge"`         // days
	Compress   bool   `koanf:"compress" json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 7878},
		Metadata: MetadataSettings{
			BaseURL:           "https://kinopoiskapiunofficial.tech",
			CacheTTLHours:     72,
			RequestsPerSecond: 5,
			TimeoutSeconds:    20,
		},
		Storage: StorageSettings{Backend: "badger", Directory: "data"},
		Log: LogConfig{
			File:       "data/logs/backend.log",
			Level:      "info",
			Format:     "json",
			MaxSize:    50,   // 50 MB per file
			MaxBackups: 3,    // keep 3 old files
			MaxAge:     7,    // 7 days
			Compress:   true, // compress old files
		},
	}
}

// Manager loads settings from defaults, an optional YAML file and the environment,
// in that order of precedence.
type Manager struct {
	path string
}

// NewManager returns a manager for the YAML file at configPath. An empty path
// falls back to $KINOSHKA_CONFIG.
func NewManager(configPath string) *Manager {
	if strings.TrimSpace(configPath) == "" {
		configPath = os.Getenv(PathEnvVar)
	}
	return &Manager{path: configPath}
}

// Path returns the config file location, which may be empty.
func (m *Manager) Path() string { return m.path }

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads the layered configuration. A configured file that does not exist
// yet is created with defaults.
func (m *Manager) Load() (Settings, error) {
	k := koanf.New(".")

	defaults := DefaultSettings()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return Settings{}, fmt.Errorf("load defaults: %w", err)
	}

	if m.path != "" {
		if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
			if err := m.Save(defaults); err != nil {
				return Settings{}, err
			}
		}
		if err := k.Load(file.Provider(m.path), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("load config file %s: %w", m.path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return Settings{}, fmt.Errorf("load environment: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}

	backfill(&s)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// envTransform maps KINOSHKA_METADATA_API_KEY to metadata.api_key. Variables
// without a known section, such as KINOSHKA_CONFIG, are skipped.
func envTransform(key, value string) (string, any) {
	name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(name, "_")
	if !ok || field == "" {
		return "", nil
	}
	switch section {
	case "server", "metadata", "storage", "log":
		return section + "." + field, value
	}
	return "", nil
}

func backfill(s *Settings) {
	defaults := DefaultSettings()

	s.Storage.Backend = strings.ToLower(strings.TrimSpace(s.Storage.Backend))
	if s.Storage.Backend == "" {
		s.Storage.Backend = defaults.Storage.Backend
	}
	if strings.TrimSpace(s.Storage.Directory) == "" {
		s.Storage.Directory = defaults.Storage.Directory
	}

	s.Metadata.APIKey = strings.TrimSpace(s.Metadata.APIKey)
	s.Metadata.BaseURL = strings.TrimRight(strings.TrimSpace(s.Metadata.BaseURL), "/")
	if s.Metadata.BaseURL == "" {
		s.Metadata.BaseURL = defaults.Metadata.BaseURL
	}
	if s.Metadata.CacheTTLHours == 0 {
		s.Metadata.CacheTTLHours = defaults.Metadata.CacheTTLHours
	}
	if s.Metadata.TimeoutSeconds == 0 {
		s.Metadata.TimeoutSeconds = defaults.Metadata.TimeoutSeconds
	}

	// Backfill Log settings
	s.Log.Level = strings.ToLower(strings.TrimSpace(s.Log.Level))
	if s.Log.Level == "" {
		s.Log.Level = defaults.Log.Level
	}
	s.Log.Format = strings.ToLower(strings.TrimSpace(s.Log.Format))
	if s.Log.Format == "" {
		s.Log.Format = defaults.Log.Format
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = defaults.Log.MaxSize
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = defaults.Log.MaxAge
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges and enumerations of the loaded settings.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q (got %v)", ErrInvalidSettings, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// Save writes the provided settings to disk atomically as YAML.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(s, "koanf"), nil); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	data, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
