package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/dreamlauncher/internal/installer"
	"github.com/loykin/dreamlauncher/internal/logger"
	"github.com/loykin/dreamlauncher/internal/mirror"
	"github.com/loykin/dreamlauncher/internal/presence"
	"github.com/loykin/dreamlauncher/internal/version"
)

// EnvPrefix prefixes environment overrides, e.g. DREAMLAUNCHER_SERVER_LISTEN.
const EnvPrefix = "DREAMLAUNCHER"

const (
	LaunchDirect = "direct"
	LaunchPager  = "pager"
)

// Config is the launcher configuration loaded from TOML, env and defaults.
type Config struct {
	InstallDir string         `toml:"install_dir" mapstructure:"install_dir"`
	DataDir    string         `toml:"data_dir" mapstructure:"data_dir"`
	Runtime    RuntimeConfig  `toml:"runtime" mapstructure:"runtime"`
	Mirrors    MirrorsConfig  `toml:"mirrors" mapstructure:"mirrors"`
	Presence   PresenceConfig `toml:"presence" mapstructure:"presence"`
	History    HistoryConfig  `toml:"history" mapstructure:"history"`
	Metrics    MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
	Server     ServerConfig   `toml:"server" mapstructure:"server"`
	Log        logger.Config  `toml:"log" mapstructure:"log"`
}

type RuntimeConfig struct {
	ProbeExecutable    string `toml:"probe_executable" mapstructure:"probe_executable"`
	VersionArg         string `toml:"version_arg" mapstructure:"version_arg"`
	LauncherExecutable string `toml:"launcher_executable" mapstructure:"launcher_executable"`
	ProcessName        string `toml:"process_name" mapstructure:"process_name"`
	DefaultInstallDir  string `toml:"default_install_dir" mapstructure:"default_install_dir"`
	RegistryKey        string `toml:"registry_key" mapstructure:"registry_key"`
	LaunchMethod       string `toml:"launch_method" mapstructure:"launch_method"` // direct or pager
	PagerExecutable    string `toml:"pager_executable" mapstructure:"pager_executable"`
}

type MirrorsConfig struct {
	Primary            string        `toml:"primary" mapstructure:"primary"`
	Secondary          string        `toml:"secondary" mapstructure:"secondary"`
	Timeout            time.Duration `toml:"timeout" mapstructure:"timeout"`
	RequiredVersionURL string        `toml:"required_version_url" mapstructure:"required_version_url"`
}

type PresenceConfig struct {
	Enabled         bool   `toml:"enabled" mapstructure:"enabled"`
	ApplicationID   string `toml:"application_id" mapstructure:"application_id"`
	LauncherState   string `toml:"launcher_state" mapstructure:"launcher_state"`
	LauncherDetails string `toml:"launcher_details" mapstructure:"launcher_details"`
	InGameState     string `toml:"in_game_state" mapstructure:"in_game_state"`
	InGameDetails   string `toml:"in_game_details" mapstructure:"in_game_details"` // printf format taking the server name
}

type HistoryConfig struct {
	Enabled bool     `toml:"enabled" mapstructure:"enabled"`
	DSN     []string `toml:"dsn" mapstructure:"dsn"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type ServerConfig struct {
	Listen       string        `toml:"listen" mapstructure:"listen"`
	BasePath     string        `toml:"base_path" mapstructure:"base_path"`
	PollInterval time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	// TokenFile receives the API bearer token on serve; empty means
	// {data_dir}/api.token.
	TokenFile      string   `toml:"token_file" mapstructure:"token_file"`
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`
}

// DefaultDataDir is the per-user application directory for downloads and history.
func DefaultDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, "dreamlauncher")
	}
	return filepath.Join(os.TempDir(), "dreamlauncher")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("install_dir", "")
	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("runtime.probe_executable", version.DefaultProbeExecutable)
	v.SetDefault("runtime.version_arg", version.DefaultVersionArg)
	v.SetDefault("runtime.launcher_executable", installer.DefaultLauncherExecutable)
	v.SetDefault("runtime.process_name", installer.DefaultLauncherExecutable)
	v.SetDefault("runtime.default_install_dir", installer.DefaultInstallDir)
	v.SetDefault("runtime.registry_key", installer.DefaultRegistryKey)
	v.SetDefault("runtime.launch_method", LaunchDirect)
	v.SetDefault("runtime.pager_executable", "byond.exe")

	v.SetDefault("mirrors.primary", mirror.DefaultPrimary)
	v.SetDefault("mirrors.secondary", mirror.DefaultSecondary)
	v.SetDefault("mirrors.timeout", mirror.DefaultTimeout)
	v.SetDefault("mirrors.required_version_url", version.DefaultRequiredURL)

	v.SetDefault("presence.enabled", true)
	v.SetDefault("presence.application_id", presence.DefaultApplicationID)
	v.SetDefault("presence.launcher_state", "In Launcher")
	v.SetDefault("presence.launcher_details", "Browsing servers")
	v.SetDefault("presence.in_game_state", "In Game")
	v.SetDefault("presence.in_game_details", "Playing on %s")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.dsn", []string{})

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9465")

	v.SetDefault("server.listen", "127.0.0.1:8765")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.poll_interval", 2*time.Second)
	v.SetDefault("server.token_file", "")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.color", false)
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.file.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.file.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.file.compress", false)
}

// Load reads path (TOML) over the defaults; an empty path means defaults and
// environment only. Environment variables use EnvPrefix and "_" for nesting.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Runtime.LaunchMethod {
	case LaunchDirect, LaunchPager:
	default:
		return fmt.Errorf("runtime.launch_method must be %q or %q, got %q", LaunchDirect, LaunchPager, c.Runtime.LaunchMethod)
	}
	if c.Mirrors.Timeout <= 0 {
		return fmt.Errorf("mirrors.timeout must be positive, got %s", c.Mirrors.Timeout)
	}
	if c.Mirrors.Primary == "" || c.Mirrors.Secondary == "" {
		return fmt.Errorf("mirrors.primary and mirrors.secondary are required")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with '/', got %q", c.Server.BasePath)
	}
	if c.Server.PollInterval <= 0 {
		return fmt.Errorf("server.poll_interval must be positive, got %s", c.Server.PollInterval)
	}
	return nil
}

// EffectiveInstallDir is InstallDir, or the runtime's default install dir
// when none was configured.
func (c *Config) EffectiveInstallDir() string {
	if c.InstallDir != "" {
		return c.InstallDir
	}
	return c.Runtime.DefaultInstallDir
}

// TokenPath is where serve writes the API token and the CLI reads it.
func (c *Config) TokenPath() string {
	if c.Server.TokenFile != "" {
		return c.Server.TokenFile
	}
	return filepath.Join(c.DataDir, "api.token")
}

// HistoryDSNs returns the sinks to open; none when history is disabled.
func (c *Config) HistoryDSNs() []string {
	if !c.History.Enabled {
		return nil
	}
	if len(c.History.DSN) == 0 {
		return []string{"sqlite://" + filepath.Join(c.DataDir, "history.db")}
	}
	return c.History.DSN
}
