// Package config handles configuration loading for votereport.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/seenimoa/votereport/internal/territory"
)

// Config represents the complete application configuration.
type Config struct {
	Races       []RaceSource      `mapstructure:"races"       yaml:"races" json:"races"`
	Dataset     DatasetConfig     `mapstructure:"dataset"     yaml:"dataset" json:"dataset"`
	Territories []territory.Entry `mapstructure:"territories" yaml:"territories" json:"territories"`
	Report      ReportConfig      `mapstructure:"report"      yaml:"report" json:"report"`
	API         APIConfig         `mapstructure:"api"         yaml:"api" json:"api"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging" json:"logging"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-" yaml:"-" json:"-"`
}

// RaceSource binds a race key (e.g. "Governador") to its tally file.
type RaceSource struct {
	Key       string `mapstructure:"key"       yaml:"key"       json:"key"`
	Path      string `mapstructure:"path"      yaml:"path"      json:"path"`
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter" json:"delimiter,omitempty"` // overrides dataset.delimiter
}

// DatasetConfig holds loader settings shared by every race.
type DatasetConfig struct {
	Dir        string        `mapstructure:"dir"         yaml:"dir" json:"dir"` // base for relative race paths
	Delimiter  string        `mapstructure:"delimiter"   yaml:"delimiter" json:"delimiter"`
	Columns    ColumnsConfig `mapstructure:"columns"     yaml:"columns" json:"columns"`
	Watch      bool          `mapstructure:"watch"       yaml:"watch" json:"watch"`
	DebounceMs int           `mapstructure:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`
}

// ColumnsConfig names the required source columns.
type ColumnsConfig struct {
	Candidate string `mapstructure:"candidate" yaml:"candidate" json:"candidate"`
	Zone      string `mapstructure:"zone"      yaml:"zone"      json:"zone"`
	Location  string `mapstructure:"location"  yaml:"location"  json:"location"`
	Votes     string `mapstructure:"votes"     yaml:"votes"     json:"votes"`
}

// ReportConfig holds document composition settings.
type ReportConfig struct {
	Format         string `mapstructure:"format"          yaml:"format" json:"format"` // "pdf", "html", "text", "xlsx"
	OutputDir      string `mapstructure:"output_dir"      yaml:"output_dir" json:"output_dir"`
	FilenamePrefix string `mapstructure:"filename_prefix" yaml:"filename_prefix" json:"filename_prefix"`
	TopN           int    `mapstructure:"top_n"           yaml:"top_n" json:"top_n"`
	LocationWidth  int    `mapstructure:"location_width"  yaml:"location_width" json:"location_width"`
	TiePolicy      string `mapstructure:"tie_policy"      yaml:"tie_policy" json:"tie_policy"` // "include" or "truncate"
	Author         string `mapstructure:"author"          yaml:"author" json:"author"`
	RegionName     string `mapstructure:"region_name"     yaml:"region_name" json:"region_name"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host         string   `mapstructure:"host"           yaml:"host" json:"host"`
	Port         int      `mapstructure:"port"           yaml:"port" json:"port"`
	CORSOrigins  []string `mapstructure:"cors_origins"   yaml:"cors_origins" json:"cors_origins"`
	ReportTTLSec int      `mapstructure:"report_ttl_sec" yaml:"report_ttl_sec" json:"report_ttl_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level" json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.votereport/config.yaml (home directory)
//  3. /etc/votereport/config.yaml (system)
//
// Environment variables override config file values.
// Format: VOTEREPORT_<SECTION>_<KEY>, e.g., VOTEREPORT_REPORT_TOP_N
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".votereport"))
	v.AddConfigPath("/etc/votereport")

	v.SetEnvPrefix("VOTEREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("VOTEREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.File = v.ConfigFileUsed()
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// The single race shipped with the public preview.
	v.SetDefault("races", []map[string]any{
		{"key": "Governador", "path": "localvotacao_governador.csv"},
	})

	// Dataset defaults
	v.SetDefault("dataset.dir", ".")
	v.SetDefault("dataset.delimiter", ";")
	v.SetDefault("dataset.columns.candidate", "nm_votavel")
	v.SetDefault("dataset.columns.zone", "nr_zona")
	v.SetDefault("dataset.columns.location", "nm_local_votacao")
	v.SetDefault("dataset.columns.votes", "qt_votos")
	v.SetDefault("dataset.watch", false)
	v.SetDefault("dataset.debounce_ms", 500)

	// Report defaults
	v.SetDefault("report.format", "pdf")
	v.SetDefault("report.output_dir", ".")
	v.SetDefault("report.filename_prefix", "Relatorio_")
	v.SetDefault("report.top_n", 5)
	v.SetDefault("report.location_width", 75)
	v.SetDefault("report.tie_policy", "include")
	v.SetDefault("report.region_name", "DF")

	// API defaults
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:8080"})
	v.SetDefault("api.report_ttl_sec", 600) // 10 minutes

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv reads values that do not map cleanly onto viper's
// nested-key environment lookup.
func overrideFromEnv(cfg *Config) {
	if dir := os.Getenv("VOTEREPORT_DATA_DIR"); dir != "" {
		cfg.Dataset.Dir = dir
	}
	if author := os.Getenv("VOTEREPORT_REPORT_AUTHOR"); author != "" {
		cfg.Report.Author = author
	}
}

// Validate checks values that would otherwise fail deep inside a render.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Races))
	for i, r := range c.Races {
		if r.Key == "" {
			return fmt.Errorf("races[%d]: key is required", i)
		}
		if r.Path == "" {
			return fmt.Errorf("race %q: path is required", r.Key)
		}
		if seen[r.Key] {
			return fmt.Errorf("race %q: duplicate key", r.Key)
		}
		seen[r.Key] = true
	}
	if c.Report.TopN < 1 {
		return fmt.Errorf("report.top_n must be positive, got %d", c.Report.TopN)
	}
	if c.Report.LocationWidth < 1 {
		return fmt.Errorf("report.location_width must be positive, got %d", c.Report.LocationWidth)
	}
	switch c.Report.TiePolicy {
	case "include", "truncate":
	default:
		return fmt.Errorf("report.tie_policy must be include or truncate, got %q", c.Report.TiePolicy)
	}
	return nil
}

// ResolvePath returns the race file path, joined with the dataset directory
// when relative.
func (c *Config) ResolvePath(src RaceSource) string {
	if filepath.IsAbs(src.Path) || c.Dataset.Dir == "" {
		return src.Path
	}
	return filepath.Join(c.Dataset.Dir, src.Path)
}

// TerritoryTable returns the zone label table: the configured entries when
// present, otherwise the built-in Federal District table.
func (c *Config) TerritoryTable() *territory.Table {
	if len(c.Territories) == 0 {
		return territory.FederalDistrict()
	}
	return territory.New(c.Territories)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
