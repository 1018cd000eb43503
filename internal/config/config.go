// Package config provides configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"restaurant-rank/core/fuzzy"
	rerrors "restaurant-rank/internal/errors"
	"restaurant-rank/internal/logging"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "RANKER_"

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version" hcl:"version,optional"`

	// Engine selects the membership profile
	Engine EngineConfig `json:"engine" yaml:"engine" hcl:"engine,block"`

	// Ranking contains ranking behaviour
	Ranking RankingConfig `json:"ranking" yaml:"ranking" hcl:"ranking,block"`

	// Input contains input column settings
	Input InputConfig `json:"input" yaml:"input" hcl:"input,block"`

	// Output contains output configuration
	Output OutputConfig `json:"output" yaml:"output" hcl:"output,block"`

	// History contains run history settings
	History HistoryConfig `json:"history" yaml:"history" hcl:"history,block"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging" hcl:"logging,block"`
}

// EngineConfig contains inference settings
type EngineConfig struct {
	// Profile is the name of a compiled membership profile
	Profile string `json:"profile" yaml:"profile" hcl:"profile,optional" validate:"required,profile"`

	// CacheSize memoises evaluations of repeated inputs; 0 disables it
	CacheSize int `json:"cache_size" yaml:"cache_size" hcl:"cache_size,optional" validate:"gte=0"`
}

// RankingConfig contains ranking settings
type RankingConfig struct {
	// TopK is the number of results kept; negative keeps all
	TopK int `json:"top_k" yaml:"top_k" hcl:"top_k,optional"`

	// OnError is the per-record failure policy (fail, skip)
	OnError string `json:"on_error" yaml:"on_error" hcl:"on_error,optional" validate:"oneof=fail skip"`

	// Workers bounds concurrent evaluation
	Workers int `json:"workers" yaml:"workers" hcl:"workers,optional" validate:"gte=1,lte=256"`
}

// InputConfig names the input columns
type InputConfig struct {
	IDColumn      string `json:"id_column" yaml:"id_column" hcl:"id_column,optional" validate:"required"`
	ServiceColumn string `json:"service_column" yaml:"service_column" hcl:"service_column,optional" validate:"required"`
	PriceColumn   string `json:"price_column" yaml:"price_column" hcl:"price_column,optional" validate:"required"`

	// SkipMalformed drops rows with unparsable numbers when the policy is skip
	SkipMalformed bool `json:"skip_malformed" yaml:"skip_malformed" hcl:"skip_malformed,optional"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format
	DefaultFormat string `json:"default_format" yaml:"default_format" hcl:"default_format,optional" validate:"oneof=table json csv markdown"`

	// Precision is the number of decimal places for scores; -1 disables rounding
	Precision int32 `json:"precision" yaml:"precision" hcl:"precision,optional" validate:"gte=-1,lte=10"`

	// Locale controls number grouping in table output
	Locale string `json:"locale" yaml:"locale" hcl:"locale,optional" validate:"bcp47_language_tag"`
}

// HistoryConfig contains run history settings
type HistoryConfig struct {
	// Enabled stores every run
	Enabled bool `json:"enabled" yaml:"enabled" hcl:"enabled,optional"`

	// Backend is the store type (file, memory, sqlite)
	Backend string `json:"backend" yaml:"backend" hcl:"backend,optional" validate:"oneof=file memory sqlite"`

	// Path is the history directory or database file
	Path string `json:"path" yaml:"path" hcl:"path,optional" validate:"required_unless=Backend memory"`
}

// HomeDir returns the application data directory
func HomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}
	return filepath.Join(homeDir, ".restaurant-rank")
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Engine: EngineConfig{
			Profile:   fuzzy.ProfileStandard,
			CacheSize: 1024,
		},
		Ranking: RankingConfig{
			TopK:    5,
			OnError: "fail",
			Workers: 1,
		},
		Input: InputConfig{
			IDColumn:      "id Pelanggan",
			ServiceColumn: "Pelayanan",
			PriceColumn:   "harga",
		},
		Output: OutputConfig{
			DefaultFormat: "table",
			Precision:     2,
			Locale:        "en",
		},
		History: HistoryConfig{
			Enabled: false,
			Backend: "file",
			Path:    filepath.Join(HomeDir(), "history"),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, rerrors.Config("cannot read config", err).WithContext("path", path)
		default:
			if err := decode(path, data, config); err != nil {
				return nil, err
			}
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are kept; a missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return rerrors.Config("cannot load env file", err).WithContext("path", path)
	}
	return nil
}

func decode(path string, data []byte, config *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		err = decodeHCL(path, data, config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return rerrors.Config("cannot parse config", err).WithContext("path", path)
	}
	return nil
}

var hclSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "version"}},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "engine"},
		{Type: "ranking"},
		{Type: "input"},
		{Type: "output"},
		{Type: "history"},
		{Type: "logging"},
	},
}

// decodeHCL decodes each block over the defaults so omitted blocks and
// attributes keep their default values.
func decodeHCL(path string, data []byte, config *Config) error {
	file, diags := hclparse.NewParser().ParseHCL(data, path)
	if diags.HasErrors() {
		return diags
	}

	content, diags := file.Body.Content(hclSchema)
	if diags.HasErrors() {
		return diags
	}

	if attr, ok := content.Attributes["version"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &config.Version); diags.HasErrors() {
			return diags
		}
	}

	for _, block := range content.Blocks {
		var target interface{}
		switch block.Type {
		case "engine":
			target = &config.Engine
		case "ranking":
			target = &config.Ranking
		case "input":
			target = &config.Input
		case "output":
			target = &config.Output
		case "history":
			target = &config.History
		case "logging":
			target = &config.Logging
		}
		if diags := gohcl.DecodeBody(block.Body, nil, target); diags.HasErrors() {
			return diags
		}
	}
	return nil
}

// ApplyEnv overrides fields from RANKER_* variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return rerrors.Config(fmt.Sprintf("invalid %s%s", EnvPrefix, name), err)
		}
		*dst = n
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return rerrors.Config(fmt.Sprintf("invalid %s%s", EnvPrefix, name), err)
		}
		*dst = b
		return nil
	}

	str("PROFILE", &c.Engine.Profile)
	str("ON_ERROR", &c.Ranking.OnError)
	str("ID_COLUMN", &c.Input.IDColumn)
	str("SERVICE_COLUMN", &c.Input.ServiceColumn)
	str("PRICE_COLUMN", &c.Input.PriceColumn)
	str("FORMAT", &c.Output.DefaultFormat)
	str("LOCALE", &c.Output.Locale)
	str("HISTORY_BACKEND", &c.History.Backend)
	str("HISTORY_PATH", &c.History.Path)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	for name, dst := range map[string]*int{
		"CACHE_SIZE": &c.Engine.CacheSize,
		"TOP_K":      &c.Ranking.TopK,
		"WORKERS":    &c.Ranking.Workers,
	} {
		if err := integer(name, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup(EnvPrefix + "PRECISION"); ok && v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return rerrors.Config(fmt.Sprintf("invalid %sPRECISION", EnvPrefix), err)
		}
		c.Output.Precision = int32(n)
	}

	if err := boolean("SKIP_MALFORMED", &c.Input.SkipMalformed); err != nil {
		return err
	}
	return boolean("HISTORY_ENABLED", &c.History.Enabled)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("profile", func(fl validator.FieldLevel) bool {
		_, err := fuzzy.LookupProfile(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks every field against its constraints
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return rerrors.Config("invalid configuration", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag(), fe.Value()))
	}
	return rerrors.Newf(rerrors.TypeConfig, "invalid configuration: %s", strings.Join(msgs, "; "))
}

// Save saves configuration to a file in the format implied by its extension
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		f := hclwrite.NewEmptyFile()
		gohcl.EncodeIntoBody(c, f.Body())
		data = f.Bytes()
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return rerrors.Config("cannot encode config", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
