package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	UserID      string `mapstructure:"user_id" yaml:"user_id"`
	StoreDriver string `mapstructure:"store_driver" yaml:"store_driver"`
	StoreDSN    string `mapstructure:"store_dsn" yaml:"store_dsn"`
	DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`
	PageSize    int    `mapstructure:"page_size" yaml:"page_size"`

	// HTTP server
	ListenAddr      string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	CORSOrigins     []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	MaxUploadMB     int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	ParseTimeoutSec int      `mapstructure:"parse_timeout_sec" yaml:"parse_timeout_sec"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Model training
	Trainer     string `mapstructure:"trainer" yaml:"trainer"`
	TrainerSeed int64  `mapstructure:"trainer_seed" yaml:"trainer_seed"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"user_id", "store_driver", "store_dsn", "data_dir", "page_size",
	"listen_addr", "cors_origins", "max_upload_mb", "parse_timeout_sec",
	"log_level", "log_format", "trainer", "trainer_seed",
}

// Dir returns ~/.tabloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from defaults, the config file, a .env file in the
// working directory and the environment.
// Precedence: env > .env > config file > defaults. CLI flags override on top.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TABLOOM")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("user_id", "local")
	v.SetDefault("store_driver", "fs")
	v.SetDefault("store_dsn", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("page_size", 20)
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("parse_timeout_sec", 30)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("trainer", "mock")
	v.SetDefault("trainer_seed", 42)

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Env values for list keys arrive as one comma-separated string.
	if len(c.CORSOrigins) == 1 && strings.Contains(c.CORSOrigins[0], ",") {
		c.CORSOrigins = splitList(c.CORSOrigins[0])
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(dir, "data")
	}
	return &c, nil
}

// Set assigns a key from its string form, as given on the command line.
func (c *Global) Set(key, value string) error {
	var err error
	switch key {
	case "user_id":
		c.UserID = value
	case "store_driver":
		switch value {
		case "fs", "sqlite3", "postgres":
			c.StoreDriver = value
		default:
			return fmt.Errorf("store_driver must be fs, sqlite3 or postgres")
		}
	case "store_dsn":
		c.StoreDSN = value
	case "data_dir":
		c.DataDir = value
	case "page_size":
		c.PageSize, err = positiveInt(key, value)
	case "listen_addr":
		c.ListenAddr = value
	case "cors_origins":
		c.CORSOrigins = splitList(value)
	case "max_upload_mb":
		c.MaxUploadMB, err = positiveInt(key, value)
	case "parse_timeout_sec":
		c.ParseTimeoutSec, err = positiveInt(key, value)
	case "log_level":
		c.LogLevel = value
	case "log_format":
		c.LogFormat = value
	case "trainer":
		c.Trainer = value
	case "trainer_seed":
		var n int
		if _, err = fmt.Sscan(value, &n); err != nil {
			return fmt.Errorf("trainer_seed must be an integer")
		}
		c.TrainerSeed = int64(n)
	default:
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return err
}

func positiveInt(key, value string) (int, error) {
	var n int
	if _, err := fmt.Sscan(value, &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
