// Package config loads database settings from a config file, .env files and
// DBWRAPPER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable Load consults.
const EnvPrefix = "DBWRAPPER"

// AppFs is the filesystem Load reads from when it is given none.
var AppFs = afero.NewOsFs()

// Settings describes a MySQL database and the client options used with it.
type Settings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	TimestampFormat     string `mapstructure:"timestamp_format"`
	MaxStatementLength  int    `mapstructure:"max_statement_length"`
	LogQueries          bool   `mapstructure:"log_queries"`
	LogResults          bool   `mapstructure:"log_results"`
	DescribeConcurrency int    `mapstructure:"describe_concurrency"`
}

var defaults = map[string]any{
	"host":                 "localhost",
	"port":                 3306,
	"user":                 "",
	"password":             "",
	"database":             "",
	"timestamp_format":     "",
	"max_statement_length": 0,
	"log_queries":          false,
	"log_results":          false,
	"describe_concurrency": 4,
}

// Load reads settings. Sources, lowest priority first: defaults, the config
// file at path (skipped when path is empty), .env then .env.local, and
// finally the process environment.
func Load(fs afero.Fs, path string) (*Settings, error) {
	if fs == nil {
		fs = AppFs
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	for _, name := range []string{".env", ".env.local"} {
		values, err := readDotenv(fs, name)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", name, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// readDotenv returns the DBWRAPPER_* entries of a .env file keyed by
// setting name. A missing file yields nothing; any other open error is returned.
func readDotenv(fs afero.Fs, name string) (map[string]any, error) {
	f, err := fs.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	env, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	values := make(map[string]any)
	for key, val := range env {
		setting, ok := strings.CutPrefix(key, EnvPrefix+"_")
		if !ok {
			continue
		}
		values[strings.ToLower(setting)] = val
	}
	return values, nil
}

// Validate reports settings that cannot describe a usable connection.
func (s *Settings) Validate() error {
	var errs []error
	if s.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", s.Port))
	}
	if s.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if s.MaxStatementLength < 0 {
		errs = append(errs, fmt.Errorf("max_statement_length %d must not be negative", s.MaxStatementLength))
	}
	if s.DescribeConcurrency < 0 {
		errs = append(errs, fmt.Errorf("describe_concurrency %d must not be negative", s.DescribeConcurrency))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// MySQLConfig returns the driver configuration for s: TCP, UTC and
// DATETIME columns parsed into time.Time.
func (s *Settings) MySQLConfig() *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = s.User
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	cfg.DBName = s.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg
}

// DSN returns the driver connection string for s.
func (s *Settings) DSN() string {
	return s.MySQLConfig().FormatDSN()
}
