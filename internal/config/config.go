package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	HTTPAddr            string        `yaml:"http_addr"`
	GRPCAddr            string        `yaml:"grpc_addr"`
	LogLevel            string        `yaml:"log_level"`
	AliasesPath         string        `yaml:"aliases_path"`
	LowStockThresholdKg float64       `yaml:"low_stock_threshold_kg"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`

	Store  StoreConfig  `yaml:"store"`
	Redis  RedisConfig  `yaml:"redis"`
	LLM    LLMConfig    `yaml:"llm"`
	Ledger LedgerConfig `yaml:"ledger"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	MySQLDSN   string `yaml:"mysql_dsn"`
}

// RedisConfig enables the distributed lock and idempotency cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	PoolSize int    `yaml:"pool_size"`
}

// LLMConfig enables the model fallback when BaseURL is set.
type LLMConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

type LedgerConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

func Default() Config {
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		LogLevel:            "info",
		LowStockThresholdKg: 2.0,
		ShutdownTimeout:     5 * time.Second,
		Store: StoreConfig{
			Driver:     DriverSQLite,
			SQLitePath: "voice_inventory.db",
			MySQLDSN:   "root:root@tcp(localhost:3306)/voice_inventory?parseTime=true",
		},
		Redis: RedisConfig{PoolSize: 100},
		LLM:   LLMConfig{RatePerSecond: 1},
		Ledger: LedgerConfig{
			Workers:   10,
			QueueSize: 10000,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"HTTP_ADDR":    &c.HTTPAddr,
		"GRPC_ADDR":    &c.GRPCAddr,
		"LOG_LEVEL":    &c.LogLevel,
		"ALIASES_PATH": &c.AliasesPath,
		"STORE_DRIVER": &c.Store.Driver,
		"SQLITE_PATH":  &c.Store.SQLitePath,
		"MYSQL_DSN":    &c.Store.MySQLDSN,
		"REDIS_ADDR":   &c.Redis.Addr,
		"LLM_BASE_URL": &c.LLM.BaseURL,
		"LLM_API_KEY":  &c.LLM.APIKey,
		"LLM_MODEL":    &c.LLM.Model,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LEDGER_WORKERS":    &c.Ledger.Workers,
		"LEDGER_QUEUE_SIZE": &c.Ledger.QueueSize,
		"REDIS_POOL_SIZE":   &c.Redis.PoolSize,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	floats := map[string]*float64{
		"LOW_STOCK_THRESHOLD_KG": &c.LowStockThresholdKg,
		"LLM_RATE_PER_SECOND":    &c.LLM.RatePerSecond,
	}
	for key, dst := range floats {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.GRPCAddr == "" {
		errs = append(errs, errors.New("grpc_addr is required"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for sqlite"))
		}
	case DriverMySQL:
		if c.Store.MySQLDSN == "" {
			errs = append(errs, errors.New("store.mysql_dsn is required for mysql"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of sqlite, mysql, memory", c.Store.Driver))
	}

	if c.LLM.BaseURL != "" && c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required when llm.base_url is set"))
	}
	if c.LLM.RatePerSecond < 0 {
		errs = append(errs, errors.New("llm.rate_per_second must not be negative"))
	}
	if c.Ledger.Workers <= 0 || c.Ledger.QueueSize <= 0 {
		errs = append(errs, errors.New("ledger.workers and ledger.queue_size must be positive"))
	}
	if c.LowStockThresholdKg < 0 {
		errs = append(errs, errors.New("low_stock_threshold_kg must not be negative"))
	}
	return errors.Join(errs...)
}
