// Package config loads service configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
    "fmt"
    "os"
    "strconv"

    "gopkg.in/yaml.v3"
)

type Config struct {
    HTTP     HTTPConfig     `yaml:"http"`
    Database DatabaseConfig `yaml:"database"`
    Redis    RedisConfig    `yaml:"redis"`
    Auth     AuthConfig     `yaml:"auth"`
    Plan     PlanConfig     `yaml:"plan"`
    Forecast ForecastConfig `yaml:"forecast"`
}

type HTTPConfig struct {
    Addr      string  `yaml:"addr"`
    RateLimit float64 `yaml:"rate_limit"` // requests/sec per client, 0 disables
    RateBurst int     `yaml:"rate_burst"`
}

type DatabaseConfig struct {
    URL string `yaml:"url"` // empty selects the in-memory store
}

type RedisConfig struct {
    URL string `yaml:"url"` // empty selects the in-memory broker
}

type AuthConfig struct {
    Mode   string `yaml:"mode"` // dev or hmac
    Secret string `yaml:"secret"`
}

// PlanConfig carries the allocation defaults; request bodies may override
// them per plan.
type PlanConfig struct {
    CostPerDriver     float64 `yaml:"cost_per_driver"`
    LatePenalty       float64 `yaml:"late_penalty"`
    CapacityPerDriver float64 `yaml:"capacity_per_driver"`
    HoursToOptimize   int     `yaml:"hours_to_optimize"`
}

type ForecastConfig struct {
    Periods int `yaml:"periods"` // default forecast horizon in hours
}

// Default returns the built-in configuration.
func Default() Config {
    return Config{
        HTTP:     HTTPConfig{Addr: ":8080", RateLimit: 0, RateBurst: 20},
        Auth:     AuthConfig{Mode: "dev"},
        Plan:     PlanConfig{CostPerDriver: 30, LatePenalty: 50, CapacityPerDriver: 4, HoursToOptimize: 24},
        Forecast: ForecastConfig{Periods: 168},
    }
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
    cfg := Default()
    if path != "" {
        data, err := os.ReadFile(path)
        if err != nil {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err := yaml.Unmarshal(data, &cfg); err != nil {
            return cfg, fmt.Errorf("parse config: %w", err)
        }
    }
    cfg.applyEnv()
    if err := cfg.validate(); err != nil {
        return cfg, err
    }
    return cfg, nil
}

func (c *Config) applyEnv() {
    if v := os.Getenv("HTTP_ADDR"); v != "" {
        c.HTTP.Addr = v
    }
    if v := os.Getenv("DATABASE_URL"); v != "" {
        c.Database.URL = v
    }
    if v := os.Getenv("REDIS_URL"); v != "" {
        c.Redis.URL = v
    }
    if v := os.Getenv("AUTH_MODE"); v != "" {
        c.Auth.Mode = v
    }
    if v := os.Getenv("AUTH_HMAC_SECRET"); v != "" {
        c.Auth.Secret = v
    }
    if v := envFloat("PLAN_COST_PER_DRIVER"); v != nil {
        c.Plan.CostPerDriver = *v
    }
    if v := envFloat("PLAN_LATE_PENALTY"); v != nil {
        c.Plan.LatePenalty = *v
    }
    if v := envFloat("PLAN_CAPACITY_PER_DRIVER"); v != nil {
        c.Plan.CapacityPerDriver = *v
    }
    if v := envInt("PLAN_HOURS_TO_OPTIMIZE"); v != nil {
        c.Plan.HoursToOptimize = *v
    }
    if v := envInt("FORECAST_PERIODS"); v != nil {
        c.Forecast.Periods = *v
    }
}

func (c *Config) validate() error {
    if c.Plan.CapacityPerDriver <= 0 {
        return fmt.Errorf("plan.capacity_per_driver must be positive, got %v", c.Plan.CapacityPerDriver)
    }
    if c.Plan.HoursToOptimize <= 0 {
        return fmt.Errorf("plan.hours_to_optimize must be positive, got %d", c.Plan.HoursToOptimize)
    }
    if c.Forecast.Periods <= 0 {
        return fmt.Errorf("forecast.periods must be positive, got %d", c.Forecast.Periods)
    }
    if c.Auth.Mode != "dev" && c.Auth.Mode != "hmac" {
        return fmt.Errorf("auth.mode must be dev or hmac, got %q", c.Auth.Mode)
    }
    if c.Auth.Mode == "hmac" && c.Auth.Secret == "" {
        return fmt.Errorf("auth.secret required for hmac mode")
    }
    return nil
}

func envFloat(key string) *float64 {
    v := os.Getenv(key)
    if v == "" {
        return nil
    }
    f, err := strconv.ParseFloat(v, 64)
    if err != nil {
        return nil
    }
    return &f
}

func envInt(key string) *int {
    v := os.Getenv(key)
    if v == "" {
        return nil
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        return nil
    }
    return &n
}
