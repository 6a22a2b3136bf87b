package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"maker/internal/model"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Strategy StrategyConfig
	Exchange ExchangeConfig
	Database DatabaseConfig
}

// StrategyConfig defines the quoting parameters.
type StrategyConfig struct {
	Symbols            []string `mapstructure:"symbols"`
	Spread             float64  `mapstructure:"spread"`
	MaxOrderValuePct   float64  `mapstructure:"max_order_value_pct"`
	DeviationThreshold float64  `mapstructure:"deviation_threshold"`
	ChunkSize          float64  `mapstructure:"chunk_size"`
	CycleIntervalMS    int      `mapstructure:"cycle_interval_ms"`
	CallTimeoutMS      int      `mapstructure:"call_timeout_ms"`
}

// CycleInterval is the fixed sleep between scheduling ticks.
func (s StrategyConfig) CycleInterval() time.Duration {
	return time.Duration(s.CycleIntervalMS) * time.Millisecond
}

// CallTimeout bounds every individual venue call.
func (s StrategyConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutMS) * time.Millisecond
}

// ExchangeConfig defines the venue connection settings.
type ExchangeConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	WSURL     string `mapstructure:"ws_url"`
}

// DatabaseConfig defines the order journal connection settings.
// An empty Host disables the journal.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ConnString builds the Postgres connection string for the journal.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.DBName)
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("strategy.spread", 0.001)
	viper.SetDefault("strategy.max_order_value_pct", 0.05)
	viper.SetDefault("strategy.deviation_threshold", 0.02)
	viper.SetDefault("strategy.chunk_size", 0.01)
	viper.SetDefault("strategy.cycle_interval_ms", 5000)
	viper.SetDefault("strategy.call_timeout_ms", 4000)
	viper.SetDefault("exchange.base_url", "https://api.binance.com")
	viper.SetDefault("exchange.ws_url", "wss://stream.binance.com:9443")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

// Validate reports startup configuration errors. These are the only fatal
// errors in the process; after startup the bot degrades instead of exiting.
func (c *Config) Validate() error {
	s := c.Strategy
	if len(s.Symbols) == 0 {
		return errors.New("no symbols configured")
	}
	for _, raw := range s.Symbols {
		if _, err := model.ParseSymbol(raw); err != nil {
			return err
		}
	}
	if s.Spread <= 0 || s.Spread >= 1 {
		return fmt.Errorf("spread %v outside (0, 1)", s.Spread)
	}
	if s.MaxOrderValuePct <= 0 || s.MaxOrderValuePct > 1 {
		return fmt.Errorf("max_order_value_pct %v outside (0, 1]", s.MaxOrderValuePct)
	}
	if s.DeviationThreshold <= 0 || s.DeviationThreshold >= 1 {
		return fmt.Errorf("deviation_threshold %v outside (0, 1)", s.DeviationThreshold)
	}
	if s.ChunkSize < 0 {
		return fmt.Errorf("chunk_size %v is negative", s.ChunkSize)
	}
	if s.CycleIntervalMS <= 0 {
		return fmt.Errorf("cycle_interval_ms %d must be positive", s.CycleIntervalMS)
	}
	if s.CallTimeoutMS <= 0 || s.CallTimeoutMS > s.CycleIntervalMS {
		return fmt.Errorf("call_timeout_ms %d must be positive and at most cycle_interval_ms %d",
			s.CallTimeoutMS, s.CycleIntervalMS)
	}
	return nil
}
