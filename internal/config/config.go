package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"stock-backtest-go/internal/backtest"
	"stock-backtest-go/internal/strategy"
)

// Config holds all configuration for the application.
type Config struct {
	Data     Data            `mapstructure:"data"`
	Strategy strategy.Config `mapstructure:"strategy"`
	Backtest Backtest        `mapstructure:"backtest"`
	Analysis Analysis        `mapstructure:"analysis"`
	Logger   Logger          `mapstructure:"logger"`
	Server   Server          `mapstructure:"server"`
	Database Database        `mapstructure:"database"`
}

// Data selects the tickers, date range and market data source.
type Data struct {
	Tickers        []string `mapstructure:"tickers"`
	StartDate      string   `mapstructure:"start_date"`
	EndDate        string   `mapstructure:"end_date"`
	Source         string   `mapstructure:"source"`
	CacheEnabled   bool     `mapstructure:"cache_enabled"`
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

// DateRange parses the configured window. An empty end date means today; an
// empty start date means one year before the end.
func (d Data) DateRange() (start, end time.Time, err error) {
	end = time.Now()
	if d.EndDate != "" {
		end, err = time.Parse("2006-01-02", d.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", d.EndDate, err)
		}
	}
	start = end.AddDate(-1, 0, 0)
	if d.StartDate != "" {
		start, err = time.Parse("2006-01-02", d.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", d.StartDate, err)
		}
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date %s is after end_date %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return start, end, nil
}

// Backtest mirrors the engine config in file-friendly form. The json tags
// let API requests override the same keys the config file uses.
type Backtest struct {
	InitialCapital   float64 `mapstructure:"initial_capital" json:"initial_capital"`
	CommissionRate   float64 `mapstructure:"commission_rate" json:"commission_rate"`
	StampDutyRate    float64 `mapstructure:"stamp_duty_rate" json:"stamp_duty_rate"`
	StampDutySide    string  `mapstructure:"stamp_duty_side" json:"stamp_duty_side"`
	SlippageRate     float64 `mapstructure:"slippage_rate" json:"slippage_rate"`
	PositionFraction float64 `mapstructure:"position_fraction" json:"position_fraction"`
	LotSize          int64   `mapstructure:"lot_size" json:"lot_size"`
}

// EngineConfig converts to the engine's config type. Validation happens in
// the engine, not here.
func (b Backtest) EngineConfig() backtest.Config {
	return backtest.Config{
		InitialCapital:   b.InitialCapital,
		CommissionRate:   b.CommissionRate,
		StampDutyRate:    b.StampDutyRate,
		StampDutySide:    backtest.StampDutySide(b.StampDutySide),
		SlippageRate:     b.SlippageRate,
		PositionFraction: b.PositionFraction,
		LotSize:          b.LotSize,
	}
}

// Analysis configures metric computation and report output.
type Analysis struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
	TradingDays  int     `mapstructure:"trading_days"`
	OutputDir    string  `mapstructure:"output_dir"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the bar cache database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	eng := backtest.DefaultConfig()
	return Config{
		Data: Data{
			Tickers:        []string{"600000"},
			Source:         "eastmoney",
			CacheEnabled:   true,
			RateLimit:      5,
			RateLimitBurst: 2,
		},
		Strategy: strategy.DefaultConfig(),
		Backtest: Backtest{
			InitialCapital:   eng.InitialCapital,
			CommissionRate:   eng.CommissionRate,
			StampDutyRate:    eng.StampDutyRate,
			StampDutySide:    string(eng.StampDutySide),
			SlippageRate:     eng.SlippageRate,
			PositionFraction: eng.PositionFraction,
			LotSize:          eng.LotSize,
		},
		Analysis: Analysis{
			RiskFreeRate: 0.03,
			TradingDays:  252,
			OutputDir:    "./output",
		},
		Logger:   Logger{Level: "info", Format: "console"},
		Server:   Server{Port: 8080},
		Database: Database{DSN: "./data/backtest.db"},
	}
}

// LoadConfig reads configuration from file or environment variables. Keys
// missing from the file keep their Default() values.
func LoadConfig(path string) (Config, error) {
	config := Default()

	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return config, err
	}
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}
	return config, nil
}
