// Package config loads application configuration from a YAML file with
// environment-variable overrides, following the project's single-source
// config convention.
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// App holds application configuration.
type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// Logger holds logger configuration.
type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// Database holds database configuration.
type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// API holds the read API server configuration.
type API struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Sources holds the API keys and endpoints for the third-party data
// providers the pipeline fans out to.
type Sources struct {
	PrimaryMacroAPIKey  string `mapstructure:"primary_macro_api_key"`
	PrimaryMacroBaseURL string `mapstructure:"primary_macro_base_url"`

	FXBaseURL          string `mapstructure:"fx_base_url"`
	FXAPIKey           string `mapstructure:"fx_api_key"`
	ParallelMarketURL  string `mapstructure:"parallel_market_url"`
	CryptoBaseURL      string `mapstructure:"crypto_base_url"`
	InflationBaseURL   string `mapstructure:"inflation_base_url"`
	InflationAPIKey    string `mapstructure:"inflation_api_key"`
	SDMXFallbackURL    string `mapstructure:"sdmx_fallback_url"`
	ReservesBaseURL    string `mapstructure:"reserves_base_url"`
	ReservesAPIKey     string `mapstructure:"reserves_api_key"`
	RiskFreeBaseURL    string `mapstructure:"risk_free_base_url"`
	StablecoinBaseURL  string `mapstructure:"stablecoin_base_url"`
	RequestTimeout     string `mapstructure:"request_timeout"`
	BackfillTimeout    string `mapstructure:"backfill_timeout"`
	MaxRequestsPerMin  int    `mapstructure:"max_requests_per_minute"`
	ParallelMarketISO2 string `mapstructure:"parallel_market_country_iso2"`
	StablecoinISO2     string `mapstructure:"stablecoin_country_iso2"`
}

// Scheduler holds configuration for the scheduler-triggered run.
type Scheduler struct {
	SharedSecret string `mapstructure:"shared_secret"`
}

// Load loads configuration from a file into the given config struct.
func Load(path string, config interface{}) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("Failed to read config file, trying environment variables only")
	}

	return viper.Unmarshal(config)
}
