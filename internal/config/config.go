package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Market   MarketConfig   `mapstructure:"market"`
	Database DatabaseConfig `mapstructure:"database"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SourcesConfig locates the quotation pages. Empty URLs silently skip
// the corresponding variant.
type SourcesConfig struct {
	ArabicaURL        string        `mapstructure:"arabica_url"`
	ConillonURL       string        `mapstructure:"conillon_url"`
	ArabicaWidgetURL  string        `mapstructure:"arabica_widget_url"`
	ConillonWidgetURL string        `mapstructure:"conillon_widget_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	Retries           int           `mapstructure:"retries"`
	Backoff           time.Duration `mapstructure:"backoff"`
	FallbackThreshold int           `mapstructure:"fallback_threshold"`
}

// OpenAIConfig covers the optional extraction fallback. A missing API key
// disables it.
type OpenAIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxHTMLBytes   int           `mapstructure:"max_html_bytes"`
}

// PathsConfig locates the persisted documents.
type PathsConfig struct {
	History   string `mapstructure:"history"`
	Summary   string `mapstructure:"summary"`
	IndexHTML string `mapstructure:"index_html"`
}

// MarketConfig drives the presentation-only market-open flag.
type MarketConfig struct {
	OpenHour  int    `mapstructure:"open_hour"`
	CloseHour int    `mapstructure:"close_hour"`
	Fonte     string `mapstructure:"fonte"`
}

// DatabaseConfig encapsulates the optional PostgreSQL archive mirror.
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// TelegramConfig captures optional update notifications.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COTACOES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The source URLs and the OpenAI credential historically arrive as
	// bare environment variables; keep honouring those names.
	_ = v.BindEnv("sources.arabica_url", "COTACOES_SOURCES_ARABICA_URL", "ARABICA_URL")
	_ = v.BindEnv("sources.conillon_url", "COTACOES_SOURCES_CONILLON_URL", "CONILLON_URL")
	_ = v.BindEnv("openai.api_key", "COTACOES_OPENAI_API_KEY", "OPENAI_API_KEY")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cotacoes-cafe")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("sources.user_agent", "")
	v.SetDefault("sources.request_timeout", "40s")
	v.SetDefault("sources.retries", 3)
	v.SetDefault("sources.backoff", "1500ms")
	v.SetDefault("sources.fallback_threshold", 2)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.request_timeout", "90s")
	v.SetDefault("openai.max_html_bytes", 150000)

	v.SetDefault("paths.history", "data/precos.json")
	v.SetDefault("paths.summary", "data/prices.json")
	v.SetDefault("paths.index_html", "index.html")

	v.SetDefault("market.open_hour", 8)
	v.SetDefault("market.close_hour", 17)
	v.SetDefault("market.fonte", "noticiasagricolas")

	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.min_idle_conns", 1)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Sources.Retries <= 0 {
		return fmt.Errorf("sources.retries must be greater than zero")
	}
	if c.Sources.Backoff < 0 {
		return fmt.Errorf("sources.backoff cannot be negative")
	}
	if c.Market.OpenHour < 0 || c.Market.OpenHour > 23 {
		return fmt.Errorf("market.open_hour must be within [0, 23]")
	}
	if c.Market.CloseHour < 0 || c.Market.CloseHour > 24 {
		return fmt.Errorf("market.close_hour must be within [0, 24]")
	}
	if c.Market.OpenHour >= c.Market.CloseHour {
		return fmt.Errorf("market.open_hour must precede market.close_hour")
	}
	if c.Paths.History == "" || c.Paths.Summary == "" {
		return fmt.Errorf("paths.history and paths.summary are required")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}
