package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi" mapstructure:"serpapi"`
	PDL        PDLConfig        `yaml:"pdl" mapstructure:"pdl"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	AWS        AWSConfig        `yaml:"aws" mapstructure:"aws"`
	GCP        GCPConfig        `yaml:"gcp" mapstructure:"gcp"`
	Faces      FacesConfig      `yaml:"faces" mapstructure:"faces"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// StoreConfig configures the person store backend and its optional cache.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds settings for the follow-up question service.
type OpenAIConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SerpAPIConfig holds SerpApi settings.
type SerpAPIConfig struct {
	Key     string  `yaml:"key" mapstructure:"key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// PDLConfig holds People Data Labs settings.
type PDLConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ApifyConfig holds Apify actor settings.
type ApifyConfig struct {
	Token       string  `yaml:"token" mapstructure:"token"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// GoogleConfig holds Custom Search settings used for image lookups.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	CX      string `yaml:"cx" mapstructure:"cx"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AWSConfig holds AWS settings for Rekognition.
type AWSConfig struct {
	Region string `yaml:"region" mapstructure:"region"`
}

// GCPConfig holds Google Cloud settings for image hosting and face detection.
type GCPConfig struct {
	Bucket        string `yaml:"bucket" mapstructure:"bucket"`
	PublicBaseURL string `yaml:"public_base_url" mapstructure:"public_base_url"`
	ProxyPrefix   string `yaml:"proxy_prefix" mapstructure:"proxy_prefix"`
	RefPrefix     string `yaml:"reference_prefix" mapstructure:"reference_prefix"`
}

// FacesConfig selects the face backend and the verification threshold.
type FacesConfig struct {
	Backend   string  `yaml:"backend" mapstructure:"backend"`
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// PipelineConfig bounds the fan-out points of a search.
type PipelineConfig struct {
	HydrateTopN        int `yaml:"hydrate_top_n" mapstructure:"hydrate_top_n"`
	ScrapeConcurrency  int `yaml:"scrape_concurrency" mapstructure:"scrape_concurrency"`
	ProxyConcurrency   int `yaml:"proxy_concurrency" mapstructure:"proxy_concurrency"`
	AdapterTimeoutSecs int `yaml:"adapter_timeout_secs" mapstructure:"adapter_timeout_secs"`
	PhotosPerPlatform  int `yaml:"photos_per_platform" mapstructure:"photos_per_platform"`
	PhotoFallbackCount int `yaml:"photo_fallback_count" mapstructure:"photo_fallback_count"`
	MinImageBytes      int `yaml:"min_image_bytes" mapstructure:"min_image_bytes"`
}

// ResilienceConfig tunes adapter retries and the web-reader circuit breaker.
type ResilienceConfig struct {
	RetryAttempts    int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs   int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// Load reads configuration from .env, the config file, and the environment.
// An empty path looks for config.yaml in the working directory.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PERSON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// secretKeys have no default but must be registered so AutomaticEnv
// can populate them during Unmarshal.
var secretKeys = []string{
	"store.database_url",
	"store.redis_addr",
	"anthropic.key",
	"perplexity.key",
	"openai.key",
	"serpapi.key",
	"pdl.key",
	"apify.token",
	"google.key",
	"google.cx",
	"jina.key",
	"firecrawl.key",
	"gcp.bucket",
	"gcp.public_base_url",
}

func setDefaults(v *viper.Viper) {
	for _, k := range secretKeys {
		v.SetDefault(k, "")
	}

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("serpapi.rps", 5)
	v.SetDefault("pdl.base_url", "https://api.peopledatalabs.com")
	v.SetDefault("apify.base_url", "https://api.apify.com")
	v.SetDefault("apify.timeout_secs", 20)
	v.SetDefault("apify.rps", 10)
	v.SetDefault("google.base_url", "https://customsearch.googleapis.com/")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("gcp.proxy_prefix", "proxied-images")
	v.SetDefault("gcp.reference_prefix", "reference-photos")

	v.SetDefault("faces.backend", "rekognition")
	v.SetDefault("faces.threshold", 70.0)

	v.SetDefault("pipeline.hydrate_top_n", 5)
	v.SetDefault("pipeline.scrape_concurrency", 6)
	v.SetDefault("pipeline.proxy_concurrency", 10)
	v.SetDefault("pipeline.adapter_timeout_secs", 20)
	v.SetDefault("pipeline.photos_per_platform", 10)
	v.SetDefault("pipeline.photo_fallback_count", 5)
	v.SetDefault("pipeline.min_image_bytes", 1024)

	v.SetDefault("resilience.retry_attempts", 2)
	v.SetDefault("resilience.retry_backoff_ms", 400)
	v.SetDefault("resilience.breaker_threshold", 3)
	v.SetDefault("resilience.breaker_reset_secs", 60)
}

// Validate checks values that cannot be defaulted. mode is the command
// being run ("serve", "search", "candidates", ...); serving additionally
// requires a usable port.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	switch c.Faces.Backend {
	case "rekognition", "vision", "none":
	default:
		errs = append(errs, fmt.Sprintf("faces.backend %q is not supported", c.Faces.Backend))
	}
	if c.Faces.Threshold < 0 || c.Faces.Threshold > 100 {
		errs = append(errs, fmt.Sprintf("faces.threshold must be within [0,100], got %v", c.Faces.Threshold))
	}

	if c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required")
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}

	zap.ReplaceGlobals(logger)
	return nil
}
