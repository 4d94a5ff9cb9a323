package config

import (
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/escrow-tf/steamweb/api"
	"github.com/escrow-tf/steamweb/api/auth"
	"github.com/escrow-tf/steamweb/api/community"
	"github.com/escrow-tf/steamweb/api/twofactor"
	"github.com/escrow-tf/steamweb/logging"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TransportConfig holds configuration for the community HTTP transport.
type TransportConfig struct {
	CommunityURL string `mapstructure:"community_url" default:"https://steamcommunity.com"`
	// WebAPIURL is only used to align the Steam Guard clock.
	WebAPIURL string `mapstructure:"web_api_url" default:"https://api.steampowered.com"`
	// UserAgent overrides the Android client user agent when set.
	UserAgent      string `mapstructure:"user_agent" default:""`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" default:"30"`
	MaxRedirects   int    `mapstructure:"max_redirects" default:"3"`
	// RetryMax only applies to inventory pages. Logins are never retried.
	RetryMax           int  `mapstructure:"retry_max" default:"0"`
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" default:"false"`
}

// InventoryConfig holds configuration for inventory syncs.
type InventoryConfig struct {
	AppID     string `mapstructure:"app_id" default:"753"`
	ContextID string `mapstructure:"context_id" default:"6"`
	Language  string `mapstructure:"language" default:"english"`
	PageSize  uint   `mapstructure:"page_size" default:"5000"`
	// CacheTTLSeconds enables the in-memory response cache for inventory pages when positive.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"0"`
}

// Config holds all configuration for the client.
type Config struct {
	Transport TransportConfig `mapstructure:"transport"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Log       logging.Config  `mapstructure:"log"`
}

// Load loads configuration from environment variables and the .env file in path, if there is one.
func Load(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." || path == "" {
		envPath = ".env"
	}

	// a missing .env is fine, the environment alone is enough
	_ = godotenv.Overload(envPath)

	v := viper.New()

	bindValues(v, Config{}, "")

	// TRANSPORT_RETRY_MAX -> transport.retry_max
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, eris.Wrap(err, "failed to decode configuration")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	communityURL, err := url.Parse(c.Transport.CommunityURL)
	if err != nil {
		return eris.Wrapf(err, "invalid transport.community_url %q", c.Transport.CommunityURL)
	}
	if communityURL.Scheme != "https" && communityURL.Scheme != "http" {
		return eris.Errorf("transport.community_url %q must be an http(s) url", c.Transport.CommunityURL)
	}
	if c.Transport.WebAPIURL != "" {
		webAPIURL, err := url.Parse(c.Transport.WebAPIURL)
		if err != nil || (webAPIURL.Scheme != "https" && webAPIURL.Scheme != "http") {
			return eris.Errorf("transport.web_api_url %q must be an http(s) url", c.Transport.WebAPIURL)
		}
	}
	if c.Transport.TimeoutSeconds < 0 {
		return eris.New("transport.timeout_seconds must not be negative")
	}
	if c.Transport.RetryMax < 0 {
		return eris.New("transport.retry_max must not be negative")
	}
	if c.Inventory.PageSize > community.MaxPageSize {
		return eris.Errorf("inventory.page_size must be at most %d", community.MaxPageSize)
	}
	if c.Inventory.CacheTTLSeconds < 0 {
		return eris.New("inventory.cache_ttl_seconds must not be negative")
	}
	return nil
}

// TransportOptions converts the transport section. A response cache is attached only when inventory caching
// is enabled.
func (c *Config) TransportOptions(logger *zap.Logger) api.HttpTransportOptions {
	options := api.HttpTransportOptions{
		CommunityURL:       c.Transport.CommunityURL,
		UserAgent:          c.Transport.UserAgent,
		Timeout:            time.Duration(c.Transport.TimeoutSeconds) * time.Second,
		MaxRedirects:       c.Transport.MaxRedirects,
		RetryMax:           c.Transport.RetryMax,
		InsecureSkipVerify: c.Transport.InsecureSkipVerify,
		Logger:             logger,
	}

	if c.Inventory.CacheTTLSeconds > 0 {
		options.ResponseCache = api.NewMemoryCache(api.DefaultMemoryCacheSize, time.Duration(c.Inventory.CacheTTLSeconds)*time.Second)
	}

	return options
}

func (c *Config) AuthOptions(logger *zap.Logger) auth.Options {
	return auth.Options{
		CommunityURL: c.Transport.CommunityURL,
		Logger:       logger,
	}
}

func (c *Config) TwoFactorOptions(logger *zap.Logger) twofactor.Options {
	return twofactor.Options{
		WebAPIURL: c.Transport.WebAPIURL,
		Logger:    logger,
	}
}

func (c *Config) InventoryOptions(logger *zap.Logger) community.Options {
	return community.Options{
		CommunityURL: c.Transport.CommunityURL,
		AppID:        c.Inventory.AppID,
		ContextID:    c.Inventory.ContextID,
		Language:     c.Inventory.Language,
		PageSize:     c.Inventory.PageSize,
		CacheTTL:     time.Duration(c.Inventory.CacheTTLSeconds) * time.Second,
		Logger:       logger,
	}
}

// bindValues registers every mapstructure key with its default tag so AutomaticEnv can find it.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
