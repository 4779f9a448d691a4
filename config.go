package imoji

import (
	"net/url"
	"time"

	"github.com/dmitrymomot/imoji/pkg/cache"
	"github.com/dmitrymomot/imoji/pkg/config"
	"github.com/dmitrymomot/imoji/pkg/storage"
)

// Config holds the Session settings. Field tags drive loading from the
// environment (LoadConfig) and from YAML (LoadConfigFile).
type Config struct {
	ClientID string `env:"IMOJI_CLIENT_ID" yaml:"client_id"`
	APIToken string `env:"IMOJI_API_TOKEN" yaml:"api_token"` // client secret
	APIURL   string `env:"IMOJI_API_URL" envDefault:"https://api.imoji.io/v2" yaml:"api_url"`

	HTTPTimeout         time.Duration `env:"IMOJI_HTTP_TIMEOUT" envDefault:"15s" yaml:"http_timeout"`
	MaxRetries          int           `env:"IMOJI_MAX_RETRIES" envDefault:"2" yaml:"max_retries"`
	DownloadConcurrency int           `env:"IMOJI_DOWNLOAD_CONCURRENCY" envDefault:"4" yaml:"download_concurrency"`

	// RateLimit caps API requests per second; zero disables pacing.
	RateLimit int `env:"IMOJI_RATE_LIMIT" yaml:"rate_limit"`
	RateBurst int `env:"IMOJI_RATE_BURST" envDefault:"10" yaml:"rate_burst"`

	ContentCacheSize int           `env:"IMOJI_CONTENT_CACHE_SIZE" envDefault:"128" yaml:"content_cache_size"`
	ContentCacheTTL  time.Duration `env:"IMOJI_CONTENT_CACHE_TTL" yaml:"content_cache_ttl"`
	RenderCacheTTL   time.Duration `env:"IMOJI_RENDER_CACHE_TTL" envDefault:"24h" yaml:"render_cache_ttl"`

	// CallbackScheme is the URL scheme the host application registered for
	// handshake callbacks. Empty disables user synchronization.
	CallbackScheme string        `env:"IMOJI_CALLBACK_SCHEME" yaml:"callback_scheme"`
	CompanionAppID string        `env:"IMOJI_COMPANION_APP_ID" envDefault:"io.imoji.app" yaml:"companion_app_id"`
	AuthorizeURL   string        `env:"IMOJI_AUTHORIZE_URL" envDefault:"imoji://authorize" yaml:"authorize_url"`
	HandshakeTTL   time.Duration `env:"IMOJI_HANDSHAKE_TTL" envDefault:"10m" yaml:"handshake_ttl"`

	// Optional explicit storage; both empty means the temporary policy.
	CachePath      string `env:"IMOJI_CACHE_PATH" yaml:"cache_path"`
	PersistentPath string `env:"IMOJI_PERSISTENT_PATH" yaml:"persistent_path"`

	S3    storage.S3Config  `yaml:"s3"`
	Redis cache.RedisConfig `yaml:"redis"`
}

// DefaultConfig returns a Config with every default applied and no
// credentials.
func DefaultConfig() Config {
	var cfg Config
	// Defaults are static tags; parsing an empty environment cannot fail.
	_ = config.Parse(&cfg, config.WithEnvironment(map[string]string{}))
	return cfg
}

// LoadConfig reads a Config from the process environment and optional
// .env files.
func LoadConfig(opts ...config.Option) (Config, error) {
	var cfg Config
	if err := config.Parse(&cfg, opts...); err != nil {
		return Config{}, newError(CodeInvalidArgument, "load config", err)
	}
	return cfg, nil
}

// LoadConfigFile reads a Config from a YAML file with environment overrides.
func LoadConfigFile(path string, opts ...config.Option) (Config, error) {
	var cfg Config
	if err := config.LoadFile(path, &cfg, opts...); err != nil {
		return Config{}, newError(CodeInvalidArgument, "load config", err)
	}
	return cfg, nil
}

// Validate checks the fields a Session cannot work without.
func (c Config) Validate() error {
	const op = "config"

	switch {
	case c.ClientID == "":
		return invalidArgument(op, "client id is required")
	case c.APIToken == "":
		return invalidArgument(op, "api token is required")
	case c.HTTPTimeout <= 0:
		return invalidArgument(op, "http timeout must be positive")
	case c.MaxRetries < 0:
		return invalidArgument(op, "max retries must not be negative")
	case c.DownloadConcurrency <= 0:
		return invalidArgument(op, "download concurrency must be positive")
	case c.RateLimit < 0, c.RateBurst < 0:
		return invalidArgument(op, "rate limit must not be negative")
	case c.ContentCacheSize <= 0:
		return invalidArgument(op, "content cache size must be positive")
	case c.ContentCacheTTL < 0, c.RenderCacheTTL < 0, c.HandshakeTTL < 0:
		return invalidArgument(op, "durations must not be negative")
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalidArgument(op, "api url %q is not an absolute http(s) url", c.APIURL)
	}
	if c.CallbackScheme != "" && c.CompanionAppID == "" {
		return invalidArgument(op, "companion app id is required for synchronization")
	}
	return nil
}

// StoragePolicy returns the policy described by CachePath and
// PersistentPath, or the temporary policy when both are empty.
func (c Config) StoragePolicy() (StoragePolicy, error) {
	if c.CachePath == "" && c.PersistentPath == "" {
		return TemporaryDiskStoragePolicy(), nil
	}
	return NewStoragePolicy(c.CachePath, c.PersistentPath)
}
