// Package config loads typed configuration from environment variables,
// .env files and YAML files.
//
// It wraps `github.com/joho/godotenv`, `github.com/caarlos0/env/v11` and
// `gopkg.in/yaml.v3`:
//
//   - Load parses the process environment into a struct and caches the
//     result per type. A failed parse is retried on the next call.
//   - Parse does the same without the cache and accepts options
//     (extra .env files, an explicit environment map, a tag prefix).
//   - LoadFile reads a YAML file and lets the environment override it.
//
// # Usage
//
//	type ClientConfig struct {
//	    ClientID string        `env:"IMOJI_CLIENT_ID" yaml:"client_id"`
//	    Timeout  time.Duration `env:"IMOJI_HTTP_TIMEOUT" envDefault:"15s" yaml:"http_timeout"`
//	}
//
//	var cfg ClientConfig
//	if err := config.LoadFile("imoji.yaml", &cfg); err != nil {
//	    log.Fatalf("loading config: %v", err)
//	}
//
// # Error Handling
//
//   - `ErrParsingConfig`  – env vars could not be parsed into the struct.
//   - `ErrLoadingEnvFile` – an explicit .env file could not be loaded.
//   - `ErrReadingFile`    – a YAML file could not be read or decoded.
//   - `ErrNilPointer`     – nil pointer passed to a loader.
//
// Use `ResetCache()` to clear the typed cache between tests.
package config
