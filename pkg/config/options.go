package config

import "github.com/caarlos0/env/v11"

type options struct {
	envFiles    []string
	environment map[string]string
	prefix      string
}

// Option adjusts how a single Parse or LoadFile call reads the environment.
type Option func(*options)

// WithEnvFiles loads the given .env files into the process environment
// before parsing. Missing files are an error.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) {
		o.envFiles = append(o.envFiles, paths...)
	}
}

// WithEnvironment parses from the given map instead of the process
// environment. Useful in tests running in parallel.
func WithEnvironment(m map[string]string) Option {
	return func(o *options) {
		o.environment = m
	}
}

// WithPrefix prepends prefix to every env tag.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) envOptions() env.Options {
	return env.Options{
		Environment: o.environment,
		Prefix:      o.prefix,
	}
}
