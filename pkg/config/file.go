package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// LoadFile decodes the YAML file at path into v and applies the environment
// on top of it. Precedence is envDefault < file < environment.
//
// Fields tagged required must still be present in the environment, so
// file-backed configs should validate presence themselves.
func LoadFile[T any](path string, v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrReadingFile, err)
	}

	o := newOptions(opts)
	if len(o.envFiles) > 0 {
		if err := LoadEnv(o.envFiles...); err != nil {
			return err
		}
	}

	// Defaults and environment first, then the file over them.
	if err := env.ParseWithOptions(v, o.envOptions()); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if err := DecodeYAML(data, v); err != nil {
		return err
	}

	// Variables that are actually set win over the file.
	setOnly := o.envOptions()
	setOnly.DefaultValueTagName = noDefaultsTag
	if err := env.ParseWithOptions(v, setOnly); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// noDefaultsTag names a struct tag no config carries, so a parse with it
// applies only variables present in the environment.
const noDefaultsTag = "envDefaultUnused"

// DecodeYAML decodes a YAML document into v, rejecting unknown fields.
// An empty document leaves v unchanged.
func DecodeYAML[T any](data []byte, v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(ErrReadingFile, fmt.Errorf("decode yaml: %w", err))
	}
	return nil
}
