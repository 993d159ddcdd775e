// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianGraphImport/pkg/logging"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("loglevel", validateLogLevel)
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := logging.ParseLevel(fl.Field().String())
	return err == nil
}

// DefaultPath returns ~/.aleutian/graphimport.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".aleutian", "graphimport.yaml"), nil
}

// Load reads the configuration.
//
// Description:
//
//	With an empty path the default location is used and a missing file
//	yields DefaultConfig. An explicit path must exist. Environment
//	overrides are applied and the result is validated.
//
// Inputs:
//
//	path - Config file path, or "" for DefaultPath().
//
// Outputs:
//
//	*Config - The loaded configuration.
//	error - Read, parse or ErrInvalidConfig failures.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(bytes.NewReader(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides values from the environment. Empty variables are
// ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvPassword); v != "" {
		c.Remote.Password = v
	}
	if v := getenv(EnvTraceExporter); v != "" {
		c.Telemetry.TraceExporter = v
	}
	if v := getenv(EnvMetricExporter); v != "" {
		c.Telemetry.MetricExporter = v
	}
	if v := getenv(EnvOTLPEndpoint); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WriteDefault writes DefaultConfig to path, creating parent directories.
// An existing file is left untouched and reported with os.ErrExist.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return errors.Join(err, f.Close())
}

// Marshal renders c as YAML. The password is never included.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
