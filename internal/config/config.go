// Package config loads and validates the server configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/skedyul/toolserver/pkg/types"
	"github.com/skedyul/toolserver/pkg/version"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultServerName is used when no configuration file is present.
const DefaultServerName = "toolserver"

// ErrConfigNotFound is returned by LoadServerConfig when the configuration file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// ServerConfig and Metadata are the public configuration types; this package only loads them.
type (
	ServerConfig = types.ServerConfig
	Metadata     = types.ServerMetadata
)

// DefaultServerConfig returns the configuration used when no configuration file is present.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ComputeLayer: types.RuntimeDedicated,
		Metadata: Metadata{
			Name:    DefaultServerName,
			Version: version.GetVersion(),
		},
	}
}

// LoadServerConfig reads a YAML configuration file from fsys and validates it.
// It returns an error wrapping ErrConfigNotFound if the file does not exist.
func LoadServerConfig(fsys afero.Fs, path string) (*ServerConfig, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	c, err := ParseServerConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return c, nil
}

// ParseServerConfig decodes and validates a YAML configuration document.
// Unknown keys are rejected.
func ParseServerConfig(data []byte) (*ServerConfig, error) {
	var c ServerConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty document is left to validation, which reports the missing fields
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
