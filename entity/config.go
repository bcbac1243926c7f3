// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package entity

import (
	"errors"
	"strings"
)

// Backend selects the Recognizer implementation.
type Backend string

const (
	// BackendProse runs a prose model in process. The bundled model labels
	// only PERSON and GPE; set ModelPath to a model trained on the full
	// label set, or use BackendOpenAI, when organizations and the other
	// categories matter.
	BackendProse Backend = "prose"
	// BackendOpenAI asks an OpenAI-compatible chat model.
	BackendOpenAI Backend = "openai"
	// BackendNone disables entity extraction.
	BackendNone Backend = "none"
)

// Config holds configuration for loading a Recognizer.
type Config struct {
	// Backend selects the recognizer implementation.
	// Default: "prose"
	Backend Backend

	// ModelPath is a directory holding a prose model saved with Model.Write.
	// Empty selects the model bundled with prose, which labels only PERSON
	// and GPE.
	ModelPath string

	// Host is the base URL of the OpenAI-compatible API used by the openai backend.
	// Example: "http://localhost:11434/v1"
	Host string

	// Model is the chat model identifier used by the openai backend.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	Model string

	// Token is the API token for the openai backend. Local servers accept "none".
	Token string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend sets the recognizer backend.
func WithBackend(b Backend) ConfigOption {
	return func(c *Config) {
		c.Backend = b
	}
}

// WithModelPath sets the prose model directory.
func WithModelPath(path string) ConfigOption {
	return func(c *Config) {
		c.ModelPath = path
	}
}

// WithHost sets the OpenAI-compatible API host.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the chat model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithToken sets the API token.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// DefaultConfig returns a Config that uses the bundled prose model.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendProse,
		Host:    "http://localhost:11434/v1",
		Model:   "qwen2.5:3b",
		Token:   "none",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBackend(BackendOpenAI),
//	    WithHost("http://localhost:11434"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts the configuration in canonical form: the backend name is
// lowercased and the host gains the /v1 suffix OpenAI-compatible servers expect.
func (c *Config) Normalize() {
	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if c.Backend == "" {
		c.Backend = BackendProse
	}
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.Token == "" {
		c.Token = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendProse, BackendNone:
		return nil
	case BackendOpenAI:
		if c.Host == "" {
			return errors.New("entity config: Host is required for the openai backend")
		}
		if c.Model == "" {
			return errors.New("entity config: Model is required for the openai backend")
		}
		return nil
	default:
		return errors.New("entity config: unknown backend " + string(c.Backend))
	}
}
