// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "framingbot/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// NotionConfig holds settings for the Notion integration.
type NotionConfig struct {
	HTTPConfig `yaml:",inline"`

	// Token is the Notion integration token shared by both databases.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// FramingDBID is the framing-results database (write target).
	FramingDBID string `json:"framing_db_id" yaml:"framing_db_id"`

	// KeywordDBID is the keywords database (read source).
	KeywordDBID string `json:"keyword_db_id" yaml:"keyword_db_id"`
}

// StoreConfig holds settings for the session store.
type StoreConfig struct {
	// DataDir is the base directory for persisted data (contains framingbot.db).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// StaticDir is the directory holding the chat frontend. Empty disables
	// static serving.
	StaticDir string `json:"static_dir" yaml:"static_dir"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	AI     AIConfig     `json:"ai" yaml:"ai"`
	Notion NotionConfig `json:"notion" yaml:"notion"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Server ServerConfig `json:"server" yaml:"server"`
}
