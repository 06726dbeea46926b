package dali

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the base configuration used by library mode via New().
type Config struct {
	Protection                ProtectionConfig   `json:"protection" yaml:"protection"`
	Query                     QueryConfig        `json:"query" yaml:"query"`
	ErrorPrompts              []ErrorPromptRule  `json:"error_prompts" yaml:"error_prompts"`
	Sanitization              []SanitizationRule `json:"sanitization" yaml:"sanitization"`
	ReadOnly                  bool               `json:"read_only" yaml:"read_only"`
	MaxConcurrency            int                `json:"max_concurrency" yaml:"max_concurrency"`
	DefaultHookTimeoutSeconds int                `json:"default_hook_timeout_seconds" yaml:"default_hook_timeout_seconds"`

	// Library mode: Go function hooks (not serializable).
	// Mutually exclusive with ServerConfig.ServerHooks.
	BeforeQueryHooks []BeforeQueryHookEntry `json:"-" yaml:"-"`
	AfterQueryHooks  []AfterQueryHookEntry  `json:"-" yaml:"-"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config      `yaml:",inline"`
	Connection  ConnectionConfig  `json:"connection" yaml:"connection"`
	Server      ServerSettings    `json:"server" yaml:"server"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	ServerHooks ServerHooksConfig `json:"server_hooks" yaml:"server_hooks"`
}

// ConnectionConfig holds database connection parameters used by CLI mode.
// Credentials are never stored; the CLI reads them from the environment or
// prompts for them.
type ConnectionConfig struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	Namespace      string `json:"namespace" yaml:"namespace"`
	Database       string `json:"database" yaml:"database"`
	Endpoint       string `json:"endpoint" yaml:"endpoint"` // full /sql URL, overrides host/port when set
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ServerSettings holds HTTP server settings for CLI mode.
type ServerSettings struct {
	Port               int    `json:"port" yaml:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled" yaml:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path" yaml:"health_check_path"`
	MetricsEnabled     bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsPath        string `json:"metrics_path" yaml:"metrics_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
	Output string `json:"output" yaml:"output"` // stdout, stderr, or file path
}

// ProtectionConfig controls which SurrealQL statements are allowed.
// All fields default to false (blocked). Set to true to allow.
type ProtectionConfig struct {
	AllowDefine             bool `json:"allow_define" yaml:"allow_define"`
	AllowRemove             bool `json:"allow_remove" yaml:"allow_remove"`
	AllowAlter              bool `json:"allow_alter" yaml:"allow_alter"`
	AllowDeleteWithoutWhere bool `json:"allow_delete_without_where" yaml:"allow_delete_without_where"`
	AllowUpdateWithoutWhere bool `json:"allow_update_without_where" yaml:"allow_update_without_where"`
	AllowUse                bool `json:"allow_use" yaml:"allow_use"`
	AllowKill               bool `json:"allow_kill" yaml:"allow_kill"`
	AllowLive               bool `json:"allow_live" yaml:"allow_live"`
	AllowTransactions       bool `json:"allow_transactions" yaml:"allow_transactions"`
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	DefaultTimeoutSeconds       int           `json:"default_timeout_seconds" yaml:"default_timeout_seconds"`
	ListTablesTimeoutSeconds    int           `json:"list_tables_timeout_seconds" yaml:"list_tables_timeout_seconds"`
	DescribeTableTimeoutSeconds int           `json:"describe_table_timeout_seconds" yaml:"describe_table_timeout_seconds"`
	MaxQueryLength              int           `json:"max_query_length" yaml:"max_query_length"`
	MaxResultLength             int           `json:"max_result_length" yaml:"max_result_length"`
	TimeoutRules                []TimeoutRule `json:"timeout_rules" yaml:"timeout_rules"`
}

// TimeoutRule maps a query pattern to a specific timeout duration.
type TimeoutRule struct {
	Pattern        string `json:"pattern" yaml:"pattern"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ErrorPromptRule maps an error message pattern to a guidance message.
type ErrorPromptRule struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Message string `json:"message" yaml:"message"`
}

// SanitizationRule defines a regex-based value sanitization rule.
type SanitizationRule struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	Replacement string `json:"replacement" yaml:"replacement"`
	Description string `json:"description" yaml:"description"`
}

// ServerHooksConfig holds command-based hook configuration for CLI mode.
type ServerHooksConfig struct {
	BeforeQuery []HookEntry `json:"before_query" yaml:"before_query"`
	AfterQuery  []HookEntry `json:"after_query" yaml:"after_query"`
}

// HookEntry defines a single command-based hook.
type HookEntry struct {
	Pattern        string   `json:"pattern" yaml:"pattern"`
	Command        string   `json:"command" yaml:"command"`
	Args           []string `json:"args" yaml:"args"`
	TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// BeforeQueryHook can inspect and modify queries before execution.
type BeforeQueryHook interface {
	Run(ctx context.Context, query string) (string, error)
}

// AfterQueryHook can inspect and modify results after execution.
type AfterQueryHook interface {
	Run(ctx context.Context, result *QueryOutput) (*QueryOutput, error)
}

// BeforeQueryHookEntry wraps a BeforeQueryHook with metadata.
type BeforeQueryHookEntry struct {
	Name    string
	Timeout time.Duration
	Hook    BeforeQueryHook
}

// AfterQueryHookEntry wraps an AfterQueryHook with metadata.
type AfterQueryHookEntry struct {
	Name    string
	Timeout time.Duration
	Hook    AfterQueryHook
}

// isYAMLPath reports whether path has a .yaml or .yml extension.
func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ParseServerConfig decodes a server config file. Files ending in .yaml or
// .yml are parsed as YAML; anything else as JSON.
func ParseServerConfig(path string, data []byte) (*ServerConfig, error) {
	var config ServerConfig
	if isYAMLPath(path) {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
		return &config, nil
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config %s: %w", path, err)
	}
	return &config, nil
}

// MarshalServerConfig encodes config in the format ParseServerConfig expects
// for path.
func MarshalServerConfig(path string, config *ServerConfig) ([]byte, error) {
	if isYAMLPath(path) {
		data, err := yaml.Marshal(config)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML config: %w", err)
		}
		return data, nil
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON config: %w", err)
	}
	return append(data, '\n'), nil
}

// ClientBuilder returns a builder seeded from the connection settings.
// Zero values keep the builder defaults; credentials are supplied by the caller.
func (c ConnectionConfig) ClientBuilder(username, password string) *ClientBuilder {
	b := NewClientBuilder()
	if c.Host != "" {
		b.Host(c.Host)
	}
	if c.Port > 0 {
		b.Port(c.Port)
	}
	if c.Namespace != "" {
		b.Namespace(c.Namespace)
	}
	if c.Database != "" {
		b.Database(c.Database)
	}
	if username != "" {
		b.Username(username)
	}
	if password != "" {
		b.Password(password)
	}
	if c.TimeoutSeconds > 0 {
		b.Timeout(seconds(c.TimeoutSeconds))
	}
	return b
}
