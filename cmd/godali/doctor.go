package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/rickchristie/dali"
	"github.com/rickchristie/dali/internal/meta"
)

func runDoctor() error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to configuration file (.json, .yaml or .yml)")
	fs.Parse(os.Args[2:])

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, *configPath)
}

func doctor(w io.Writer, useColor bool, configPath string) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "%s %s\n\n", meta.Name, meta.Version)

	// Load and validate config
	config, ok := doctorValidateConfig(w, useColor, configPath)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'godali doctor' again.")
		return nil
	}

	// Print agent connection snippets
	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config)
	return nil
}

// doctorValidateConfig loads and validates the config file, printing check results.
// Returns the parsed config and true if all checks passed.
func doctorValidateConfig(w io.Writer, useColor bool, configPath string) (*dali.ServerConfig, bool) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file readable (%s)", configPath))
		return nil, false
	}
	printCheck(w, useColor, true, fmt.Sprintf("Config file readable (%s)", configPath))

	config, err := dali.ParseServerConfig(configPath, data)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file parses: %v", err))
		return nil, false
	}
	printCheck(w, useColor, true, "Config file parses")

	allPassed := true
	for _, check := range configChecks {
		for _, r := range check(config) {
			printCheck(w, useColor, r.ok, r.msg)
			allPassed = allPassed && r.ok
		}
	}
	return config, allPassed
}

// checkResult is one line of doctor output.
type checkResult struct {
	ok  bool
	msg string
}

func passed(format string, args ...any) checkResult {
	return checkResult{ok: true, msg: fmt.Sprintf(format, args...)}
}

func failed(format string, args ...any) checkResult {
	return checkResult{ok: false, msg: fmt.Sprintf(format, args...)}
}

// configChecks run in order against a parsed config.
var configChecks = []func(*dali.ServerConfig) []checkResult{
	checkConnection,
	checkServer,
	checkPatterns,
	checkHookTimeout,
}

// checkConnection reports where queries will be sent and under which scope.
func checkConnection(config *dali.ServerConfig) []checkResult {
	var results []checkResult
	conn := config.Connection
	if conn.Endpoint != "" {
		if err := dali.ValidateURI(conn.Endpoint); err != nil {
			results = append(results, failed("connection.endpoint %s: %v", conn.Endpoint, err))
		} else {
			results = append(results, passed("connection endpoint (%s)", conn.Endpoint))
		}
	} else {
		client, err := conn.ClientBuilder("", "").Build()
		if err != nil {
			results = append(results, failed("connection settings: %v", err))
		} else {
			results = append(results, passed("connection endpoint (%s)", client.SQLEndpoint()))
		}
	}

	ns, db := conn.Namespace, conn.Database
	if ns == "" || db == "" {
		results = append(results, passed("connection.namespace/database unset, using defaults (%s/%s)", dali.DefaultNamespace, dali.DefaultDatabase))
	} else {
		results = append(results, passed("connection.namespace/database are set (%s/%s)", ns, db))
	}
	return results
}

// checkServer applies the same validation serve does before listening.
func checkServer(config *dali.ServerConfig) []checkResult {
	s := config.Server
	if err := validateServerSettings(s); err != nil {
		return []checkResult{failed("%v", err)}
	}
	results := []checkResult{passed("MCP endpoint on :%d/mcp", s.Port)}
	if s.HealthCheckEnabled {
		results = append(results, passed("health check on %s", s.HealthCheckPath))
	}
	if s.MetricsEnabled {
		path := s.MetricsPath
		if path == "" {
			path = defaultMetricsPath
		}
		results = append(results, passed("metrics on %s", path))
	}
	return results
}

// labeledPattern is a regex from the config with the key it came from.
type labeledPattern struct {
	key     string
	pattern string
}

// configPatterns collects every regex the bridge compiles at startup.
func configPatterns(config *dali.ServerConfig) []labeledPattern {
	var out []labeledPattern
	for i, r := range config.Query.TimeoutRules {
		out = append(out, labeledPattern{fmt.Sprintf("query.timeout_rules[%d]", i), r.Pattern})
	}
	for i, r := range config.ErrorPrompts {
		out = append(out, labeledPattern{fmt.Sprintf("error_prompts[%d]", i), r.Pattern})
	}
	for i, r := range config.Sanitization {
		out = append(out, labeledPattern{fmt.Sprintf("sanitization[%d]", i), r.Pattern})
	}
	for i, h := range config.ServerHooks.BeforeQuery {
		out = append(out, labeledPattern{fmt.Sprintf("server_hooks.before_query[%d]", i), h.Pattern})
	}
	for i, h := range config.ServerHooks.AfterQuery {
		out = append(out, labeledPattern{fmt.Sprintf("server_hooks.after_query[%d]", i), h.Pattern})
	}
	return out
}

func checkPatterns(config *dali.ServerConfig) []checkResult {
	patterns := configPatterns(config)
	var results []checkResult
	for _, p := range patterns {
		if _, err := regexp.Compile(p.pattern); err != nil {
			results = append(results, failed("%s regex compiles: %v", p.key, err))
		}
	}
	if len(results) == 0 {
		results = append(results, passed("All %d regex patterns compile", len(patterns)))
	}
	return results
}

// checkHookTimeout mirrors the panic New raises for command hooks without a
// default timeout.
func checkHookTimeout(config *dali.ServerConfig) []checkResult {
	hooks := config.ServerHooks
	if len(hooks.BeforeQuery) == 0 && len(hooks.AfterQuery) == 0 {
		return nil
	}
	if config.DefaultHookTimeoutSeconds <= 0 {
		return []checkResult{failed("default_hook_timeout_seconds is > 0 (required when server_hooks are set)")}
	}
	return []checkResult{passed("default_hook_timeout_seconds is > 0 (%d)", config.DefaultHookTimeoutSeconds)}
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	mark, color := "✓", "32"
	if !pass {
		mark, color = "✗", "31"
	}
	if useColor {
		mark = "\033[" + color + "m" + mark + "\033[0m"
	}
	fmt.Fprintf(w, "  %s %s\n", mark, msg)
}

// printAgentSnippets prints how to point an MCP client at the server: the
// Claude Code command and the mcpServers JSON most clients read.
func printAgentSnippets(w io.Writer, useColor bool, config *dali.ServerConfig) {
	url := fmt.Sprintf("http://localhost:%d/mcp", config.Server.Port)
	heading := func(title string) {
		if useColor {
			title = "\033[1;36m" + title + "\033[0m"
		}
		fmt.Fprintf(w, "%s\n\n", title)
	}

	heading("Agent Connection Snippets")

	fmt.Fprintf(w, "  Claude Code:\n\n")
	fmt.Fprintf(w, "    claude mcp add --transport http surrealdb %s\n\n", url)

	fmt.Fprintf(w, "  mcpServers JSON (.mcp.json and compatible clients):\n\n")
	snippet := map[string]any{
		"mcpServers": map[string]any{
			"surrealdb": map[string]string{"type": "http", "url": url},
		},
	}
	data, _ := json.MarshalIndent(snippet, "    ", "  ")
	fmt.Fprintf(w, "    %s\n", data)
}
