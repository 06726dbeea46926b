// Package configure implements the interactive configuration wizard behind
// `godali configure`.
package configure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rickchristie/dali"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// Run runs the interactive configuration wizard against configPath. Paths
// ending in .yaml or .yml are written as YAML, anything else as JSON.
func Run(configPath string) error {
	return run(configPath, os.Stdin, os.Stderr)
}

func run(configPath string, input io.Reader, output io.Writer) error {
	cfg, isNew := loadExisting(configPath)
	if isNew {
		applyDefaults(cfg)
	}
	p := &prompter{scanner: bufio.NewScanner(input), output: output, isNew: isNew}

	fmt.Fprintf(output, "godali configuration wizard\n")
	fmt.Fprintf(output, "Config file: %s\n", configPath)

	for _, sec := range settingSections(cfg) {
		fmt.Fprintf(output, "\n=== %s ===\n", sec.title)
		for _, s := range sec.settings {
			p.ask(s)
		}
	}

	fmt.Fprintf(output, "\n=== Timeout Rules ===\n")
	cfg.Query.TimeoutRules = editList(p, timeoutRuleList, cfg.Query.TimeoutRules)
	fmt.Fprintf(output, "\n=== Error Prompts ===\n")
	cfg.ErrorPrompts = editList(p, errorPromptList, cfg.ErrorPrompts)
	fmt.Fprintf(output, "\n=== Sanitization Rules ===\n")
	cfg.Sanitization = editList(p, sanitizationList, cfg.Sanitization)
	fmt.Fprintf(output, "\n=== Server Hooks: Before Query ===\n")
	cfg.ServerHooks.BeforeQuery = editList(p, hookList("before_query hook"), cfg.ServerHooks.BeforeQuery)
	fmt.Fprintf(output, "\n=== Server Hooks: After Query ===\n")
	cfg.ServerHooks.AfterQuery = editList(p, hookList("after_query hook"), cfg.ServerHooks.AfterQuery)

	if err := writeConfig(configPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(output, "\nConfiguration saved to %s\n", configPath)
	return nil
}

// setting is one scalar config value the wizard asks for. value points into
// the config being edited and is a *string, *int or *bool.
type setting struct {
	key     string
	hint    string
	value   any
	min     int                // lower bound for *int values
	options []string           // allowed values for *string, if set
	check   func(string) error // extra validation for *string
	clear   bool               // "-" empties a *string
}

type section struct {
	title    string
	settings []setting
}

func text(key, hint string, v *string) setting { return setting{key: key, hint: hint, value: v} }
func count(key, hint string, v *int, lowest int) setting {
	return setting{key: key, hint: hint, value: v, min: lowest}
}
func flag(key string, v *bool) setting { return setting{key: key, value: v} }
func choice(key string, v *string, options []string) setting {
	return setting{key: key, value: v, options: options}
}

// settingSections lists every scalar setting of cfg, in prompt order.
func settingSections(cfg *dali.ServerConfig) []section {
	conn, srv, q, prot := &cfg.Connection, &cfg.Server, &cfg.Query, &cfg.Protection

	endpoint := text("connection.endpoint", "full /sql URL, empty = http://host:port/sql, - to clear", &conn.Endpoint)
	endpoint.check = dali.ValidateURI
	endpoint.clear = true

	protection := []struct {
		name  string
		allow *bool
	}{
		{"define", &prot.AllowDefine},
		{"remove", &prot.AllowRemove},
		{"alter", &prot.AllowAlter},
		{"delete_without_where", &prot.AllowDeleteWithoutWhere},
		{"update_without_where", &prot.AllowUpdateWithoutWhere},
		{"use", &prot.AllowUse},
		{"kill", &prot.AllowKill},
		{"live", &prot.AllowLive},
		{"transactions", &prot.AllowTransactions},
	}
	protSettings := make([]setting, len(protection))
	for i, rule := range protection {
		protSettings[i] = flag("protection.allow_"+rule.name, rule.allow)
	}

	return []section{
		{"Connection", []setting{
			text("connection.host", "", &conn.Host),
			count("connection.port", "must be > 0", &conn.Port, 1),
			text("connection.namespace", "sent as the NS header", &conn.Namespace),
			text("connection.database", "sent as the DB header", &conn.Database),
			endpoint,
			count("connection.timeout_seconds", "seconds, 0 = no client timeout", &conn.TimeoutSeconds, 0),
		}},
		{"Server", []setting{
			count("server.port", "must be > 0", &srv.Port, 1),
			flag("server.health_check_enabled", &srv.HealthCheckEnabled),
			text("server.health_check_path", "e.g. /healthz, required when health_check_enabled is true", &srv.HealthCheckPath),
			flag("server.metrics_enabled", &srv.MetricsEnabled),
			text("server.metrics_path", "Prometheus scrape path", &srv.MetricsPath),
		}},
		{"Logging", []setting{
			choice("logging.level", &cfg.Logging.Level, logLevels),
			choice("logging.format", &cfg.Logging.Format, logFormats),
			text("logging.output", "stdout, stderr, or file path", &cfg.Logging.Output),
		}},
		{"Query", []setting{
			count("query.default_timeout_seconds", "seconds, must be > 0", &q.DefaultTimeoutSeconds, 1),
			count("query.list_tables_timeout_seconds", "seconds, must be > 0", &q.ListTablesTimeoutSeconds, 1),
			count("query.describe_table_timeout_seconds", "seconds, must be > 0", &q.DescribeTableTimeoutSeconds, 1),
			count("query.max_query_length", "bytes, must be > 0", &q.MaxQueryLength, 1),
			count("query.max_result_length", "characters, must be > 0", &q.MaxResultLength, 1),
		}},
		{"General", []setting{
			flag("read_only", &cfg.ReadOnly),
			count("max_concurrency", "concurrent queries, must be > 0", &cfg.MaxConcurrency, 1),
			count("default_hook_timeout_seconds", "seconds, must be > 0 when hooks are configured", &cfg.DefaultHookTimeoutSeconds, 0),
		}},
		{"Protection", protSettings},
	}
}

// set parses input into the setting's value.
func (s setting) set(input string) error {
	switch v := s.value.(type) {
	case *string:
		if s.clear && input == "-" {
			*v = ""
			return nil
		}
		if len(s.options) > 0 && !slices.Contains(s.options, input) {
			return fmt.Errorf("must be one of: %s", strings.Join(s.options, ", "))
		}
		if s.check != nil {
			if err := s.check(input); err != nil {
				return err
			}
		}
		*v = input
	case *int:
		n, err := strconv.Atoi(input)
		if err != nil {
			return errors.New("not an integer")
		}
		if n < s.min {
			return fmt.Errorf("must be >= %d", s.min)
		}
		*v = n
	case *bool:
		b, ok := parseYesNo(input)
		if !ok {
			return errors.New("use true/false/yes/no")
		}
		*v = b
	default:
		return fmt.Errorf("unsupported setting type %T", s.value)
	}
	return nil
}

// current formats the setting's value for the prompt.
func (s setting) current() string {
	switch v := s.value.(type) {
	case *string:
		return strconv.Quote(*v)
	case *int:
		return strconv.Itoa(*v)
	case *bool:
		return strconv.FormatBool(*v)
	}
	return ""
}

func parseYesNo(input string) (bool, bool) {
	switch strings.ToLower(input) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

// loadExisting reads the config at configPath. A missing file yields an empty
// config and isNew=true; an unparseable file yields an empty config that is
// treated as existing, so the wizard overwrites it.
func loadExisting(configPath string) (*dali.ServerConfig, bool) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return &dali.ServerConfig{}, true
	}
	cfg, err := dali.ParseServerConfig(configPath, data)
	if err != nil {
		return &dali.ServerConfig{}, false
	}
	return cfg, false
}

// applyDefaults fills a new config with the values serve would use anyway.
func applyDefaults(cfg *dali.ServerConfig) {
	client := dali.DefaultClientConfig()
	cfg.Connection.Host = client.Host
	cfg.Connection.Port = client.Port
	cfg.Connection.Namespace = client.Namespace
	cfg.Connection.Database = client.Database
	cfg.Server.Port = 8080
	cfg.Server.MetricsPath = "/metrics"
	cfg.Logging = dali.LoggingConfig{Level: "info", Format: "json", Output: "stderr"}
	cfg.MaxConcurrency = dali.DefaultMaxConcurrency
	cfg.Query.DefaultTimeoutSeconds = dali.DefaultQueryTimeoutSeconds
	cfg.Query.ListTablesTimeoutSeconds = dali.DefaultListTablesTimeoutSeconds
	cfg.Query.DescribeTableTimeoutSeconds = dali.DefaultDescribeTableTimeoutSeconds
	cfg.Query.MaxQueryLength = dali.DefaultMaxQueryLength
	cfg.Query.MaxResultLength = dali.DefaultMaxResultLength
}

func writeConfig(configPath string, cfg *dali.ServerConfig) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	data, err := dali.MarshalServerConfig(configPath, cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", configPath, err)
	}
	return nil
}

// prompter reads answers line by line and writes prompts to output.
type prompter struct {
	scanner *bufio.Scanner
	output  io.Writer
	isNew   bool
}

func (p *prompter) readLine() string {
	if p.scanner.Scan() {
		return strings.TrimSpace(p.scanner.Text())
	}
	return ""
}

// ask prompts for s until the input is empty (keep) or valid.
func (p *prompter) ask(s setting) {
	label := "current"
	if p.isNew {
		label = "default"
	}
	hint := ""
	if s.hint != "" {
		hint = " [" + s.hint + "]"
	}
	options := ""
	if len(s.options) > 0 {
		options = ", options: " + strings.Join(s.options, ", ")
	}
	for {
		fmt.Fprintf(p.output, "%s%s (%s: %s%s): ", s.key, hint, label, s.current(), options)
		input := p.readLine()
		if input == "" {
			return
		}
		if err := s.set(input); err != nil {
			fmt.Fprintf(p.output, "  Invalid value %q: %v, try again.\n", input, err)
			continue
		}
		return
	}
}

// field prompts for one attribute of a new list entry. An empty answer is
// returned as-is unless required is set.
func (p *prompter) field(name string, required bool, check func(string) error) string {
	for {
		fmt.Fprintf(p.output, "  %s: ", name)
		input := p.readLine()
		if input == "" && !required {
			return ""
		}
		if input == "" {
			fmt.Fprintf(p.output, "  %s is required, try again.\n", name)
			continue
		}
		if check != nil {
			if err := check(input); err != nil {
				fmt.Fprintf(p.output, "  Invalid %s %q: %v, try again.\n", name, input, err)
				continue
			}
		}
		return input
	}
}

func (p *prompter) intField(name string, lowest int, required bool) int {
	s := p.field(name, required, func(in string) error {
		n, err := strconv.Atoi(in)
		if err != nil {
			return errors.New("not an integer")
		}
		if n < lowest {
			return fmt.Errorf("must be >= %d", lowest)
		}
		return nil
	})
	n, _ := strconv.Atoi(s)
	return n
}

func validRegex(s string) error {
	_, err := regexp.Compile(s)
	return err
}

// list describes how editList shows and builds entries of one config array.
type list[T any] struct {
	label    string
	describe func(T) string
	add      func(*prompter) T
}

var timeoutRuleList = list[dali.TimeoutRule]{
	label: "timeout rule",
	describe: func(r dali.TimeoutRule) string {
		return fmt.Sprintf("pattern=%q timeout_seconds=%d", r.Pattern, r.TimeoutSeconds)
	},
	add: func(p *prompter) dali.TimeoutRule {
		return dali.TimeoutRule{
			Pattern:        p.field("pattern (regex)", true, validRegex),
			TimeoutSeconds: p.intField("timeout_seconds", 1, true),
		}
	},
}

var errorPromptList = list[dali.ErrorPromptRule]{
	label: "error prompt",
	describe: func(r dali.ErrorPromptRule) string {
		return fmt.Sprintf("pattern=%q message=%q", r.Pattern, r.Message)
	},
	add: func(p *prompter) dali.ErrorPromptRule {
		return dali.ErrorPromptRule{
			Pattern: p.field("pattern (regex)", true, validRegex),
			Message: p.field("message", true, nil),
		}
	},
}

var sanitizationList = list[dali.SanitizationRule]{
	label: "sanitization rule",
	describe: func(r dali.SanitizationRule) string {
		return fmt.Sprintf("pattern=%q replacement=%q description=%q", r.Pattern, r.Replacement, r.Description)
	},
	add: func(p *prompter) dali.SanitizationRule {
		return dali.SanitizationRule{
			Pattern:     p.field("pattern (regex)", true, validRegex),
			Replacement: p.field("replacement", false, nil),
			Description: p.field("description", false, nil),
		}
	},
}

func hookList(label string) list[dali.HookEntry] {
	return list[dali.HookEntry]{
		label: label,
		describe: func(e dali.HookEntry) string {
			return fmt.Sprintf("pattern=%q command=%q args=%v timeout_seconds=%d", e.Pattern, e.Command, e.Args, e.TimeoutSeconds)
		},
		add: func(p *prompter) dali.HookEntry {
			return dali.HookEntry{
				Pattern:        p.field("pattern (regex)", true, validRegex),
				Command:        p.field("command", true, nil),
				Args:           splitArgs(p.field("args (comma-separated)", false, nil)),
				TimeoutSeconds: p.intField("timeout_seconds (0 = default)", 0, false),
			}
		},
	}
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	var args []string
	for _, a := range strings.Split(s, ",") {
		args = append(args, strings.TrimSpace(a))
	}
	return args
}

// editList shows items and lets the user add or remove entries until they
// continue.
func editList[T any](p *prompter, l list[T], items []T) []T {
	for {
		if len(items) == 0 {
			fmt.Fprintf(p.output, "  (no entries)\n")
		}
		for i, item := range items {
			fmt.Fprintf(p.output, "  [%d] %s\n", i, l.describe(item))
		}
		fmt.Fprintf(p.output, "[a]dd, [r]emove, [c]ontinue? ")
		switch strings.ToLower(p.readLine()) {
		case "a":
			items = append(items, l.add(p))
		case "r":
			items = removeAt(p, l.label, items)
		case "c", "":
			return items
		default:
			fmt.Fprintf(p.output, "  Unknown choice, try again.\n")
		}
	}
}

func removeAt[T any](p *prompter, label string, items []T) []T {
	if len(items) == 0 {
		fmt.Fprintf(p.output, "  No %s entries to remove.\n", label)
		return items
	}
	fmt.Fprintf(p.output, "  Index to remove: ")
	idx, err := strconv.Atoi(p.readLine())
	if err != nil || idx < 0 || idx >= len(items) {
		fmt.Fprintf(p.output, "  Invalid index.\n")
		return items
	}
	return append(items[:idx], items[idx+1:]...)
}
