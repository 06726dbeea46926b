package dali

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rickchristie/dali/internal/errprompt"
	"github.com/rickchristie/dali/internal/hooks"
	"github.com/rickchristie/dali/internal/protection"
	"github.com/rickchristie/dali/internal/sanitize"
	"github.com/rickchristie/dali/internal/timeout"
)

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultMaxConcurrency              = 10
	DefaultQueryTimeoutSeconds         = 30
	DefaultListTablesTimeoutSeconds    = 10
	DefaultDescribeTableTimeoutSeconds = 10
	DefaultMaxQueryLength              = 100000
	DefaultMaxResultLength             = 100000
)

// Bridge runs queries from AI agents through a Client with protection rules,
// hooks, sanitization, and result truncation. It backs the Query, ListTables,
// and DescribeTable tools. All exported methods are safe for concurrent use.
type Bridge struct {
	config        Config
	client        *Client
	endpoint      string
	semaphore     chan struct{}
	protection    *protection.Checker
	cmdHooks      *hooks.Runner          // command-based hooks (CLI mode)
	goBeforeHooks []BeforeQueryHookEntry // Go function hooks (library mode)
	goAfterHooks  []AfterQueryHookEntry  // Go function hooks (library mode)
	sanitizer     *sanitize.Sanitizer
	errPrompts    *errprompt.Matcher
	timeoutMgr    *timeout.Manager
	logger        zerolog.Logger
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	serverHooks *ServerHooksConfig
	endpoint    string
}

// WithServerHooks passes command-based hook configuration to the Bridge.
// Mutually exclusive with Config.BeforeQueryHooks/AfterQueryHooks (Go hooks).
func WithServerHooks(h ServerHooksConfig) Option {
	return func(o *options) {
		o.serverHooks = &h
	}
}

// WithEndpoint sets the /sql URL queries are posted to. Defaults to
// client.SQLEndpoint().
func WithEndpoint(uri string) Option {
	return func(o *options) {
		o.endpoint = uri
	}
}

// New creates a Bridge over client.
// Panics on invalid config.
func New(client *Client, config Config, logger zerolog.Logger, opts ...Option) *Bridge {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if client == nil {
		panic("dali: client must be non-nil")
	}

	// Apply defaults for zero values
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.Query.DefaultTimeoutSeconds == 0 {
		config.Query.DefaultTimeoutSeconds = DefaultQueryTimeoutSeconds
	}
	if config.Query.ListTablesTimeoutSeconds == 0 {
		config.Query.ListTablesTimeoutSeconds = DefaultListTablesTimeoutSeconds
	}
	if config.Query.DescribeTableTimeoutSeconds == 0 {
		config.Query.DescribeTableTimeoutSeconds = DefaultDescribeTableTimeoutSeconds
	}
	if config.Query.MaxQueryLength == 0 {
		config.Query.MaxQueryLength = DefaultMaxQueryLength
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = DefaultMaxResultLength
	}

	if config.MaxConcurrency < 0 {
		panic("dali: max_concurrency must be > 0")
	}
	if config.Query.DefaultTimeoutSeconds < 0 {
		panic("dali: query.default_timeout_seconds must be > 0")
	}
	if config.Query.ListTablesTimeoutSeconds < 0 {
		panic("dali: query.list_tables_timeout_seconds must be > 0")
	}
	if config.Query.DescribeTableTimeoutSeconds < 0 {
		panic("dali: query.describe_table_timeout_seconds must be > 0")
	}
	if config.Query.MaxQueryLength < 0 {
		panic("dali: query.max_query_length must be > 0")
	}
	if config.Query.MaxResultLength < 0 {
		panic("dali: query.max_result_length must be > 0")
	}

	// Go hooks and command hooks are mutually exclusive
	hasGoHooks := len(config.BeforeQueryHooks) > 0 || len(config.AfterQueryHooks) > 0
	hasCmdHooks := o.serverHooks != nil && (len(o.serverHooks.BeforeQuery) > 0 || len(o.serverHooks.AfterQuery) > 0)
	if hasGoHooks && hasCmdHooks {
		panic("dali: Go hooks (Config.BeforeQueryHooks/AfterQueryHooks) and command hooks (WithServerHooks) are mutually exclusive")
	}
	if hasGoHooks && config.DefaultHookTimeoutSeconds <= 0 {
		panic("dali: default_hook_timeout_seconds must be > 0 when Go hooks are configured")
	}
	for _, entry := range config.BeforeQueryHooks {
		if entry.Hook == nil {
			panic(fmt.Sprintf("dali: before_query hook %q has nil Hook", entry.Name))
		}
		if entry.Timeout < 0 {
			panic(fmt.Sprintf("dali: before_query hook %q has negative timeout", entry.Name))
		}
	}
	for _, entry := range config.AfterQueryHooks {
		if entry.Hook == nil {
			panic(fmt.Sprintf("dali: after_query hook %q has nil Hook", entry.Name))
		}
		if entry.Timeout < 0 {
			panic(fmt.Sprintf("dali: after_query hook %q has negative timeout", entry.Name))
		}
	}

	for _, rule := range config.Query.TimeoutRules {
		if rule.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("dali: timeout_rule with pattern %q has timeout_seconds <= 0", rule.Pattern))
		}
	}

	endpoint := o.endpoint
	if endpoint == "" {
		endpoint = client.SQLEndpoint()
	}

	// --- Initialize internal components ---

	san, err := sanitize.NewSanitizer(mapSanitizationRules(config.Sanitization))
	if err != nil {
		panic("dali: " + err.Error())
	}
	matcher, err := errprompt.NewMatcher(mapErrorPromptRules(config.ErrorPrompts))
	if err != nil {
		panic("dali: " + err.Error())
	}
	tmgr, err := timeout.NewManager(timeout.Config{
		DefaultTimeout: seconds(config.Query.DefaultTimeoutSeconds),
		Rules:          mapTimeoutRules(config.Query.TimeoutRules),
	})
	if err != nil {
		panic("dali: " + err.Error())
	}

	var cmdHooks *hooks.Runner
	if hasCmdHooks {
		cmdHooks, err = hooks.NewRunner(hooks.Config{
			DefaultTimeout: seconds(config.DefaultHookTimeoutSeconds),
			BeforeQuery:    mapHookEntries(o.serverHooks.BeforeQuery),
			AfterQuery:     mapHookEntries(o.serverHooks.AfterQuery),
		}, logger)
		if err != nil {
			panic("dali: " + err.Error())
		}
	}

	return &Bridge{
		config:        config,
		client:        client,
		endpoint:      endpoint,
		semaphore:     make(chan struct{}, config.MaxConcurrency),
		protection:    protection.NewChecker(mapProtectionConfig(config.Protection, config.ReadOnly)),
		cmdHooks:      cmdHooks,
		goBeforeHooks: config.BeforeQueryHooks,
		goAfterHooks:  config.AfterQueryHooks,
		sanitizer:     san,
		errPrompts:    matcher,
		timeoutMgr:    tmgr,
		logger:        logger,
	}
}

// Endpoint returns the URL the bridge posts queries to.
func (b *Bridge) Endpoint() string { return b.endpoint }

// Ping runs INFO FOR DB and reports whether the server accepted it.
func (b *Bridge) Ping(ctx context.Context) error {
	queryCtx, cancel := context.WithTimeout(ctx, seconds(b.config.Query.ListTablesTimeoutSeconds))
	defer cancel()

	if _, err := b.infoFor(queryCtx, infoForDBQuery); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// acquire takes a concurrency slot, giving up when ctx is done.
func (b *Bridge) acquire(ctx context.Context) error {
	select {
	case b.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to acquire query slot: all %d slots are in use, context cancelled while waiting: %w", cap(b.semaphore), ctx.Err())
	}
}

func (b *Bridge) release() { <-b.semaphore }

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func mapProtectionConfig(p ProtectionConfig, readOnly bool) protection.Config {
	return protection.Config{
		AllowDefine:             p.AllowDefine,
		AllowRemove:             p.AllowRemove,
		AllowAlter:              p.AllowAlter,
		AllowDeleteWithoutWhere: p.AllowDeleteWithoutWhere,
		AllowUpdateWithoutWhere: p.AllowUpdateWithoutWhere,
		AllowUse:                p.AllowUse,
		AllowKill:               p.AllowKill,
		AllowLive:               p.AllowLive,
		AllowTransactions:       p.AllowTransactions,
		ReadOnly:                readOnly,
	}
}

// mapSanitizationRules converts SanitizationRules to internal sanitize.Rules.
func mapSanitizationRules(rules []SanitizationRule) []sanitize.Rule {
	result := make([]sanitize.Rule, len(rules))
	for i, r := range rules {
		result[i] = sanitize.Rule{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
		}
	}
	return result
}

// mapErrorPromptRules converts ErrorPromptRules to internal errprompt.Rules.
func mapErrorPromptRules(rules []ErrorPromptRule) []errprompt.Rule {
	result := make([]errprompt.Rule, len(rules))
	for i, r := range rules {
		result[i] = errprompt.Rule{
			Pattern: r.Pattern,
			Message: r.Message,
		}
	}
	return result
}

func mapTimeoutRules(rules []TimeoutRule) []timeout.Rule {
	result := make([]timeout.Rule, len(rules))
	for i, r := range rules {
		result[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: seconds(r.TimeoutSeconds),
		}
	}
	return result
}

func mapHookEntries(entries []HookEntry) []hooks.HookEntry {
	result := make([]hooks.HookEntry, len(entries))
	for i, e := range entries {
		result[i] = hooks.HookEntry{
			Pattern: e.Pattern,
			Command: e.Command,
			Args:    e.Args,
			Timeout: seconds(e.TimeoutSeconds),
		}
	}
	return result
}
