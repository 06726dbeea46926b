package dali

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Query executes the full query pipeline and returns only QueryOutput.
// All errors (transport errors, failed statements, protection rejections,
// hook rejections) are converted to output.Error. The error message is then
// evaluated against error_prompts patterns and any matching prompt messages
// are appended. Callers only need to check output.Error, never a Go error.
func (b *Bridge) Query(ctx context.Context, input QueryInput) *QueryOutput {
	startTime := time.Now()
	query := input.Query

	// 1. Acquire semaphore (respects context cancellation to prevent deadlock)
	if err := b.acquire(ctx); err != nil {
		return b.handleError(err)
	}
	defer b.release()

	// 2. Check query length before hooks and protection
	if len(query) > b.config.Query.MaxQueryLength {
		return b.handleError(fmt.Errorf("query too long: %d bytes exceeds maximum of %d bytes", len(query), b.config.Query.MaxQueryLength))
	}

	var beforeHooks, afterHooks []string

	// 3. Run BeforeQuery hooks (middleware chain)
	var err error
	if len(b.goBeforeHooks) > 0 {
		query, err = b.runGoBeforeHooks(ctx, query)
		for _, entry := range b.goBeforeHooks {
			beforeHooks = append(beforeHooks, entry.Name)
		}
	} else if b.cmdHooks != nil {
		query, beforeHooks, err = b.cmdHooks.RunBeforeQuery(ctx, query)
	}
	if err != nil {
		return b.handleError(err)
	}

	// 4. Protection check (on potentially modified query)
	if err := b.protection.Check(query); err != nil {
		return b.handleError(err)
	}

	// 5. Determine timeout
	timeout, timeoutRule := b.timeoutMgr.GetTimeoutWithPattern(query)
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 6. Execute
	statements, err := b.client.Query(queryCtx, b.endpoint, query)
	if err != nil {
		return b.handleError(err)
	}

	// 7. A failed statement fails the whole call
	if err := firstStatementError(statements); err != nil {
		return b.handleError(err)
	}
	result := &QueryOutput{Statements: statements}

	// 8. AfterQuery hooks
	var finalResult *QueryOutput
	if len(b.goAfterHooks) > 0 {
		finalResult, err = b.runGoAfterHooks(ctx, result)
		if err != nil {
			return b.handleError(err)
		}
		for _, entry := range b.goAfterHooks {
			afterHooks = append(afterHooks, entry.Name)
		}
	} else if b.cmdHooks != nil && b.cmdHooks.HasAfterQueryHooks() {
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return b.handleError(err)
		}

		modifiedJSON, executed, err := b.cmdHooks.RunAfterQuery(ctx, string(resultJSON))
		if err != nil {
			return b.handleError(err)
		}
		afterHooks = executed

		finalResult = &QueryOutput{}
		dec := json.NewDecoder(strings.NewReader(modifiedJSON))
		dec.UseNumber()
		if err := dec.Decode(finalResult); err != nil {
			return b.handleError(fmt.Errorf("after_query hook error: failed to decode modified result: %w", err))
		}
	} else {
		finalResult = result
	}

	// 9. Apply sanitization (recursive into objects and arrays)
	sanitized := b.sanitizer.HasRules()
	for i := range finalResult.Statements {
		finalResult.Statements[i].Result = b.sanitizer.SanitizeValues(finalResult.Statements[i].Result)
	}

	// 10. Apply max result length truncation
	b.truncateIfNeeded(finalResult)

	// 11. Log successful query execution with pipeline details
	logEvent := b.logger.Info().
		Str("query", truncateForLog(query, 200)).
		Dur("duration", time.Since(startTime)).
		Int("statement_count", len(finalResult.Statements))
	if len(beforeHooks) > 0 {
		logEvent = logEvent.Strs("before_hooks", beforeHooks)
	}
	if len(afterHooks) > 0 {
		logEvent = logEvent.Strs("after_hooks", afterHooks)
	}
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	if sanitized {
		logEvent = logEvent.Bool("sanitized", true)
	}
	logEvent.Msg("query executed")

	return finalResult
}

// firstStatementError returns an error describing the first statement whose
// status is not OK.
func firstStatementError(statements []Response) error {
	for i, stmt := range statements {
		if stmt.OK() {
			continue
		}
		detail := stmt.Detail
		if detail == "" {
			detail = "no detail returned"
		}
		return fmt.Errorf("statement %d failed with status %s: %s", i+1, stmt.Status, detail)
	}
	return nil
}

// runGoBeforeHooks runs Go-interface BeforeQuery hooks in middleware chain.
func (b *Bridge) runGoBeforeHooks(ctx context.Context, query string) (string, error) {
	for _, entry := range b.goBeforeHooks {
		timeout := entry.Timeout
		if timeout == 0 {
			timeout = seconds(b.config.DefaultHookTimeoutSeconds)
		}
		hookCtx, cancel := context.WithTimeout(ctx, timeout)

		modified, err := entry.Hook.Run(hookCtx, query)
		cancel()
		if err != nil {
			if hookCtx.Err() == context.DeadlineExceeded {
				return "", fmt.Errorf("before_query hook error: hook timed out (name: %s, timeout: %s)", entry.Name, timeout)
			}
			return "", fmt.Errorf("before_query hook error: hook rejected query (name: %s): %w", entry.Name, err)
		}
		query = modified
	}
	return query, nil
}

// runGoAfterHooks runs Go-interface AfterQuery hooks in middleware chain.
func (b *Bridge) runGoAfterHooks(ctx context.Context, result *QueryOutput) (*QueryOutput, error) {
	for _, entry := range b.goAfterHooks {
		timeout := entry.Timeout
		if timeout == 0 {
			timeout = seconds(b.config.DefaultHookTimeoutSeconds)
		}
		hookCtx, cancel := context.WithTimeout(ctx, timeout)

		modified, err := entry.Hook.Run(hookCtx, result)
		cancel()
		if err != nil {
			if hookCtx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("after_query hook error: hook timed out (name: %s, timeout: %s)", entry.Name, timeout)
			}
			return nil, fmt.Errorf("after_query hook error: hook rejected result (name: %s): %w", entry.Name, err)
		}
		if modified == nil {
			return nil, fmt.Errorf("after_query hook error: hook returned nil result (name: %s)", entry.Name)
		}
		result = modified
	}
	return result, nil
}

// handleError converts any error into a QueryOutput with error message.
// The error message is evaluated against error_prompts and matching prompt
// messages are appended.
func (b *Bridge) handleError(err error) *QueryOutput {
	errMsg := err.Error()
	prompt, patterns := b.errPrompts.Annotate(errMsg)

	logEvent := b.logger.Error().Err(err)
	if len(patterns) > 0 {
		logEvent = logEvent.Strs("error_prompts", patterns)
	}
	logEvent.Msg("query error")

	if prompt != "" {
		errMsg = errMsg + "\n\n" + prompt
	}
	return &QueryOutput{Error: errMsg}
}

// truncateIfNeeded drops the statements if their JSON encoding exceeds
// MaxResultLength characters, leaving a truncated copy in Error.
func (b *Bridge) truncateIfNeeded(output *QueryOutput) {
	jsonBytes, _ := json.Marshal(output.Statements)
	jsonStr := string(jsonBytes)
	if utf8.RuneCountInString(jsonStr) <= b.config.Query.MaxResultLength {
		return
	}
	runes := []rune(jsonStr)
	truncated := string(runes[:b.config.Query.MaxResultLength])
	output.Statements = nil
	output.Error = truncated + "...[truncated] Result is too long! Add LIMIT to your query!"
}

// truncateForLog truncates a string for log output to avoid oversized log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
