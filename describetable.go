package dali

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DescribeTable returns the fields, indexes, and events defined on a table.
// Does NOT go through the hook/protection/sanitization pipeline.
func (b *Bridge) DescribeTable(ctx context.Context, input DescribeTableInput) (*DescribeTableOutput, error) {
	startTime := time.Now()

	ident, err := quoteIdent(input.Table)
	if err != nil {
		return nil, fmt.Errorf("DescribeTable: %w", err)
	}

	// 1. Acquire semaphore
	if err := b.acquire(ctx); err != nil {
		return nil, fmt.Errorf("DescribeTable: %w", err)
	}
	defer b.release()

	// 2. Apply configurable timeout
	queryCtx, cancel := context.WithTimeout(ctx, seconds(b.config.Query.DescribeTableTimeoutSeconds))
	defer cancel()

	// 3. Execute
	info, err := b.infoFor(queryCtx, "INFO FOR TABLE "+ident+";")
	if err != nil {
		return nil, fmt.Errorf("DescribeTable query failed: %w", err)
	}

	// Short keys are used by servers before 2.0.
	output := &DescribeTableOutput{
		Name:    input.Table,
		Fields:  definitions(lookup(info, "fields", "fd")),
		Indexes: definitions(lookup(info, "indexes", "ix")),
		Events:  definitions(lookup(info, "events", "ev")),
	}

	b.logger.Info().
		Str("table", input.Table).
		Dur("duration", time.Since(startTime)).
		Int("field_count", len(output.Fields)).
		Int("index_count", len(output.Indexes)).
		Msg("DescribeTable executed")

	return output, nil
}

// quoteIdent returns name unchanged when it is a plain identifier and wraps
// it in backticks otherwise.
func quoteIdent(name string) (string, error) {
	if name == "" {
		return "", errors.New("table name must be non-empty")
	}
	if strings.ContainsRune(name, 0) {
		return "", errors.New("table name must not contain NUL characters")
	}
	if plainIdent.MatchString(name) {
		return name, nil
	}
	escaped := strings.ReplaceAll(name, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "`", "\\`")
	return "`" + escaped + "`", nil
}
