package dali

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

const infoForDBQuery = "INFO FOR DB;"

// ListTables returns every table defined in the current namespace and
// database, with its DEFINE TABLE statement. Does NOT go through the
// hook/protection/sanitization pipeline.
func (b *Bridge) ListTables(ctx context.Context) (*ListTablesOutput, error) {
	startTime := time.Now()

	// 1. Acquire semaphore
	if err := b.acquire(ctx); err != nil {
		return nil, fmt.Errorf("ListTables: %w", err)
	}
	defer b.release()

	// 2. Apply configurable timeout
	queryCtx, cancel := context.WithTimeout(ctx, seconds(b.config.Query.ListTablesTimeoutSeconds))
	defer cancel()

	// 3. Execute
	info, err := b.infoFor(queryCtx, infoForDBQuery)
	if err != nil {
		return nil, fmt.Errorf("ListTables query failed: %w", err)
	}

	// "tb" is the key used by servers before 2.0.
	tables := definitions(lookup(info, "tables", "tb"))
	entries := make([]TableEntry, len(tables))
	for i, d := range tables {
		entries[i] = TableEntry{Name: d.Name, Definition: d.Definition}
	}

	b.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(entries)).
		Msg("ListTables executed")

	return &ListTablesOutput{Tables: entries}, nil
}

// infoFor runs an INFO statement and returns its result object.
func (b *Bridge) infoFor(ctx context.Context, query string) (map[string]any, error) {
	statements, err := b.client.Query(ctx, b.endpoint, query)
	if err != nil {
		return nil, err
	}
	if err := firstStatementError(statements); err != nil {
		return nil, err
	}
	if len(statements) == 0 || len(statements[0].Result) == 0 {
		return nil, errors.New("server returned no result")
	}
	info, ok := statements[0].Result[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T, expected an object", statements[0].Result[0])
	}
	return info, nil
}

// lookup returns the first key present in m.
func lookup(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

// definitions turns a {name: "DEFINE ..."} object into a list sorted by name.
// Values that are not strings are re-encoded as JSON.
func definitions(v any) []DefinitionInfo {
	m, ok := v.(map[string]any)
	if !ok {
		return []DefinitionInfo{}
	}
	result := make([]DefinitionInfo, 0, len(m))
	for name, def := range m {
		var text string
		switch d := def.(type) {
		case string:
			text = d
		default:
			encoded, err := json.Marshal(d)
			if err != nil {
				text = fmt.Sprint(d)
			} else {
				text = string(encoded)
			}
		}
		result = append(result, DefinitionInfo{Name: name, Definition: text})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
