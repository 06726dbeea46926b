package dali

import (
	"bytes"
	"encoding/json"
)

// Statement status values reported by the server.
const (
	StatusOK  = "OK"
	StatusErr = "ERR"
)

// Response is the per-statement envelope returned by the /sql endpoint.
// A failed statement carries its message in Detail; Result is then nil.
type Response struct {
	Time   string `json:"time"`
	Status string `json:"status"`
	Result []any  `json:"result"`
	Detail string `json:"detail,omitempty"`
}

// UnmarshalJSON accepts both an array result and the string result the
// server sends for failed statements.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time   string          `json:"time"`
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
		Detail string          `json:"detail"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Time = raw.Time
	r.Status = raw.Status
	r.Detail = raw.Detail
	r.Result = nil

	trimmed := bytes.TrimSpace(raw.Result)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '"':
		var msg string
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return err
		}
		if r.Detail == "" {
			r.Detail = msg
		}
	case trimmed[0] == '[':
		return decodeJSON(trimmed, &r.Result)
	default:
		// Single-value results (RETURN 1) are wrapped so Result stays a list.
		var v any
		if err := decodeJSON(trimmed, &v); err != nil {
			return err
		}
		r.Result = []any{v}
	}
	return nil
}

// OK reports whether the statement succeeded.
func (r Response) OK() bool {
	return r.Status == StatusOK
}

// QueryInput is the input for the query tool.
type QueryInput struct {
	Query string `json:"query"`
}

// QueryOutput is the output of the query tool. All errors (transport errors,
// failed statements, protection rejections, hook rejections) are placed in
// Error, followed by any matching error prompt messages.
type QueryOutput struct {
	Statements []Response `json:"statements"`
	Error      string     `json:"error,omitempty"`
}

// TableEntry represents a single table in the ListTables output.
type TableEntry struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// ListTablesOutput is the output of the list_tables tool.
type ListTablesOutput struct {
	Tables []TableEntry `json:"tables"`
}

// DescribeTableInput is the input for the describe_table tool.
type DescribeTableInput struct {
	Table string `json:"table"`
}

// DefinitionInfo is a named schema clause such as a field, index, or event.
type DefinitionInfo struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// DescribeTableOutput is the output of the describe_table tool.
type DescribeTableOutput struct {
	Name    string           `json:"name"`
	Fields  []DefinitionInfo `json:"fields"`
	Indexes []DefinitionInfo `json:"indexes"`
	Events  []DefinitionInfo `json:"events"`
}
