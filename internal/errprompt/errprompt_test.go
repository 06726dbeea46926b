package errprompt

import (
	"strings"
	"testing"
)

func TestMatch(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher([]Rule{
		{Pattern: `(?i)table '.*' does not exist`, Message: "Use list_tables to see the available tables."},
		{Pattern: `(?i)not allowed`, Message: "This statement is blocked by the server configuration."},
		{Pattern: `(?i)DEFINE`, Message: "Schema changes must go through a migration."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single match",
			input: "statement 1 failed with status ERR: The table 'persons' does not exist",
			want:  "Use list_tables to see the available tables.",
		},
		{
			name:  "multiple matches keep rule order",
			input: "DEFINE statements are not allowed",
			want:  "This statement is blocked by the server configuration.\nSchema changes must go through a migration.",
		},
		{
			name:  "no match",
			input: "context deadline exceeded",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Match(tt.input); got != tt.want {
				t.Fatalf("Match(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEmptyRules(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Match("any error at all"); got != "" {
		t.Fatalf("expected empty string with no rules, got: %s", got)
	}
	prompt, patterns := m.Annotate("any error at all")
	if prompt != "" || patterns != nil {
		t.Fatalf("expected nothing, got %q %v", prompt, patterns)
	}
}

func TestMatchHookError(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher([]Rule{
		{Pattern: `(?i)rejected`, Message: "The query was rejected by a hook. Review the hook configuration."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.Match("rejected by test hook")
	if got != "The query was rejected by a hook. Review the hook configuration." {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestAnnotateReturnsPatterns(t *testing.T) {
	t.Parallel()
	m, err := NewMatcher([]Rule{
		{Pattern: `read-only`, Message: "The server is read-only."},
		{Pattern: `timeout`, Message: "Add a LIMIT or a tighter WHERE clause."},
		{Pattern: `blocked`, Message: "Ask the operator."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt, patterns := m.Annotate("CREATE is blocked in read-only mode")
	if prompt != "The server is read-only.\nAsk the operator." {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if len(patterns) != 2 || patterns[0] != "read-only" || patterns[1] != "blocked" {
		t.Fatalf("unexpected patterns %v", patterns)
	}
	if got := m.MatchedPatterns("CREATE is blocked in read-only mode"); len(got) != 2 {
		t.Fatalf("MatchedPatterns returned %v", got)
	}
}

func TestNewMatcherErrorsOnInvalidRegex(t *testing.T) {
	t.Parallel()
	_, err := NewMatcher([]Rule{
		{Pattern: `a{2,1}`, Message: "should not compile"},
	})
	if err == nil {
		t.Fatal("expected error for invalid regex pattern")
	}
	if !strings.Contains(err.Error(), "invalid regex pattern") {
		t.Fatalf("expected error to contain 'invalid regex pattern', got: %s", err)
	}
	if !strings.Contains(err.Error(), "a{2,1}") {
		t.Fatalf("expected error to contain the invalid pattern, got: %s", err)
	}
}
