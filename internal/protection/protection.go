// Package protection rejects SurrealQL statements that the operator has not
// allowed. It works on a lexical scan of the query: strings, comments, and
// escaped identifiers are skipped, and every statement start (top level or
// inside a subquery) is checked against the rules.
package protection

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the protection checker's own config type.
type Config struct {
	AllowDefine             bool
	AllowRemove             bool
	AllowAlter              bool
	AllowDeleteWithoutWhere bool
	AllowUpdateWithoutWhere bool
	AllowUse                bool
	AllowKill               bool
	AllowLive               bool
	AllowTransactions       bool
	ReadOnly                bool
}

// Checker validates SurrealQL queries against protection rules.
type Checker struct {
	config Config
}

// NewChecker creates a new Checker with the given config.
func NewChecker(config Config) *Checker {
	return &Checker{config: config}
}

// writeKeywords are statement keywords rejected in read-only mode.
var writeKeywords = map[string]bool{
	"CREATE":  true,
	"UPDATE":  true,
	"UPSERT":  true,
	"DELETE":  true,
	"INSERT":  true,
	"RELATE":  true,
	"DEFINE":  true,
	"REMOVE":  true,
	"ALTER":   true,
	"REBUILD": true,
	"KILL":    true,
	"LIVE":    true,
}

// targetTerminators end the target list of DELETE/UPDATE/UPSERT.
var targetTerminators = map[string]bool{
	"WHERE":    true,
	"RETURN":   true,
	"TIMEOUT":  true,
	"PARALLEL": true,
	"SET":      true,
	"UNSET":    true,
	"CONTENT":  true,
	"MERGE":    true,
	"PATCH":    true,
	"REPLACE":  true,
	"WITH":     true,
	"EXPLAIN":  true,
	"DATA":     true,
}

// Check scans the query and returns nil if allowed, a descriptive error if blocked.
func (c *Checker) Check(query string) error {
	statements, err := splitStatements(lex(query))
	if err != nil {
		return err
	}
	if len(statements) == 0 {
		return errors.New("query parse error: empty query")
	}

	for _, stmt := range statements {
		for i := range stmt {
			if !isStatementStart(stmt, i) {
				continue
			}
			if err := c.checkStatement(stmt, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkStatement applies the rules to the statement beginning at tokens[start].
func (c *Checker) checkStatement(tokens []token, start int) error {
	keyword := tokens[start].text

	if c.config.ReadOnly && writeKeywords[keyword] {
		return fmt.Errorf("%s is blocked in read-only mode", keyword)
	}

	switch keyword {
	case "DEFINE":
		if !c.config.AllowDefine {
			return errors.New("DEFINE statements are not allowed")
		}
	case "REMOVE":
		if !c.config.AllowRemove {
			return errors.New("REMOVE statements are not allowed")
		}
	case "ALTER":
		if !c.config.AllowAlter {
			return errors.New("ALTER statements are not allowed")
		}
	case "USE":
		if !c.config.AllowUse {
			return errors.New("USE statements are not allowed: namespace and database are fixed by the connection")
		}
	case "KILL":
		if !c.config.AllowKill {
			return errors.New("KILL statements are not allowed")
		}
	case "LIVE":
		if !c.config.AllowLive {
			return errors.New("LIVE SELECT statements are not allowed")
		}
	case "BEGIN", "COMMIT", "CANCEL":
		if !c.config.AllowTransactions {
			return fmt.Errorf("transaction statements are not allowed: %s", keyword)
		}
	case "DELETE":
		if !c.config.AllowDeleteWithoutWhere && !isScoped(tokens, start) {
			return errors.New("DELETE without WHERE clause is not allowed")
		}
	case "UPDATE", "UPSERT":
		if !c.config.AllowUpdateWithoutWhere && !isScoped(tokens, start) {
			return fmt.Errorf("%s without WHERE clause is not allowed", keyword)
		}
	}
	return nil
}

// isStatementStart reports whether tokens[i] opens a statement: the first
// token, or a keyword right after an opening bracket, `;`, `=`, THEN, or ELSE.
// Top-level `;` never reaches here, so a `;` seen here separates statements
// inside a block.
func isStatementStart(tokens []token, i int) bool {
	if tokens[i].kind != kindWord {
		return false
	}
	if i == 0 {
		return true
	}
	prev := tokens[i-1]
	switch prev.kind {
	case kindPunct:
		return prev.text == "(" || prev.text == "{" || prev.text == ";" || prev.text == "="
	case kindWord:
		return prev.text == "THEN" || prev.text == "ELSE"
	}
	return false
}

// isScoped reports whether the DELETE/UPDATE statement at tokens[start] has a
// WHERE clause at its own nesting level, or targets only record ids. The scan
// ends at the close of the enclosing block or at the `;` ending the statement.
func isScoped(tokens []token, start int) bool {
	depth := tokens[start].depth
	var targets []token
	inTargets := true
	for j := start + 1; j < len(tokens); j++ {
		tok := tokens[j]
		if tok.depth < depth {
			break
		}
		if tok.depth == depth && tok.kind == kindPunct && tok.text == ";" {
			break
		}
		if tok.depth > depth {
			if inTargets {
				targets = append(targets, tok)
			}
			continue
		}
		if tok.kind == kindWord && tok.text == "WHERE" {
			return true
		}
		if !inTargets {
			continue
		}
		if tok.kind == kindWord && targetTerminators[tok.text] {
			inTargets = false
			continue
		}
		if tok.kind == kindWord && (tok.text == "FROM" || tok.text == "ONLY") && len(targets) == 0 {
			continue
		}
		if tok.kind == kindPunct && tok.text == "," {
			continue
		}
		targets = append(targets, tok)
	}

	if len(targets) == 0 {
		return false
	}
	for _, tgt := range targets {
		if tgt.kind != kindRecordID {
			return false
		}
	}
	return true
}

// splitStatements splits the token stream on top-level semicolons and drops
// empty statements.
func splitStatements(tokens []token, err error) ([][]token, error) {
	if err != nil {
		return nil, err
	}
	var statements [][]token
	var current []token
	for _, tok := range tokens {
		if tok.kind == kindPunct && tok.text == ";" && tok.depth == 0 {
			if len(current) > 0 {
				statements = append(statements, current)
			}
			current = nil
			continue
		}
		current = append(current, tok)
	}
	if len(current) > 0 {
		statements = append(statements, current)
	}
	return statements, nil
}

type tokenKind int

const (
	kindWord tokenKind = iota
	kindRecordID
	kindIdent
	kindString
	kindNumber
	kindParam
	kindPunct
)

type token struct {
	kind  tokenKind
	text  string // upper-cased for kindWord
	depth int
}

// lex tokenizes a SurrealQL query. Comments are dropped.
func lex(query string) ([]token, error) {
	runes := []rune(query)
	var tokens []token
	depth := 0
	n := len(runes)

	for i := 0; i < n; {
		r := runes[i]
		switch {
		case isSpace(r):
			i++

		case r == '-' && i+1 < n && runes[i+1] == '-',
			r == '/' && i+1 < n && runes[i+1] == '/',
			r == '#':
			for i < n && runes[i] != '\n' {
				i++
			}

		case r == '/' && i+1 < n && runes[i+1] == '*':
			end := indexFrom(runes, i+2, "*/")
			if end < 0 {
				return nil, errors.New("query parse error: unterminated block comment")
			}
			i = end + 2

		case r == '\'' || r == '"':
			end, err := skipQuoted(runes, i, r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: kindString, text: string(runes[i:end]), depth: depth})
			i = end

		case r == '`':
			end, err := skipQuoted(runes, i, '`')
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: kindIdent, text: string(runes[i:end]), depth: depth})
			i = end

		case r == '⟨':
			end, err := skipQuoted(runes, i, '⟩')
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: kindIdent, text: string(runes[i:end]), depth: depth})
			i = end

		case r == '$':
			j := i + 1
			for j < n && isWordRune(runes[j]) {
				j++
			}
			tokens = append(tokens, token{kind: kindParam, text: string(runes[i:j]), depth: depth})
			i = j

		case isDigit(r):
			j := i
			for j < n && (isWordRune(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: kindNumber, text: string(runes[i:j]), depth: depth})
			i = j

		case isWordStart(r):
			tok, next, err := lexWord(runes, i, depth)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next

		case r == '(' || r == '{' || r == '[':
			tokens = append(tokens, token{kind: kindPunct, text: string(r), depth: depth})
			depth++
			i++

		case r == ')' || r == '}' || r == ']':
			if depth > 0 {
				depth--
			}
			tokens = append(tokens, token{kind: kindPunct, text: string(r), depth: depth})
			i++

		default:
			tokens = append(tokens, token{kind: kindPunct, text: string(r), depth: depth})
			i++
		}
	}
	return tokens, nil
}

// lexWord reads a keyword, identifier, function path (a::b), or record id (tb:key).
func lexWord(runes []rune, i, depth int) (token, int, error) {
	n := len(runes)
	j := i
	for j < n && isWordRune(runes[j]) {
		j++
	}
	// Function paths such as time::now or string::len.
	for j+2 < n && runes[j] == ':' && runes[j+1] == ':' && isWordStart(runes[j+2]) {
		j += 2
		for j < n && isWordRune(runes[j]) {
			j++
		}
	}
	word := string(runes[i:j])

	if j+1 < n && runes[j] == ':' && isRecordKeyStart(runes[j+1]) {
		end, err := skipRecordKey(runes, j+1)
		if err != nil {
			return token{}, 0, err
		}
		return token{kind: kindRecordID, text: string(runes[i:end]), depth: depth}, end, nil
	}

	return token{kind: kindWord, text: strings.ToUpper(word), depth: depth}, j, nil
}

func skipRecordKey(runes []rune, i int) (int, error) {
	n := len(runes)
	switch runes[i] {
	case '⟨':
		return skipQuoted(runes, i, '⟩')
	case '`':
		return skipQuoted(runes, i, '`')
	case '{', '[':
		open := runes[i]
		closer := '}'
		if open == '[' {
			closer = ']'
		}
		level := 0
		for j := i; j < n; j++ {
			switch runes[j] {
			case '\'', '"':
				end, err := skipQuoted(runes, j, runes[j])
				if err != nil {
					return 0, err
				}
				j = end - 1
			case open:
				level++
			case closer:
				level--
				if level == 0 {
					return j + 1, nil
				}
			}
		}
		return 0, errors.New("query parse error: unterminated record id")
	default:
		j := i
		for j < n && (isWordRune(runes[j]) || (runes[j] == '-' && j+1 < n && isWordRune(runes[j+1]))) {
			j++
		}
		return j, nil
	}
}

// skipQuoted returns the index just past the closing quote that matches the
// one at runes[i]. Backslash escapes are honoured.
func skipQuoted(runes []rune, i int, closer rune) (int, error) {
	for j := i + 1; j < len(runes); j++ {
		if runes[j] == '\\' {
			j++
			continue
		}
		if runes[j] == closer {
			return j + 1, nil
		}
	}
	return 0, fmt.Errorf("query parse error: unterminated %c", runes[i])
}

func indexFrom(runes []rune, from int, needle string) int {
	idx := strings.Index(string(runes[from:]), needle)
	if idx < 0 {
		return -1
	}
	return from + len([]rune(string(runes[from:])[:idx]))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isWordStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isWordRune(r rune) bool {
	return isWordStart(r) || isDigit(r)
}

func isRecordKeyStart(r rune) bool {
	return isWordRune(r) || r == '⟨' || r == '`' || r == '{' || r == '['
}
