package sqlast

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// StripTerminator removes a single trailing statement terminator.
// Plan commands reject `EXPLAIN SELECT 1;`.
func StripTerminator(sql string) string {
	s := strings.TrimSpace(sql)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// Rewriter performs the string-level SQL surgery used by the validation
// simulator. It assumes the new table name does not occur as a substring of
// any other identifier in the rewritten query; a structural implementation can
// replace it without touching the simulator.
type Rewriter interface {
	// SelectBody returns the SELECT part of a migration statement.
	SelectBody(migration string) (string, error)
	// SubstituteTable replaces every reference to table with placeholder.
	SubstituteTable(query string, table TableName, placeholder string) string
	// Compose prefixes query with a CTE named placeholder over body.
	Compose(placeholder string, columns []string, body, query string) string
}

// ErrNoSelect is returned when a migration statement has no SELECT keyword.
var ErrNoSelect = errors.New("migration statement contains no SELECT")

var (
	selectKeyword = regexp.MustCompile(`(?i)\bselect\b`)
	withPrefix    = regexp.MustCompile(`(?is)^\s*with\s+(recursive\s+)?`)
)

// TextualRewriter is the regexp-based Rewriter.
type TextualRewriter struct{}

func (TextualRewriter) SelectBody(migration string) (string, error) {
	loc := selectKeyword.FindStringIndex(migration)
	if loc == nil {
		return "", ErrNoSelect
	}
	return StripTerminator(migration[loc[0]:]), nil
}

func (TextualRewriter) SubstituteTable(query string, table TableName, placeholder string) string {
	parts := table.Parts()
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = `["` + "`" + `]?` + regexp.QuoteMeta(p) + `["` + "`" + `]?`
	}
	pattern := `(?i)(^|[^\w.])` + strings.Join(quoted, `\s*\.\s*`) + `($|[^\w])`
	re := regexp.MustCompile(pattern)

	// The boundary groups consume one character each, so adjacent matches
	// need a second pass.
	out := query
	for i := 0; i < 2; i++ {
		out = re.ReplaceAllString(out, "${1}"+placeholder+"${2}")
	}
	return out
}

func (TextualRewriter) Compose(placeholder string, columns []string, body, query string) string {
	cte := fmt.Sprintf("%s(%s) AS (%s)", placeholder, strings.Join(columns, ", "), body)
	query = StripTerminator(query)
	if loc := withPrefix.FindStringSubmatchIndex(query); loc != nil {
		recursive := ""
		if loc[2] >= 0 {
			recursive = "RECURSIVE "
		}
		return "WITH " + recursive + cte + ", " + query[loc[1]:]
	}
	return "WITH " + cte + " " + query
}

var (
	createTableHead = regexp.MustCompile(`(?is)^\s*create\s+(?:or\s+replace\s+)?(?:(?:temporary|temp|external|unlogged)\s+)?table\s+(?:if\s+not\s+exists\s+)?`)
	partitionClause = regexp.MustCompile(`(?i)\b(partitioning|partitioned_by|partition\s+by|partitioned\s+by)\b`)
	constraintStart = regexp.MustCompile(`(?i)^(constraint|primary|unique|foreign|check|index|key|like|period|exclude)\b`)
)

// IsCreateTable reports whether the statement is a CREATE TABLE.
func IsCreateTable(ddl string) bool {
	return createTableHead.MatchString(ddl)
}

// DeclaresPartitioning reports whether a DDL text carries any partitioning clause.
func DeclaresPartitioning(ddl string) bool {
	return partitionClause.MatchString(ddl)
}

// SplitTableProperties splits a CREATE TABLE into the part a standard grammar
// understands and the trailing `WITH (...)` / `COMMENT ...` properties tail
// that lakehouse engines append after the column list.
func SplitTableProperties(ddl string) (head, properties string) {
	ddl = StripTerminator(ddl)
	open := strings.Index(ddl, "(")
	if open < 0 {
		return ddl, ""
	}
	closeIdx := matchParen(ddl, open)
	if closeIdx < 0 {
		return ddl, ""
	}
	return ddl[:closeIdx+1], strings.TrimSpace(ddl[closeIdx+1:])
}

// LexicalCreateTable extracts the table name and column names without a
// grammar. Used when the dialect parser rejects engine-specific column types
// such as array(varchar) or row(...).
func LexicalCreateTable(ddl string) (*TableDefinition, error) {
	ddl = StripTerminator(ddl)
	loc := createTableHead.FindStringIndex(ddl)
	if loc == nil {
		return nil, errors.New("not a CREATE TABLE statement")
	}
	rest := ddl[loc[1]:]
	open := strings.Index(rest, "(")
	if open < 0 {
		return nil, errors.New("CREATE TABLE has no column list")
	}
	name, err := ParseQualifiedName(strings.TrimSpace(rest[:open]))
	if err != nil {
		return nil, err
	}
	closeIdx := matchParen(rest, open)
	if closeIdx < 0 {
		return nil, errors.New("unbalanced parentheses in column list")
	}

	var columns []string
	for _, elem := range splitTopLevel(rest[open+1:closeIdx], ',') {
		elem = strings.TrimSpace(elem)
		if elem == "" || constraintStart.MatchString(elem) {
			continue
		}
		col, _ := nextIdent(elem)
		if col == "" {
			return nil, fmt.Errorf("cannot read column name from %q", elem)
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return nil, errors.New("CREATE TABLE declares no columns")
	}

	return &TableDefinition{
		Name:        name,
		Columns:     columns,
		Partitioned: DeclaresPartitioning(rest[closeIdx+1:]),
	}, nil
}

// ParseQualifiedName reads a dotted, optionally quoted, name of up to three parts.
func ParseQualifiedName(s string) (TableName, error) {
	var parts []string
	rest := strings.TrimSpace(s)
	for {
		ident, tail := nextIdent(rest)
		if ident == "" {
			return TableName{}, fmt.Errorf("invalid table name %q", s)
		}
		parts = append(parts, ident)
		tail = strings.TrimSpace(tail)
		if !strings.HasPrefix(tail, ".") {
			if tail != "" {
				return TableName{}, fmt.Errorf("unexpected %q after table name", tail)
			}
			break
		}
		rest = strings.TrimSpace(tail[1:])
	}

	switch len(parts) {
	case 1:
		return TableName{Name: parts[0]}, nil
	case 2:
		return TableName{Schema: parts[0], Name: parts[1]}, nil
	case 3:
		return TableName{Catalog: parts[0], Schema: parts[1], Name: parts[2]}, nil
	default:
		return TableName{}, fmt.Errorf("too many name parts in %q", s)
	}
}

// nextIdent reads one identifier. Quoted identifiers keep their case,
// bare ones are lower-cased.
func nextIdent(s string) (ident, rest string) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" {
		return "", ""
	}
	switch q := s[0]; q {
	case '"', '`', '[':
		closing := q
		if q == '[' {
			closing = ']'
		}
		var sb strings.Builder
		for i := 1; i < len(s); i++ {
			if s[i] == closing {
				if closing != ']' && i+1 < len(s) && s[i+1] == closing {
					sb.WriteByte(closing)
					i++
					continue
				}
				return sb.String(), s[i+1:]
			}
			sb.WriteByte(s[i])
		}
		return "", ""
	}
	end := 0
	for end < len(s) && isIdentByte(s[end]) {
		end++
	}
	return strings.ToLower(s[:end]), s[end:]
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

// matchParen returns the index of the parenthesis closing the one at open,
// skipping quoted text.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// QuoteIdentWith quotes name with the given quote character unless it is a
// plain lower-case identifier.
func QuoteIdentWith(name string, quote byte) string {
	if plainIdent.MatchString(name) {
		return name
	}
	q := string(quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}
