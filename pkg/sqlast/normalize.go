package sqlast

import "strings"

// Normalizer turns table references into the canonical catalog.schema.table
// form used as the lookup key everywhere: profiling, DDL indexing, detection
// and validation. Missing parts are taken from the session defaults.
//
// Case policy: grammar packages lower-case unquoted identifiers and keep
// quoted ones verbatim, so the normalizer never changes case itself except
// for the defaults, which come from a connection URL and are lower-cased.
type Normalizer struct {
	DefaultCatalog string
	DefaultSchema  string
}

// NewNormalizer builds a normalizer with the given session defaults.
func NewNormalizer(catalog, schema string) Normalizer {
	return Normalizer{
		DefaultCatalog: strings.ToLower(catalog),
		DefaultSchema:  strings.ToLower(schema),
	}
}

// Qualify fills in missing catalog and schema.
func (n Normalizer) Qualify(t TableName) TableName {
	if t.Schema == "" {
		t.Schema = n.DefaultSchema
	}
	if t.Catalog == "" {
		t.Catalog = n.DefaultCatalog
	}
	return t
}

// Canonical returns the canonical string key for a table reference.
func (n Normalizer) Canonical(t TableName) string {
	return n.Qualify(t).String()
}

// TableNames returns the canonical names of the query's tables, de-duplicated,
// in order of first appearance.
func (n Normalizer) TableNames(info *QueryInfo) []string {
	if info == nil {
		return nil
	}
	seen := make(map[string]bool, len(info.Tables))
	names := make([]string, 0, len(info.Tables))
	for _, ref := range info.Tables {
		name := n.Canonical(ref.Name)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// RefersTo reports whether a column qualifier points at the given table
// occurrence, either by alias or by the trailing parts of its name.
func RefersTo(qualifier string, ref TableRef) bool {
	if qualifier == "" {
		return false
	}
	if ref.Alias != "" {
		return strings.EqualFold(qualifier, ref.Alias)
	}
	name := ref.Name.String()
	return strings.EqualFold(qualifier, ref.Name.Name) ||
		strings.EqualFold(qualifier, name) ||
		strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(qualifier))
}
