package services

import (
	"regexp"
	"strings"
)

// SQLStatementType is the leading statement kind of a SQL text.
type SQLStatementType string

const (
	SQLTypeSelect  SQLStatementType = "SELECT"
	SQLTypeInsert  SQLStatementType = "INSERT"
	SQLTypeUpdate  SQLStatementType = "UPDATE"
	SQLTypeDelete  SQLStatementType = "DELETE"
	SQLTypeMerge   SQLStatementType = "MERGE"
	SQLTypeDDL     SQLStatementType = "DDL" // CREATE, ALTER, DROP, TRUNCATE
	SQLTypeUnknown SQLStatementType = "UNKNOWN"
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

// leadingComment strips -- and /* */ comments before the first keyword.
var leadingComment = regexp.MustCompile(`^(?s)(\s*(--[^\n]*\n|/\*.*?\*/))*\s*`)

// firstWord is the leading keyword, or "(" for a parenthesised query.
var firstWord = regexp.MustCompile(`^(\(|[A-Za-z]+)`)

var statementKeywords = map[string]SQLStatementType{
	"(":        SQLTypeSelect,
	"SELECT":   SQLTypeSelect,
	"VALUES":   SQLTypeSelect,
	"TABLE":    SQLTypeSelect,
	"INSERT":   SQLTypeInsert,
	"UPDATE":   SQLTypeUpdate,
	"DELETE":   SQLTypeDelete,
	"MERGE":    SQLTypeMerge,
	"CREATE":   SQLTypeDDL,
	"ALTER":    SQLTypeDDL,
	"DROP":     SQLTypeDDL,
	"TRUNCATE": SQLTypeDDL,
}

// DetectSQLType classifies a statement by its first keyword. A WITH query
// is a SELECT unless one of its CTEs modifies data, which is SQLTypeUnknown.
func DetectSQLType(sql string) SQLStatementType {
	body := leadingComment.ReplaceAllString(sql, "")
	keyword := strings.ToUpper(firstWord.FindString(body))

	if keyword == "WITH" {
		if modifyingCTEPattern.MatchString(body) {
			return SQLTypeUnknown
		}
		return SQLTypeSelect
	}
	if t, ok := statementKeywords[keyword]; ok {
		return t
	}
	return SQLTypeUnknown
}

// SQLTypeError reports a statement that may not be sent to the planner.
type SQLTypeError struct {
	Type    SQLStatementType
	Message string
}

func (e *SQLTypeError) Error() string {
	return e.Message
}

// ValidateReadOnly accepts only plain SELECT statements (including CTEs
// without data-modifying members). Everything planned by the service goes
// through this check.
func ValidateReadOnly(sql string) error {
	sqlType := DetectSQLType(sql)
	if sqlType == SQLTypeSelect {
		return nil
	}
	return &SQLTypeError{
		Type:    sqlType,
		Message: "only SELECT statements can be analysed, got " + string(sqlType),
	}
}
