package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/jsonutil"
)

// Statement is one SQL statement of a remediation.
// Decoding accepts a bare string as well as {"statement": ...}.
type Statement struct {
	Statement string `json:"statement"`
}

func (s *Statement) UnmarshalJSON(data []byte) error {
	text, err := jsonutil.StatementText(data, "statement", "sql", "query")
	if err != nil {
		return err
	}
	s.Statement = text
	return nil
}

// RewrittenQuery replaces one input query. QueryID accepts numbers.
type RewrittenQuery struct {
	QueryID jsonutil.FlexibleString `json:"queryid"`
	Query   string                  `json:"query"`
}

func (q *RewrittenQuery) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("rewritten query must be an object, got %s", jsonutil.TruncateRaw(data, 40))
	}
	if v, ok := jsonutil.Field(obj, "queryid", "query_id", "id"); ok {
		q.QueryID = jsonutil.FlexibleString(jsonutil.FlexibleStringValue(v))
	}
	if v, ok := jsonutil.Field(obj, "query", "sql", "statement"); ok {
		q.Query = jsonutil.FlexibleStringValue(v)
	}
	return nil
}

// RemediationCandidate is the oracle's proposal and the unit the simulator validates.
type RemediationCandidate struct {
	DDL        []Statement      `json:"ddl"`
	Migrations []Statement      `json:"migrations"`
	Queries    []RewrittenQuery `json:"queries"`
}

// Incomplete reports whether any of the three parts is empty.
func (c *RemediationCandidate) Incomplete() bool {
	return c == nil || len(c.DDL) == 0 || len(c.Migrations) == 0 || len(c.Queries) == 0
}

// LoopTransition is one state change of the correction loop.
type LoopTransition struct {
	Attempt    int    `json:"attempt"`
	From       string `json:"from"`
	To         string `json:"to"`
	Error      string `json:"error,omitempty"`
	FailingSQL string `json:"failingSql,omitempty"`
}

// Outcome is the result of one batch: a candidate or an error message.
type Outcome struct {
	Candidate *RemediationCandidate
	Error     string

	Report      *AnalysisReport
	Transitions []LoopTransition
}

// Failed reports whether the batch produced an error.
func (o Outcome) Failed() bool {
	return strings.TrimSpace(o.Error) != ""
}

// MarshalJSON renders the batch output shape: the candidate, or {"error": message}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{o.Error})
	}
	if o.Candidate == nil {
		return json.Marshal(RemediationCandidate{
			DDL:        []Statement{},
			Migrations: []Statement{},
			Queries:    []RewrittenQuery{},
		})
	}
	return json.Marshal(o.Candidate)
}
