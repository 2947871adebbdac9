package queryengine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

// NewJSONPlan wraps a JSON plan document. Text that is not valid JSON is kept as a text plan.
func NewJSONPlan(body string) (*Plan, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("engine returned an empty plan")
	}
	if json.Valid([]byte(body)) {
		return &Plan{Format: PlanFormatJSON, Body: json.RawMessage(body)}, nil
	}
	return NewTextPlan(PlanFormatText, body)
}

// NewTextPlan wraps a text or XML plan as a JSON string.
func NewTextPlan(format PlanFormat, body string) (*Plan, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("engine returned an empty plan")
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	return &Plan{Format: format, Body: raw}, nil
}

// ExplainPrefix builds "<prefix> <sql>" with the statement terminator removed.
func ExplainPrefix(prefix, sql string) string {
	return prefix + " " + sqlast.StripTerminator(sql)
}
