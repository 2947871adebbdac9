package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
)

// DDLStatement is one raw DDL statement supplied with a batch.
type DDLStatement struct {
	Statement string `json:"statement"`
}

// QueryStatement is one candidate query with its historical load.
// JSON keys match case-insensitively, so both queryId and queryid decode.
type QueryStatement struct {
	QueryID       string `json:"queryid"`
	Query         string `json:"query"`
	RunQuantity   int64  `json:"runquantity"`
	ExecutionTime int64  `json:"executiontime,omitempty"` // relative cost unit, default 1
}

// Cost is runQuantity × executionTime, saturated at math.MaxInt64.
func (q QueryStatement) Cost() int64 {
	if q.costOverflows() {
		return math.MaxInt64
	}
	return q.RunQuantity * q.ExecutionTime
}

func (q QueryStatement) costOverflows() bool {
	return q.RunQuantity > 0 && q.ExecutionTime > 0 && q.RunQuantity > math.MaxInt64/q.ExecutionTime
}

// Batch is one submitted set of DDL and queries analysed together.
type Batch struct {
	URL     string           `json:"url"`
	DDL     []DDLStatement   `json:"ddl"`
	Queries []QueryStatement `json:"queries"`
}

// Validate checks the batch and fills defaults. Errors wrap apperrors.ErrInvalidInput.
func (b *Batch) Validate() error {
	if strings.TrimSpace(b.URL) == "" {
		return fmt.Errorf("%w: url is required", apperrors.ErrInvalidInput)
	}
	if len(b.Queries) == 0 {
		return fmt.Errorf("%w: queries must not be empty", apperrors.ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(b.Queries))
	for i := range b.Queries {
		q := &b.Queries[i]
		q.QueryID = strings.TrimSpace(q.QueryID)
		if q.QueryID == "" {
			return fmt.Errorf("%w: query #%d has no queryid", apperrors.ErrInvalidInput, i+1)
		}
		if _, dup := seen[q.QueryID]; dup {
			return fmt.Errorf("%w: duplicate queryid %q", apperrors.ErrInvalidInput, q.QueryID)
		}
		seen[q.QueryID] = struct{}{}

		if strings.TrimSpace(q.Query) == "" {
			return fmt.Errorf("%w: query %q is empty", apperrors.ErrInvalidInput, q.QueryID)
		}
		if q.RunQuantity <= 0 {
			return fmt.Errorf("%w: query %q: runquantity must be positive", apperrors.ErrInvalidInput, q.QueryID)
		}
		switch {
		case q.ExecutionTime < 0:
			return fmt.Errorf("%w: query %q: executiontime must not be negative", apperrors.ErrInvalidInput, q.QueryID)
		case q.ExecutionTime == 0:
			q.ExecutionTime = 1
		}
		if q.costOverflows() {
			return fmt.Errorf("%w: query %q: runquantity × executiontime exceeds the int64 range", apperrors.ErrInvalidInput, q.QueryID)
		}
	}
	return nil
}
