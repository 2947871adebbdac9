package models

import (
	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

// ProfiledQuery is a QueryStatement with its plan and referenced tables.
// Created once by the profiler and read-only afterwards.
type ProfiledQuery struct {
	QueryStatement
	Plan   *queryengine.Plan `json:"executionplan,omitempty"`
	Tables []string          `json:"tables"` // canonical names, first-appearance order
	Cost   int64             `json:"cost"`

	// Info is nil when the query could not be parsed.
	Info *sqlast.QueryInfo `json:"-"`
}

// NewProfiledQuery fixes the cost at creation.
func NewProfiledQuery(q QueryStatement, plan *queryengine.Plan, tables []string, info *sqlast.QueryInfo) *ProfiledQuery {
	return &ProfiledQuery{
		QueryStatement: q,
		Plan:           plan,
		Tables:         tables,
		Cost:           q.Cost(),
		Info:           info,
	}
}

// DetectionResult is one finding emitted by a detector.
type DetectionResult struct {
	PatternName    string           `json:"patternName"`
	DetectorID     string           `json:"detectorId"`
	Message        string           `json:"message"`
	Priority       int              `json:"priority"`
	MatchedQueries []*ProfiledQuery `json:"-"`
}

// MatchedQueryIDs returns the ids of the queries that triggered the finding.
func (d DetectionResult) MatchedQueryIDs() []string {
	ids := make([]string, len(d.MatchedQueries))
	for i, q := range d.MatchedQueries {
		ids[i] = q.QueryID
	}
	return ids
}

// AnalysisReport is the deterministic part of a batch run.
type AnalysisReport struct {
	RankedQueries   []*ProfiledQuery  `json:"rankedQueries"`
	Summary         string            `json:"summary"`
	DominantFinding *DetectionResult  `json:"dominantFinding,omitempty"`
	Findings        []DetectionResult `json:"findings"` // arbitrated order
}
