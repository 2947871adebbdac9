package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/logging"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/solutions"
)

// DefaultMaxPlanChars bounds the execution plan excerpt in the task prompt.
const DefaultMaxPlanChars = 6000

// TableStats are optimizer statistics rows for one table.
type TableStats struct {
	Table string
	Rows  []map[string]any
}

// TaskContext is everything the task prompt is built from.
type TaskContext struct {
	Dialect         queryengine.Dialect
	TargetCatalog   string // "" when the engine has no catalogs
	OptimizedSchema string
	DDL             []string
	Ranked          []*models.ProfiledQuery
	Summary         string
	Exemplar        json.RawMessage // nil when no detector fired
	Plan            string
	Stats           []TableStats
}

// TargetNamespace is where new tables must be created.
func (c TaskContext) TargetNamespace() string {
	if c.TargetCatalog == "" {
		return c.OptimizedSchema
	}
	return c.TargetCatalog + "." + c.OptimizedSchema
}

// Composer builds task prompts from an analysis report.
type Composer struct {
	library         *solutions.Library
	optimizedSchema string
	maxPlanChars    int
}

func NewComposer(library *solutions.Library, optimizedSchema string, maxPlanChars int) *Composer {
	if optimizedSchema == "" {
		optimizedSchema = "optimized"
	}
	if maxPlanChars <= 0 {
		maxPlanChars = DefaultMaxPlanChars
	}
	return &Composer{
		library:         library,
		optimizedSchema: optimizedSchema,
		maxPlanChars:    maxPlanChars,
	}
}

// Compose builds the task prompt. A dominant finding without an exemplar in
// the library is apperrors.ErrMissingTemplate.
func (c *Composer) Compose(
	report *models.AnalysisReport,
	ddl *models.DDLIndex,
	dialect queryengine.Dialect,
	catalog string,
	stats []TableStats,
) (string, error) {
	task := TaskContext{
		Dialect:         dialect,
		TargetCatalog:   catalog,
		OptimizedSchema: c.optimizedSchema,
		DDL:             ReferencedDDL(report.RankedQueries, ddl),
		Ranked:          report.RankedQueries,
		Summary:         report.Summary,
		Stats:           stats,
	}

	if report.DominantFinding != nil {
		exemplar, err := c.library.MustGet(report.DominantFinding.DetectorID)
		if err != nil {
			return "", err
		}
		task.Exemplar = exemplar
	}
	if len(report.RankedQueries) > 0 {
		task.Plan = logging.TruncateString(report.RankedQueries[0].Plan.Text(), c.maxPlanChars)
	}

	return BuildRemediationPrompt(task), nil
}

// Corrective builds the re-prompt after a failed validation.
func (c *Composer) Corrective(original, failingSQL, errorMessage string) string {
	return BuildCorrectivePrompt(original, failingSQL, errorMessage)
}

// ReferencedTables returns the canonical tables of the ranked queries, de-duplicated, in order.
func ReferencedTables(ranked []*models.ProfiledQuery) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, q := range ranked {
		for _, t := range q.Tables {
			if !seen[t] {
				seen[t] = true
				tables = append(tables, t)
			}
		}
	}
	return tables
}

// ReferencedDDL returns the DDL of tables the ranked queries read.
// Tables without DDL are skipped.
func ReferencedDDL(ranked []*models.ProfiledQuery, ddl *models.DDLIndex) []string {
	var out []string
	for _, t := range ReferencedTables(ranked) {
		if entry, ok := ddl.Lookup(t); ok {
			out = append(out, strings.TrimSpace(entry.Statement))
		}
	}
	return out
}

// BuildRemediationPrompt renders the task prompt.
func BuildRemediationPrompt(task TaskContext) string {
	var prompt strings.Builder

	prompt.WriteString("# Data Lakehouse Optimization Task\n\n")
	prompt.WriteString(fmt.Sprintf("You are a lead data architect optimizing a data lakehouse served by %s. ", task.Dialect.Name))
	prompt.WriteString("Analyze the DDL, the costliest queries and the execution plan below, ")
	prompt.WriteString("then propose a new physical layout and rewrite the queries to use it.\n\n")

	prompt.WriteString("## Table DDL\n\n")
	if len(task.DDL) == 0 {
		prompt.WriteString("No DDL is available for the referenced tables.\n\n")
	} else {
		prompt.WriteString("```sql\n")
		for _, stmt := range task.DDL {
			prompt.WriteString(strings.TrimSuffix(stmt, ";"))
			prompt.WriteString(";\n")
		}
		prompt.WriteString("```\n\n")
	}

	prompt.WriteString("## Costliest Queries\n\n")
	for i, q := range task.Ranked {
		prompt.WriteString(fmt.Sprintf("%d. Query ID: %s, cost: %d (runs: %d)\n", i+1, q.QueryID, q.Cost, q.RunQuantity))
		prompt.WriteString("```sql\n")
		prompt.WriteString(strings.TrimSpace(q.Query))
		prompt.WriteString("\n```\n")
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Analysis Summary\n\n")
	prompt.WriteString(task.Summary)
	prompt.WriteString("\n\n")

	if task.Plan != "" {
		prompt.WriteString("## Execution Plan of the Costliest Query\n\n")
		prompt.WriteString("```\n")
		prompt.WriteString(task.Plan)
		prompt.WriteString("\n```\n\n")
	}

	if len(task.Stats) > 0 {
		prompt.WriteString("## Table Statistics\n\n")
		for _, s := range task.Stats {
			prompt.WriteString(fmt.Sprintf("### %s\n", s.Table))
			for _, row := range s.Rows {
				prompt.WriteString("- ")
				prompt.WriteString(formatRow(row))
				prompt.WriteString("\n")
			}
			prompt.WriteString("\n")
		}
	}

	prompt.WriteString("## Task\n\n")
	prompt.WriteString("Produce:\n")
	prompt.WriteString(fmt.Sprintf("1. DDL creating the new tables in the separate schema `%s`.\n", task.TargetNamespace()))
	prompt.WriteString("2. Migration statements (INSERT INTO ... SELECT ...) filling the new tables from the existing ones.\n")
	prompt.WriteString("3. The rewritten queries reading the new tables, one per query ID above.\n\n")

	prompt.WriteString("## Technical Requirements\n\n")
	prompt.WriteString(fmt.Sprintf("- Use strictly the %s SQL dialect.\n", task.Dialect.Name))
	if task.Dialect.PartitionSyntax != "" {
		prompt.WriteString(fmt.Sprintf("- Declare partitioning only with this syntax: `%s`.\n", task.Dialect.PartitionSyntax))
	}
	prompt.WriteString("- Always fully qualify table names")
	if task.TargetCatalog != "" {
		prompt.WriteString(" as `<catalog>.<schema>.<table>`")
	} else {
		prompt.WriteString(" as `<schema>.<table>`")
	}
	prompt.WriteString(".\n")
	prompt.WriteString("- The first migration must be a single INSERT ... SELECT for the first new table.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Return exactly one JSON object with the keys `ddl`, `migrations` and `queries`:\n")
	prompt.WriteString("- `ddl`: array of {\"statement\": \"...\"}\n")
	prompt.WriteString("- `migrations`: array of {\"statement\": \"...\"}\n")
	prompt.WriteString("- `queries`: array of {\"queryid\": \"...\", \"query\": \"...\"}\n\n")

	if len(task.Exemplar) > 0 {
		prompt.WriteString("Adapt this known-good solution for the detected pattern:\n")
		prompt.WriteString("```json\n")
		prompt.Write(task.Exemplar)
		prompt.WriteString("\n```\n\n")
	}

	prompt.WriteString("Return ONLY the JSON object, no additional text.\n")
	return prompt.String()
}

// BuildCorrectivePrompt embeds the original task, the failing SQL and the
// engine's error, and asks for the complete object again.
func BuildCorrectivePrompt(original, failingSQL, errorMessage string) string {
	var prompt strings.Builder

	prompt.WriteString("Your previous answer failed automatic validation against the query engine.\n\n")
	prompt.WriteString("# Original Context and Task\n\n")
	prompt.WriteString(original)
	prompt.WriteString("\n\n# Validation Error\n\n")
	prompt.WriteString("Failing SQL:\n```sql\n")
	prompt.WriteString(failingSQL)
	prompt.WriteString("\n```\n\n")
	prompt.WriteString("Error message:\n```\n")
	prompt.WriteString(errorMessage)
	prompt.WriteString("\n```\n\n")
	prompt.WriteString("# New Task\n\n")
	prompt.WriteString("Fix this error while keeping the overall optimization. ")
	prompt.WriteString("Regenerate the COMPLETE JSON object with `ddl`, `migrations` and `queries`.\n")
	prompt.WriteString("Return ONLY the JSON object, no additional text.\n")
	return prompt.String()
}

func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k, v := range row {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, row[k])
	}
	return strings.Join(parts, ", ")
}
