package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain object",
			input: `{"ddl": []}`,
			want:  `{"ddl": []}`,
		},
		{
			name:  "json fence",
			input: "Here you go:\n```json\n{\"ddl\": [{\"statement\": \"CREATE TABLE a (x int)\"}]}\n```\nDone.",
			want:  `{"ddl": [{"statement": "CREATE TABLE a (x int)"}]}`,
		},
		{
			name:  "bare fence",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "think block before object",
			input: "<think>\nthe query joins {two} tables\n</think>\n{\"a\": {\"b\": [1, 2]}}",
			want:  `{"a": {"b": [1, 2]}}`,
		},
		{
			name:  "braces inside strings",
			input: `prefix {"sql": "SELECT '}' FROM t"} suffix`,
			want:  `{"sql": "SELECT '}' FROM t"}`,
		},
		{
			name:  "array",
			input: `[{"a": 1}]`,
			want:  `[{"a": 1}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON("I cannot help with that.")
	assert.Error(t, err)

	_, err = ExtractJSON(`{"unterminated": `)
	assert.Error(t, err)
}

func TestParseJSONResponse_RemediationCandidate(t *testing.T) {
	response := "```json\n" + `{
  "ddl": [{"statement": "CREATE TABLE c.optimized.t (a int)"}],
  "migrations": ["INSERT INTO c.optimized.t SELECT a FROM c.s.src"],
  "queries": [{"queryid": 17, "query": "SELECT a FROM c.optimized.t"}]
}` + "\n```"

	got, err := ParseJSONResponse[models.RemediationCandidate](response)
	require.NoError(t, err)
	require.Len(t, got.DDL, 1)
	require.Len(t, got.Migrations, 1)
	require.Len(t, got.Queries, 1)
	assert.Equal(t, "INSERT INTO c.optimized.t SELECT a FROM c.s.src", got.Migrations[0].Statement)
	assert.Equal(t, "17", string(got.Queries[0].QueryID))
}

func TestExtractJSON_SkipsBracketedProse(t *testing.T) {
	got, err := ExtractJSON(`[note] the rewrite follows: {"queries": [{"queryid": "q1", "query": "SELECT 1"}]} [end]`)
	require.NoError(t, err)
	assert.Equal(t, `{"queries": [{"queryid": "q1", "query": "SELECT 1"}]}`, got)
}
