package solutions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "library.json", `{
		"CrossJoinDetector": {"ddl": [], "migrations": [], "queries": [{"queryid": "1", "query": "SELECT 1"}]}
	}`)

	lib, err := Load(path)
	require.NoError(t, err)

	exemplar, ok := lib.Get("CrossJoinDetector")
	require.True(t, ok)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(exemplar, &decoded))
	assert.Contains(t, decoded, "queries")
	assert.Equal(t, []string{"CrossJoinDetector"}, lib.IDs())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "library.yaml", `
SelectStarDetector:
  ddl: []
  migrations: []
  queries:
    - queryid: "1"
      query: SELECT a, b FROM c.s.wide
`)

	lib, err := Load(path)
	require.NoError(t, err)

	exemplar, err := lib.MustGet("SelectStarDetector")
	require.NoError(t, err)
	assert.Contains(t, string(exemplar), "SELECT a, b FROM c.s.wide")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	_, err = Load(writeFile(t, "bad.json", `[1, 2]`))
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	_, err = Load(writeFile(t, "scalar.json", `{"X": 3}`))
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestMustGet_Missing(t *testing.T) {
	lib, err := ParseJSON([]byte(`{}`))
	require.NoError(t, err)

	_, err = lib.MustGet("JoinPatternDetector")
	assert.ErrorIs(t, err, apperrors.ErrMissingTemplate)
}

func TestShippedLibraryCoversEveryDetector(t *testing.T) {
	lib, err := Load(filepath.Join("..", "..", "configs", "solutions.json"))
	require.NoError(t, err)

	for _, id := range []string{
		"JoinPatternDetector",
		"PartitioningCandidateDetector",
		"CrossJoinDetector",
		"InefficientAggregationDetector",
		"SelectStarDetector",
	} {
		_, err := lib.MustGet(id)
		assert.NoError(t, err, id)
	}
}
