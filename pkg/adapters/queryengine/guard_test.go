package queryengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
)

func TestQuoteTable(t *testing.T) {
	got, err := QuoteTable("iceberg.quests.events", '"')
	require.NoError(t, err)
	assert.Equal(t, `"iceberg"."quests"."events"`, got)

	got, err = QuoteTable("dwh.events", '`')
	require.NoError(t, err)
	assert.Equal(t, "`dwh`.`events`", got)
}

func TestQuoteTable_Rejects(t *testing.T) {
	for _, name := range []string{
		"events; DROP TABLE users",
		"1 OR 1=1",
		"a.b.c.d",
		"",
	} {
		_, err := QuoteTable(name, '"')
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, name)
	}
}
