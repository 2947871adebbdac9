package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast/postgres"
)

func TestNewDDLIndex(t *testing.T) {
	stmts := []DDLStatement{
		{Statement: "CREATE SCHEMA IF NOT EXISTS lake.public"},
		{Statement: "CREATE TABLE public.orders (id bigint, customer_id bigint, ts timestamp)"},
		{Statement: "CREATE TABLE lake.public.events (id bigint, tags array(varchar)) WITH (partitioning = ARRAY['day(ts)'])"},
	}

	idx, err := NewDDLIndex(stmts, &postgres.Dialect{}, sqlast.NewNormalizer("lake", "public"))
	require.NoError(t, err)

	assert.Equal(t, []string{"lake.public.orders", "lake.public.events"}, idx.Names())
	assert.Equal(t, 3, idx.ColumnCount("lake.public.orders"))
	assert.Equal(t, -1, idx.ColumnCount("lake.public.missing"))

	events, ok := idx.Lookup("lake.public.events")
	require.True(t, ok)
	assert.True(t, events.Definition.Partitioned)
	assert.Equal(t, 2, idx.Len())
}

func TestNewDDLIndex_UnparseableCreateTable(t *testing.T) {
	_, err := NewDDLIndex([]DDLStatement{{Statement: "CREATE TABLE broken ("}}, &postgres.Dialect{}, sqlast.NewNormalizer("c", "s"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDDLIndex_NilSafe(t *testing.T) {
	var idx *DDLIndex
	_, ok := idx.Lookup("x")
	assert.False(t, ok)
	assert.Zero(t, idx.Len())
	assert.Nil(t, idx.Names())
}
