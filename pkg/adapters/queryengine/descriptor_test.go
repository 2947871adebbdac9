package queryengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
)

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Descriptor
	}{
		{
			name: "trino with query credentials",
			raw:  "jdbc:trino://trino.local:8080/iceberg/quests?user=admin&password=s3cret",
			want: Descriptor{
				Scheme: "trino", Host: "trino.local", Port: 8080, User: "admin", Password: "s3cret",
				Path:   []string{"iceberg", "quests"},
				Params: map[string]string{"user": "admin", "password": "s3cret"},
			},
		},
		{
			name: "no jdbc prefix and userinfo",
			raw:  "postgresql://bob:pw@db.internal/analytics?currentSchema=mart",
			want: Descriptor{
				Scheme: "postgresql", Host: "db.internal", User: "bob", Password: "pw",
				Path:   []string{"analytics"},
				Params: map[string]string{"currentSchema": "mart"},
			},
		},
		{
			name: "sqlserver semicolon properties",
			raw:  "jdbc:sqlserver://mssql:1433;databaseName=dwh;user=sa;password=Str0ng!",
			want: Descriptor{
				Scheme: "sqlserver", Host: "mssql", Port: 1433, User: "sa", Password: "Str0ng!",
				Params: map[string]string{"databaseName": "dwh", "user": "sa", "password": "Str0ng!"},
			},
		},
		{
			name: "upper case scheme",
			raw:  "JDBC:MySQL://fe:9030/dwh",
			want: Descriptor{
				Scheme: "mysql", Host: "fe", Port: 9030,
				Path:   []string{"dwh"},
				Params: map[string]string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDescriptor(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseDescriptor_Errors(t *testing.T) {
	for _, raw := range []string{
		"",
		"trino.local:8080",
		"jdbc:trino:///iceberg",
		"jdbc:trino://host:notaport/c",
		"jdbc:sqlserver://host:1433;broken",
	} {
		_, err := ParseDescriptor(raw)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, raw)
	}
}

func TestParseDescriptor_ErrorDoesNotLeakPassword(t *testing.T) {
	_, err := ParseDescriptor("jdbc:trino://:8080/c?password=topsecret")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "topsecret")
}

func TestDescriptorHelpers(t *testing.T) {
	d, err := ParseDescriptor("jdbc:trino://h/c?SSL=false&source=cli")
	require.NoError(t, err)

	assert.Equal(t, "c", d.PathSegment(0))
	assert.Equal(t, "", d.PathSegment(1))
	assert.Equal(t, 8080, d.PortOr(8080))
	assert.False(t, d.BoolParam(true, "ssl"))
	assert.True(t, d.BoolParam(true, "missing"))
	assert.Equal(t, "cli", d.Param("SOURCE"))
	assert.Equal(t, "trino://h/c", d.String())
}
