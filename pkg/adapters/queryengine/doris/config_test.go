package doris

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
)

func TestFromDescriptor(t *testing.T) {
	d, err := queryengine.ParseDescriptor("jdbc:mysql://fe.local/dwh?user=root&password=pw")
	require.NoError(t, err)

	cfg, err := FromDescriptor(d)
	require.NoError(t, err)
	assert.Equal(t, 9030, cfg.Port)
	assert.Equal(t, "dwh", cfg.Database)

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "fe.local:9030", parsed.Addr)
	assert.Equal(t, "root", parsed.User)
	assert.Equal(t, "pw", parsed.Passwd)
	assert.Equal(t, "dwh", parsed.DBName)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
}

func TestFromDescriptor_UserRequired(t *testing.T) {
	d, err := queryengine.ParseDescriptor("jdbc:doris://fe.local/dwh")
	require.NoError(t, err)
	_, err = FromDescriptor(d)
	assert.Error(t, err)
}
