package store

import (
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleStoreConfig(t *testing.T) {
	cfg := Config{
		Host:     "svc-example.singlestore.com",
		Port:     3306,
		Name:     "winter_wikipedia",
		User:     "admin",
		Password: "s3cret",
	}

	mc, err := singleStoreConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "svc-example.singlestore.com:3306", mc.Addr)
	assert.Equal(t, "winter_wikipedia", mc.DBName)
	assert.Contains(t, mc.FormatDSN(), "admin:s3cret@tcp(svc-example.singlestore.com:3306)/winter_wikipedia")
}

func TestSingleStoreConfigFromURL(t *testing.T) {
	mc, err := singleStoreConfig(Config{URL: "root:pw@tcp(127.0.0.1:3307)/olympics"})
	require.NoError(t, err)

	assert.Equal(t, "root", mc.User)
	assert.Equal(t, "127.0.0.1:3307", mc.Addr)
	assert.Equal(t, "olympics", mc.DBName)
}

func TestQueryStatement(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.setDefaults())

	s := newSQLStore(nil, cfg, singleStoreSchema)
	assert.Equal(t,
		"SELECT text, DOT_PRODUCT(JSON_ARRAY_PACK(?), embedding) AS score FROM winter_olympics_2022 ORDER BY score DESC LIMIT ?",
		s.queryStatement())
	assert.Equal(t, 5, s.searchLimit)
}

func TestPackVector(t *testing.T) {
	packed := packVector([]float32{1, -2.5, 0.125})
	assert.Len(t, packed, 12)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, packed[:4])

	unpacked, err := unpackVector(packed)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -2.5, 0.125}, unpacked)

	_, err = unpackVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDotProductFunction(t *testing.T) {
	a := packVector([]float32{1, 2, 3})
	b := packVector([]float32{4, 5, 6})

	got, err := dotProduct(nil, []driver.Value{a, b})
	require.NoError(t, err)
	assert.InDelta(t, 32.0, got, 1e-6)

	_, err = dotProduct(nil, []driver.Value{a, packVector([]float32{1})})
	assert.ErrorContains(t, err, "dimension mismatch")

	got, err = dotProduct(nil, []driver.Value{nil, b})
	require.NoError(t, err)
	assert.Nil(t, got)
}
