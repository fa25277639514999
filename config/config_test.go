package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/ntv"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, ntv.DefaultMaxSlots, cfg.Registry.MaxSlots)
	assert.False(t, cfg.Database.Enabled)
	assert.Nil(t, cfg.PostgresConfig())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ntvd.toml")
	content := `
[server]
listen_addr = ":9999"
enable_pprof = true

[registry]
admin = "0x00000000000000000000000000000000000000ad"
bid_start_value_wei = "200000000000000000"
max_text_bytes = 60

[database]
enabled = true
host = "db.internal"
user = "ntv"
password = "secret"
name = "ntvnet"

[log]
json = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.True(t, cfg.Server.EnablePprof)
	// Unset fields keep their defaults.
	assert.Equal(t, ":9090", cfg.Server.MetricsAddr)

	reg, err := cfg.RegistryConfig()
	require.NoError(t, err)
	assert.Equal(t, account.Address("0x00000000000000000000000000000000000000ad"), reg.Admin)
	assert.Equal(t, "200000000000000000", reg.BidStartValue.String())
	assert.Equal(t, 60, reg.MaxTextBytes)
	assert.Equal(t, ntv.DefaultText, reg.DefaultText)

	pg := cfg.PostgresConfig()
	require.NotNil(t, pg)
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, 5432, pg.Port)
	assert.Contains(t, pg.ConnectionString(), "dbname=ntvnet")
	assert.Contains(t, pg.ConnectionString(), "sslmode=disable")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/ntvd.toml")
	require.Error(t, err)
}

func TestRegistryConfigRequiresAdmin(t *testing.T) {
	cfg := Default()
	_, err := cfg.RegistryConfig()
	require.Error(t, err)

	cfg.Registry.Admin = "0x00000000000000000000000000000000000000AD"
	reg, err := cfg.RegistryConfig()
	require.NoError(t, err)
	// Addresses are normalized to lower case.
	assert.Equal(t, account.Address("0x00000000000000000000000000000000000000ad"), reg.Admin)

	cfg.Registry.BidStartValueWei = "abc"
	_, err = cfg.RegistryConfig()
	require.Error(t, err)
}
