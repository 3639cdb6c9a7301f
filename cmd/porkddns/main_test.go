package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Travis-Britz/porkddns/internal/config"
)

func TestBuildClient(t *testing.T) {
	base := func() config.Config {
		c := config.Default()
		c.Domain = "home.example.com"
		c.APIKey, c.SecretAPIKey = "pk1", "sk1"
		c.StateFile = filepath.Join(t.TempDir(), "state", "state.db")
		return c
	}

	c := base()
	client, closer, err := buildClient(c)
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.FileExists(t, c.StateFile)
	assert.NoError(t, closer.Close())

	c = base()
	c.Force = true
	c.Resolver, c.IP = config.ResolverStatic, "203.0.113.7"
	_, closer, err = buildClient(c)
	require.NoError(t, err)
	assert.NoError(t, closer.Close())

	c = base()
	c.Resolver, c.IP = config.ResolverStatic, "203.0.113.700"
	_, _, err = buildClient(c)
	assert.Error(t, err)

	c = base()
	c.Provider = "route53"
	_, _, err = buildClient(c)
	assert.ErrorContains(t, err, "unknown provider")
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--domain", "home.example.com", "--api-key", "pk1"})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "secret_api_key is required")
}

func TestMissingConfigFileIsAnError(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.toml"), "--domain", "home.example.com"})
	assert.Error(t, cmd.Execute())
}

func TestIPRequiresCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PORKDDNS_API_KEY", "")
	t.Setenv("PORKDDNS_SECRET_API_KEY", "")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"ip"})
	assert.ErrorContains(t, cmd.Execute(), "api_key and secret_api_key are required")
}

func TestReloadConfig(t *testing.T) {
	saved := logger
	t.Cleanup(func() { logger = saved })

	const base = `
domain = "home.example.com"
api_key = "pk1"
secret_api_key = "sk1"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(base), 0600))
	require.NoError(t, os.Chmod(path, 0600))
	v, err := config.New(nil)
	require.NoError(t, err)
	_, err = config.Load(v, path, true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	require.NoError(t, os.WriteFile(path, []byte(base+"verbose = true\n"), 0600))
	require.NoError(t, v.ReadInConfig())
	next, err := reloadConfig(v)
	require.NoError(t, err)
	assert.True(t, next.Verbose)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	require.NoError(t, os.Chmod(path, 0644))
	_, err = reloadConfig(v)
	assert.ErrorContains(t, err, "invalid permissions")

	require.NoError(t, os.Chmod(path, 0600))
	require.NoError(t, os.WriteFile(path, []byte(`domain = "home.example.com"`), 0600))
	require.NoError(t, v.ReadInConfig())
	_, err = reloadConfig(v)
	assert.ErrorContains(t, err, "api_key")
}
