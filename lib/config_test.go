package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigFile = `[default]
region = eu-west-1

[profile admin]
role_arn = arn:aws:iam::123456789012:role/admin
mfa_serial = arn:aws:iam::123456789012:mfa/someone
source_profile = dev

[profile dev]
region = us-east-1

[profile plain]
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(testConfigFile), 0600))
	return path
}

func parseTestConfig(t *testing.T) Profiles {
	t.Helper()
	c := &fileConfig{file: writeTestConfig(t)}
	profiles, err := c.Parse()
	require.NoError(t, err)
	return profiles
}

func TestParseStripsProfilePrefix(t *testing.T) {
	profiles := parseTestConfig(t)

	for _, name := range []string{"default", "admin", "dev", "plain"} {
		_, ok := profiles[name]
		assert.True(t, ok, "expected profile %q", name)
	}
	_, ok := profiles["profile admin"]
	assert.False(t, ok)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", writeTestConfig(t))

	c, err := NewConfigFromEnv()
	require.NoError(t, err)

	profiles, err := c.Parse()
	require.NoError(t, err)
	assert.Contains(t, profiles, "admin")
}

func TestSourceProfile(t *testing.T) {
	profiles := parseTestConfig(t)

	assert.Equal(t, "dev", SourceProfile("admin", profiles))
	assert.Equal(t, "plain", SourceProfile("plain", profiles))
	assert.Equal(t, "missing", SourceProfile("missing", profiles))
}

func TestGetValue(t *testing.T) {
	profiles := parseTestConfig(t)

	t.Run("from profile", func(t *testing.T) {
		value, from, err := profiles.GetValue("admin", "role_arn")
		require.NoError(t, err)
		assert.Equal(t, "arn:aws:iam::123456789012:role/admin", value)
		assert.Equal(t, "admin", from)
	})

	t.Run("from source profile", func(t *testing.T) {
		value, from, err := profiles.GetValue("admin", "region")
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", value)
		assert.Equal(t, "dev", from)
	})

	t.Run("from default", func(t *testing.T) {
		value, from, err := profiles.GetValue("plain", "region")
		require.NoError(t, err)
		assert.Equal(t, "eu-west-1", value)
		assert.Equal(t, "default", from)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		_, _, err := profiles.GetValue("plain", "mfa_serial")
		assert.Error(t, err)
	})
}

func TestRegion(t *testing.T) {
	profiles := parseTestConfig(t)

	assert.Equal(t, "us-east-1", profiles.Region("dev"))
	assert.Equal(t, "us-east-1", profiles.Region("admin"))
	assert.Equal(t, "eu-west-1", profiles.Region("plain"))
	assert.Equal(t, "eu-west-1", profiles.Region("missing"))
}

func TestHasRoleChain(t *testing.T) {
	profiles := parseTestConfig(t)

	assert.True(t, profiles.HasRoleChain("admin"))
	assert.False(t, profiles.HasRoleChain("dev"))
	assert.False(t, profiles.HasRoleChain("plain"))
	assert.False(t, profiles.HasRoleChain("missing"))
}
