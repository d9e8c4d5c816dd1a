package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-pop3/pop3client"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pop3fetch.toml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `
address = " mail.example.org:110 "
security = "STARTTLS"
username = "alice"
password = "s3cret"
auth = "APOP"
delete = true
`))
	require.NoError(t, err)
	assert.Equal(t, "mail.example.org:110", cfg.Address)
	assert.Equal(t, "apop", cfg.Auth)
	assert.True(t, cfg.Delete)

	security, err := cfg.security()
	require.NoError(t, err)
	assert.Equal(t, pop3client.SecurityStartTLS, security)
}

func TestLoadConfig_defaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `address = "mail.example.org:995"`))
	require.NoError(t, err)

	security, err := cfg.security()
	require.NoError(t, err)
	assert.Equal(t, pop3client.SecurityImplicitTLS, security)
	assert.Equal(t, string(authUser), cfg.Auth)
	assert.False(t, cfg.Delete)
}

func TestLoadConfig_invalid(t *testing.T) {
	tests := map[string]string{
		"noAddress":  `username = "alice"`,
		"security":   "address = \"a:1\"\nsecurity = \"ssl3\"",
		"auth":       "address = \"a:1\"\nauth = \"cram-md5\"",
		"unknownKey": "address = \"a:1\"\nmailbox = \"INBOX\"",
		"syntax":     `address = `,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, data))
			assert.Error(t, err)
		})
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
