package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/bodypace/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.DatabaseDSN = "file:" + filepath.Join(dir, "db", "bodypace.sqlite") + "?_pragma=foreign_keys(1)"
	c.BlobRoot = filepath.Join(dir, "blobs")
	c.OpenAPIPath = filepath.Join(dir, "docs", "openapi.yaml")
	c.PasswordHashCost = bcrypt.MinCost
	c.LogLevel = "error"
	return c
}

func TestSqliteFilePath(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"file:database/database.sqlite?_pragma=foreign_keys(1)", "database/database.sqlite"},
		{"database.sqlite", "database.sqlite"},
		{"/var/lib/bodypace/db.sqlite", "/var/lib/bodypace/db.sqlite"},
		{":memory:", ""},
		{"file:abc?mode=memory&cache=shared", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sqliteFilePath(tt.dsn), tt.dsn)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.SecretKey = ""

	_, err := NewApp(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key")
}

func TestNewApp_UnknownDriver(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDriver = "oracle"

	_, err := NewApp(c)
	assert.Error(t, err)
}

func TestApp_OnlyGenerateOpenAPI(t *testing.T) {
	c := testConfig(t)
	c.OnlyGenerateOpenAPI = true
	c.DatabaseDriver = "pgx"
	c.DatabaseDSN = "postgres://nobody@127.0.0.1:1/none"

	app, err := NewApp(c)
	require.NoError(t, err, "no database is needed to render the API description")
	require.NoError(t, app.Run(context.Background()))

	b, err := os.ReadFile(c.OpenAPIPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "/documents")
}

func TestApp_RunAndStop(t *testing.T) {
	c := testConfig(t)

	app, err := NewApp(c)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Dir(c.OpenAPIPath))
	assert.True(t, os.IsNotExist(err), "nothing is written before Run")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}

	_, err = os.Stat(c.OpenAPIPath)
	assert.NoError(t, err)
	_, err = os.Stat(c.BlobRoot)
	assert.NoError(t, err)
}
