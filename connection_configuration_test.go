package goinflux

import (
	"os"
	path "path/filepath"
	"runtime"
	"testing"
	"time"
)

const testConnectionsToml = `
[default]
url = "http://localhost:8086"
database = "telegraf"
precision = "s"

[staging]
url = "https://staging.example.com:8086"
username = "svc"
password = "pw"
database = "metrics"
chunked = true
chunkSize = 250
gzip = "true"
timeout = 30
schemaCacheTTL = "10m"
`

func writeConfigFile(t *testing.T, dir, name, content string, perm os.FileMode) string {
	t.Helper()
	filePath := path.Join(dir, name)
	err := os.WriteFile(filePath, []byte(content), perm)
	assertNilF(t, err, "failed to write the config file")
	assertNilF(t, os.Chmod(filePath, perm))
	return filePath
}

func TestLoadConnectionConfigDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, connectionsFileName, testConnectionsToml, 0600)
	t.Setenv("GOINFLUX_HOME", dir)
	t.Setenv("GOINFLUX_DEFAULT_CONNECTION_NAME", "")

	cfg, err := LoadConnectionConfig()
	assertNilF(t, err)
	assertEqualE(t, cfg.URL, "http://localhost:8086")
	assertEqualE(t, cfg.Database, "telegraf")
	assertEqualE(t, cfg.Precision, Second)
	assertEqualE(t, cfg.ChunkSize, defaultChunkSize)
}

func TestLoadConnectionConfigNamed(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, connectionsFileName, testConnectionsToml, 0600)
	t.Setenv("GOINFLUX_HOME", dir)
	t.Setenv("GOINFLUX_DEFAULT_CONNECTION_NAME", "staging")

	cfg, err := LoadConnectionConfig()
	assertNilF(t, err)
	assertEqualE(t, cfg.URL, "https://staging.example.com:8086")
	assertEqualE(t, cfg.Username, "svc")
	assertEqualE(t, cfg.Password, "pw")
	assertTrueE(t, cfg.Chunked)
	assertEqualE(t, cfg.ChunkSize, 250)
	assertTrueE(t, cfg.Gzip)
	assertEqualE(t, cfg.Timeout, 30*time.Second)
	assertEqualE(t, cfg.SchemaCacheTTL, 10*time.Minute)
}

func TestLoadConnectionConfigMissingSection(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, connectionsFileName, testConnectionsToml, 0600)
	t.Setenv("GOINFLUX_HOME", dir)
	t.Setenv("GOINFLUX_DEFAULT_CONNECTION_NAME", "production")

	_, err := LoadConnectionConfig()
	assertErrCodeE(t, err, ErrCodeFailedToFindConnectionInFile)
}

func TestLoadConnectionConfigUnknownKey(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, connectionsFileName, "[default]\nurl = \"http://h:8086\"\nwarehouse = \"w\"\n", 0600)
	t.Setenv("GOINFLUX_HOME", dir)
	t.Setenv("GOINFLUX_DEFAULT_CONNECTION_NAME", "")

	_, err := LoadConnectionConfig()
	assertErrCodeE(t, err, ErrCodeConfigFileParsingFailed)
	assertStringContainsE(t, err.Error(), "warehouse")
}

func TestLoadConnectionConfigFilePermission(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions are not checked on windows")
	}
	dir := t.TempDir()
	writeConfigFile(t, dir, connectionsFileName, testConnectionsToml, 0644)
	t.Setenv("GOINFLUX_HOME", dir)

	_, err := LoadConnectionConfig()
	assertErrCodeE(t, err, ErrCodeInvalidConfig)
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	filePath := writeConfigFile(t, dir, "influx.yaml", `
url: http://10.0.0.5:8086
username: reader
password: secret
database: sensors
precision: ms
chunked: true
chunkSize: 100
timeout: 2m
`, 0600)

	cfg, err := LoadConfigFile(filePath)
	assertNilF(t, err)
	assertEqualE(t, cfg.URL, "http://10.0.0.5:8086")
	assertEqualE(t, cfg.Username, "reader")
	assertEqualE(t, cfg.Database, "sensors")
	assertEqualE(t, cfg.Precision, Millisecond)
	assertTrueE(t, cfg.Chunked)
	assertEqualE(t, cfg.ChunkSize, 100)
	assertEqualE(t, cfg.Timeout, 2*time.Minute)
}

func TestLoadConfigFileTOML(t *testing.T) {
	dir := t.TempDir()
	filePath := writeConfigFile(t, dir, "influx.toml", "url = \"http://h:8086\"\ngzip = true\n", 0600)
	cfg, err := LoadConfigFile(filePath)
	assertNilF(t, err)
	assertTrueE(t, cfg.Gzip)
}

func TestLoadConfigFileErrors(t *testing.T) {
	dir := t.TempDir()
	filePath := writeConfigFile(t, dir, "influx.ini", "url=http://h", 0600)
	_, err := LoadConfigFile(filePath)
	assertErrCodeE(t, err, ErrCodeInvalidConfig)

	filePath = writeConfigFile(t, dir, "broken.yaml", "url: [unterminated", 0600)
	_, err = LoadConfigFile(filePath)
	assertErrCodeE(t, err, ErrCodeConfigFileParsingFailed)

	filePath = writeConfigFile(t, dir, "nourl.yml", "database: x\n", 0600)
	_, err = LoadConfigFile(filePath)
	assertErrCodeE(t, err, ErrCodeInvalidConfig)
}

func TestParseDurationFormats(t *testing.T) {
	testcases := []struct {
		in       interface{}
		expected time.Duration
	}{
		{"1m30s", 90 * time.Second},
		{"45", 45 * time.Second},
		{int64(3), 3 * time.Second},
		{7, 7 * time.Second},
	}
	for _, tc := range testcases {
		d, err := parseDuration(tc.in)
		assertNilF(t, err)
		assertEqualE(t, d, tc.expected)
	}
	_, err := parseDuration(1.5)
	assertNotNilF(t, err)
}
