package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func setSecrets(t *testing.T) {
	t.Setenv("AIRREGI_ID", "owner@example.com")
	t.Setenv("AIRREGI_PASS", "hunter2")
	t.Setenv("DRIVE_FOLDER_ID", "folder-1")
	t.Setenv("OAUTH_CLIENT_ID", "client")
	t.Setenv("OAUTH_CLIENT_SECRET", "client-secret")
	t.Setenv("OAUTH_REFRESH_TOKEN", "refresh")
}

func TestLoad_DefaultsAndEnvironment(t *testing.T) {
	// Given
	setSecrets(t)

	// When
	cfg, err := Load(context.Background(), LoadOptions{})

	// Then
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "owner@example.com", cfg.Console.Identity)
	assert.Equal(t, DefaultLoginURL, cfg.Console.LoginURL)
	assert.Equal(t, "drive", cfg.Storage.Backend)
	assert.Equal(t, "folder-1", cfg.Storage.ContainerID)
	assert.Equal(t, "refresh", cfg.Storage.Drive.RefreshToken)
	assert.Equal(t, domain.PolicyFailFast, cfg.Run.Policy)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 60*time.Second, cfg.Session.LandingTimeout)
	assert.Equal(t, "#account", cfg.Session.Selectors.Account)
	assert.Equal(t, 24, cfg.Calendar.MaxSteps)
	assert.Equal(t, 120*time.Second, cfg.Fetch.DownloadTimeout)
	assert.Len(t, cfg.Catalog(), 2)
	assert.Equal(t, domain.Credentials{Identity: "owner@example.com", Secret: "hunter2"}, cfg.Credentials())
}

func TestLoad_PrefixedEnvironment(t *testing.T) {
	setSecrets(t)
	t.Setenv("AIRREGI_STORAGE_BACKEND", "s3")
	t.Setenv("AIRREGI_RUN_POLICY", "continue")
	t.Setenv("AIRREGI_CALENDAR_SETTLE_DELAY", "1s")

	cfg, err := Load(context.Background(), LoadOptions{})

	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, domain.PolicyContinue, cfg.Run.Policy)
	assert.Equal(t, time.Second, cfg.Calendar.SettleDelay)
}

func TestLoad_FileProfileAndOverrides(t *testing.T) {
	// Given a YAML file, a credentials profile and a flag override
	configFile := writeFile(t, "airregi.yaml", `
storage:
  backend: minio
  container_id: from-file
  minio:
    endpoint: localhost:9000
    access_key: minio
    secret_key: minio123
run:
  timeout: 5m
reports:
  - id: daily
    name: 日別売上
    steps:
      - kind: navigate
        url: https://pos.example.test/view/salesList
      - kind: download
        stage: export
        selector: button.salse-csv-dl
`)
	credentials := writeFile(t, "credentials", `
[default]
identity = default-user

[shop-2]
identity = shop2@example.com
secret = shop2-secret
container_id = shop2-bucket
`)

	// When
	cfg, err := Load(context.Background(), LoadOptions{
		ConfigFile:      configFile,
		CredentialsFile: credentials,
		Profile:         "shop-2",
		Overrides:       map[string]any{"run.date": "2024-05-01"},
	})

	// Then
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "shop2@example.com", cfg.Console.Identity)
	assert.Equal(t, "shop2-bucket", cfg.Storage.ContainerID)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, "minio123", cfg.Storage.Minio.SecretKey)
	assert.Equal(t, 5*time.Minute, cfg.Run.Timeout)
	assert.Equal(t, "2024-05-01", cfg.Run.Date)

	catalog := cfg.Catalog()
	require.Len(t, catalog, 1)
	assert.Equal(t, "daily", catalog[0].ID)
	assert.Equal(t, domain.StepDownload, catalog[0].Steps[1].Kind)
	assert.Equal(t, "export", catalog[0].Steps[1].Stage)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, "test.env", "AIRREGI_STORAGE_PREFIX=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("AIRREGI_STORAGE_PREFIX") })

	cfg, err := Load(context.Background(), LoadOptions{EnvFile: envFile})

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Storage.Prefix)

	_, err = Load(context.Background(), LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(context.Background(), LoadOptions{ConfigFile: writeFile(t, "bad.yaml", "storage: [unclosed")})
	assert.Error(t, err)

	credentials := writeFile(t, "credentials", "[default]\nidentity = x\n")
	_, err = Load(context.Background(), LoadOptions{CredentialsFile: credentials, Profile: "nope"})
	assert.ErrorContains(t, err, "profile nope not found")
}

func TestValidate_MissingSecrets(t *testing.T) {
	cfg, err := Load(context.Background(), LoadOptions{})
	require.NoError(t, err)

	err = cfg.Validate()

	var incomplete *domain.ConfigurationIncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{
		"console.identity (AIRREGI_ID)",
		"console.secret (AIRREGI_PASS)",
		"storage.container_id (DRIVE_FOLDER_ID)",
		"storage.drive.client_id (OAUTH_CLIENT_ID)",
		"storage.drive.client_secret (OAUTH_CLIENT_SECRET)",
		"storage.drive.refresh_token (OAUTH_REFRESH_TOKEN)",
	}, incomplete.Missing)
}

func TestValidate_RejectsUnknownPolicy(t *testing.T) {
	setSecrets(t)
	cfg, err := Load(context.Background(), LoadOptions{Overrides: map[string]any{"run.policy": "retry"}})
	require.NoError(t, err)

	err = cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown failure policy "retry"`)
}

func TestValidate_RejectsNonPositiveTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout any
	}{
		{name: "zero", timeout: "0s"},
		{name: "negative", timeout: "-1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			setSecrets(t)
			cfg, err := Load(context.Background(), LoadOptions{Overrides: map[string]any{"run.timeout": tt.timeout}})
			require.NoError(t, err)

			// When
			err = cfg.Validate()

			// Then
			require.Error(t, err)
			assert.Contains(t, err.Error(), "run.timeout must be positive")
		})
	}
}

func TestRunContext(t *testing.T) {
	// 2024-05-20 23:30 in Tokyo
	now := time.Date(2024, time.May, 20, 14, 30, 0, 0, time.UTC)
	cfg := &Config{Console: ConsoleConfig{Endpoints: domain.Endpoints{LoginURL: "l", ProductSalesURL: "p"}}}

	rc, err := cfg.RunContext(now)
	require.NoError(t, err)
	assert.True(t, rc.IsToday())
	assert.Equal(t, "20240520", rc.TargetDate.Format())
	assert.Equal(t, "l", rc.Endpoints.LoginURL)

	cfg.Run.Date = "2024-04-30"
	rc, err = cfg.RunContext(now)
	require.NoError(t, err)
	assert.False(t, rc.IsToday())
	assert.Equal(t, "20240430", rc.TargetDate.Format())

	cfg.Run.Date = "2024-05-21"
	_, err = cfg.RunContext(now)
	assert.ErrorContains(t, err, "in the future")
}

func TestRegistry_Profiles(t *testing.T) {
	path := writeFile(t, "credentials", "[a]\nidentity = x\n\n[b]\nsecret = y\nbackend = s3\n")
	registry, err := NewRegistry(path)
	require.NoError(t, err)

	profiles, err := registry.GetProfiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, profiles)

	p, err := registry.GetProfile(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "y", p.Secret)
	assert.Equal(t, "s3", p.Backend)
	assert.Equal(t, map[string]any{
		"console": map[string]any{"secret": "y"},
		"storage": map[string]any{"backend": "s3"},
	}, p.settings())
}
