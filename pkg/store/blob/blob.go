// Package blob defines the storage collaborator captured reports are handed to.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

// ContentType of every stored report.
const ContentType = "text/csv"

// Store persists one file into a container (a Drive folder, a bucket, a blob
// container) and returns the id the backend assigned to it.
type Store interface {
	Store(ctx context.Context, name string, data []byte, containerID string) (string, error)
}

type Config struct {
	Backend     string `mapstructure:"backend"`
	ContainerID string `mapstructure:"container_id"`
	// Prefix is prepended to object keys by the bucket backends.
	Prefix string `mapstructure:"prefix"`

	Drive DriveConfig `mapstructure:"drive"`
	S3    S3Config    `mapstructure:"s3"`
	Minio MinioConfig `mapstructure:"minio"`
	Azure AzureConfig `mapstructure:"azure"`
}

type DriveConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	TokenURL     string `mapstructure:"token_url"`
	// Endpoint overrides the Drive API base path.
	Endpoint string `mapstructure:"endpoint"`
}

type S3Config struct {
	Profile      string `mapstructure:"profile"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type AzureConfig struct {
	AccountURL       string `mapstructure:"account_url"`
	ConnectionString string `mapstructure:"connection_string"`
}

// Missing lists the settings the selected backend needs but does not have,
// as configuration keys.
func (c Config) Missing() []string {
	var missing []string
	req := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}

	req("storage.container_id", c.ContainerID)
	switch c.Backend {
	case "drive":
		req("storage.drive.client_id", c.Drive.ClientID)
		req("storage.drive.client_secret", c.Drive.ClientSecret)
		req("storage.drive.refresh_token", c.Drive.RefreshToken)
	case "minio":
		req("storage.minio.endpoint", c.Minio.Endpoint)
		req("storage.minio.access_key", c.Minio.AccessKey)
		req("storage.minio.secret_key", c.Minio.SecretKey)
	case "azure":
		if c.Azure.AccountURL == "" && c.Azure.ConnectionString == "" {
			missing = append(missing, "storage.azure.account_url")
		}
	case "s3":
	case "":
		missing = append(missing, "storage.backend")
	}
	return missing
}

// ObjectKey joins prefix and name into a bucket key.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Unavailable marks err as a storage collaborator failure.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
}
