package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/airregi-sync/pkg/models/domain"
)

type storeFunc func(ctx context.Context, name string, data []byte, containerID string) (string, error)

func (f storeFunc) Store(ctx context.Context, name string, data []byte, containerID string) (string, error) {
	return f(ctx, name, data, containerID)
}

func TestRegistry(t *testing.T) {
	var created Config
	factory := func(_ context.Context, cfg Config) (Store, error) {
		created = cfg
		return storeFunc(func(context.Context, string, []byte, string) (string, error) { return "id", nil }), nil
	}

	r := NewRegistry(map[string]Factory{"drive": factory})
	require.NoError(t, r.Register("s3", factory))

	assert.Error(t, r.Register("s3", factory))
	assert.Error(t, r.Register("", factory))
	assert.Error(t, r.Register("azure", nil))
	assert.Equal(t, []string{"drive", "s3"}, r.Backends())

	store, err := r.Create(context.Background(), Config{Backend: "s3", ContainerID: "bucket"})
	require.NoError(t, err)
	assert.Equal(t, "bucket", created.ContainerID)
	id, err := store.Store(context.Background(), "a.csv", nil, "bucket")
	require.NoError(t, err)
	assert.Equal(t, "id", id)

	_, err = r.Create(context.Background(), Config{Backend: "ftp"})
	assert.ErrorContains(t, err, `"ftp" is not registered`)
}

func TestConfig_Missing(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "drive without oauth",
			cfg:  Config{Backend: "drive", ContainerID: "folder"},
			want: []string{"storage.drive.client_id", "storage.drive.client_secret", "storage.drive.refresh_token"},
		},
		{
			name: "complete drive",
			cfg: Config{Backend: "drive", ContainerID: "folder", Drive: DriveConfig{
				ClientID: "id", ClientSecret: "secret", RefreshToken: "token",
			}},
		},
		{
			name: "s3 relies on the shared profile",
			cfg:  Config{Backend: "s3"},
			want: []string{"storage.container_id"},
		},
		{
			name: "azure with connection string",
			cfg:  Config{Backend: "azure", ContainerID: "reports", Azure: AzureConfig{ConnectionString: "UseDevelopmentStorage=true"}},
		},
		{
			name: "minio",
			cfg:  Config{Backend: "minio", ContainerID: "reports", Minio: MinioConfig{Endpoint: "localhost:9000"}},
			want: []string{"storage.minio.access_key", "storage.minio.secret_key"},
		},
		{
			name: "no backend",
			cfg:  Config{ContainerID: "x"},
			want: []string{"storage.backend"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Missing())
		})
	}
}

func TestObjectKeyAndUnavailable(t *testing.T) {
	assert.Equal(t, "a.csv", ObjectKey("", "a.csv"))
	assert.Equal(t, "airregi/2024/a.csv", ObjectKey("/airregi/2024/", "a.csv"))

	err := Unavailable("upload a.csv", assert.AnError)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, err, assert.AnError)
}
