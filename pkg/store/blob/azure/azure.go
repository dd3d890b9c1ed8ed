// Package azure stores reports in an Azure Blob Storage container.
package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azblobblob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/de-tools/airregi-sync/pkg/store/blob"
)

type BufferUploader interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

type Store struct {
	client BufferUploader
	prefix string
}

func New(client BufferUploader, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Factory prefers a connection string (e.g. Azurite) and otherwise uses the
// default credential chain against the account URL.
func Factory(_ context.Context, cfg blob.Config) (blob.Store, error) {
	ac := cfg.Azure
	if ac.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(ac.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client from connection string: %w", err)
		}
		return New(client, cfg.Prefix), nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	client, err := azblob.NewClient(ac.AccountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return New(client, cfg.Prefix), nil
}

func (s *Store) Store(ctx context.Context, name string, data []byte, container string) (string, error) {
	key := blob.ObjectKey(s.prefix, name)
	contentType := blob.ContentType
	_, err := s.client.UploadBuffer(ctx, container, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &azblobblob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", blob.Unavailable("azure upload "+key, err)
	}
	return container + "/" + key, nil
}
