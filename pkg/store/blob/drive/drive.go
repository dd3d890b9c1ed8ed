// Package drive stores reports in a Google Drive folder.
package drive

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/de-tools/airregi-sync/pkg/store/blob"
)

const defaultTokenURL = "https://oauth2.googleapis.com/token"

type Store struct {
	svc *drive.Service
}

// Factory authenticates with the stored refresh token; no interactive consent.
func Factory(ctx context.Context, cfg blob.Config) (blob.Store, error) {
	dc := cfg.Drive
	tokenURL := dc.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	oauthCfg := &oauth2.Config{
		ClientID:     dc.ClientID,
		ClientSecret: dc.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{drive.DriveFileScope},
	}
	httpClient := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: dc.RefreshToken})

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if dc.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(dc.Endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &Store{svc: svc}, nil
}

// Store uploads data as a new file in the folder folderID.
func (s *Store) Store(ctx context.Context, name string, data []byte, folderID string) (string, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: blob.ContentType,
		Parents:  []string{folderID},
	}

	created, err := s.svc.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(blob.ContentType)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", blob.Unavailable("drive upload "+name, err)
	}
	return created.Id, nil
}
