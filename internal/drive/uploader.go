package drive

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Uploader pushes capture files into a Drive folder and hands back links
// anyone with the URL can open. The links go straight into ledger rows, so
// they have to work without a Google login.
type Uploader struct {
	service  *drive.Service
	folderID string
	logger   zerolog.Logger
}

func NewUploader(ctx context.Context, credentialsFile, folderID string) (*Uploader, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Uploader{
		service:  service,
		folderID: folderID,
		logger:   log.With().Str("component", "uploader").Logger(),
	}, nil
}

// Upload stores the file under the configured folder and returns its share
// link. The file is made readable by anyone holding the link.
func (u *Uploader) Upload(ctx context.Context, path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	defer f.Close()

	meta := &drive.File{Name: name}
	if u.folderID != "" {
		meta.Parents = []string{u.folderID}
	}

	created, err := u.service.Files.Create(meta).Media(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	_, err = u.service.Permissions.Create(created.Id, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to share %s: %w", name, err)
	}

	link := fmt.Sprintf("https://drive.google.com/file/d/%s/view?usp=sharing", created.Id)
	u.logger.Debug().Str("file", name).Str("link", link).Msg("capture uploaded")

	return link, nil
}
