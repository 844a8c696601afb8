// Package media uploads user files to Cloudinary.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var ErrDisabled = errors.New("media uploads not configured")

const (
	FolderAvatars = "edunet/avatars"
	FolderPosts   = "edunet/posts"
)

var transformations = map[string]string{
	FolderAvatars: "c_limit,w_400,h_400,q_auto",
	FolderPosts:   "c_limit,w_1200,h_1200,q_auto",
}

// Uploader stores a file and returns its public HTTPS URL.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder, publicID string) (string, error)
}

type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// New returns a Cloudinary uploader, or Disabled when url is empty.
func New(url string) (Uploader, error) {
	if url == "" {
		return Disabled{}, nil
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         folder,
		PublicID:       publicID,
		Transformation: transformations[folder],
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// Disabled rejects every upload with ErrDisabled.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader, string, string) (string, error) {
	return "", ErrDisabled
}
