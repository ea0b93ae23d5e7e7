// Package upload stores chat images with Cloudinary.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"

	"github.com/Bharath-S-J/Intent-Chat/config"
)

var (
	ErrNotImage      = errors.New("file is not an image")
	ErrEmptyUpload   = errors.New("empty upload")
	ErrNotConfigured = errors.New("cloudinary is not configured")
)

// autoTransformation lets Cloudinary pick quality and delivery format.
const autoTransformation = "f_auto,q_auto"

// DetectImage sniffs data and returns its MIME type when it is an image.
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mtype.String())
	}
	return mtype.String(), nil
}

// Cloudinary performs signed uploads through the Cloudinary SDK.
type Cloudinary struct {
	cfg    config.UploadConfig
	cld    *cloudinary.Cloudinary
	logger *slog.Logger
}

// NewCloudinary builds the uploader. Without credentials it returns an
// unconfigured uploader whose Upload fails with ErrNotConfigured.
func NewCloudinary(cfg config.UploadConfig, logger *slog.Logger) (*Cloudinary, error) {
	c := &Cloudinary{cfg: cfg, logger: logger}
	if !c.Configured() {
		return c, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	if cfg.BaseURL != "" {
		cld.Upload.Config.API.UploadPrefix = strings.TrimRight(cfg.BaseURL, "/")
	}
	c.cld = cld
	return c, nil
}

// Configured reports whether credentials are present.
func (c *Cloudinary) Configured() bool {
	return c.cfg.CloudName != "" && c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

// Upload sends data and returns the secure URL of the stored image.
func (c *Cloudinary) Upload(ctx context.Context, data []byte) (string, error) {
	mtype, err := DetectImage(data)
	if err != nil {
		return "", err
	}
	if c.cld == nil {
		return "", ErrNotConfigured
	}

	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:         c.cfg.Folder,
		Transformation: autoTransformation,
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload rejected: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("upload rejected: no secure url in response")
	}

	c.logger.Info("Image uploaded", "bytes", len(data), "mime", mtype, "public_id", resp.PublicID)
	return resp.SecureURL, nil
}
