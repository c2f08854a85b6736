package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// DefaultCloudinaryURL is the Cloudinary API base.
const DefaultCloudinaryURL = "https://api.cloudinary.com/v1_1"

// CloudinaryConfig configures unsigned uploads.
type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string

	// BaseURL overrides DefaultCloudinaryURL. Used by tests.
	BaseURL string

	// Timeout bounds a single upload. Defaults to 60s.
	Timeout time.Duration
}

// CloudinaryUploader posts files to Cloudinary's unsigned image upload
// endpoint and returns the hosted secure URL.
type CloudinaryUploader struct {
	endpoint   string
	preset     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCloudinaryUploader creates an uploader for cfg.CloudName.
func NewCloudinaryUploader(cfg CloudinaryConfig, logger *slog.Logger) (*CloudinaryUploader, error) {
	if cfg.CloudName == "" || cfg.UploadPreset == "" {
		return nil, fmt.Errorf("cloudinary cloud name and upload preset are required")
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultCloudinaryURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &CloudinaryUploader{
		endpoint:   fmt.Sprintf("%s/%s/image/upload", strings.TrimSuffix(base, "/"), cfg.CloudName),
		preset:     cfg.UploadPreset,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Bytes     int64  `json:"bytes"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends one file and returns its secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", ContentTypeOrWildcard(contentType, "image"))
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", &StorageError{Op: "Upload", Key: filename, Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return "", &StorageError{Op: "Upload", Key: filename, Err: err}
	}
	if err := mw.WriteField("upload_preset", u.preset); err != nil {
		return "", &StorageError{Op: "Upload", Key: filename, Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &StorageError{Op: "Upload", Key: filename, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", &StorageError{Op: "Upload", Key: filename, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", &StorageError{Op: "Upload", Key: filename, Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &StorageError{Op: "Upload", Key: filename, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var out cloudinaryResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "", &StorageError{Op: "Upload", Key: filename, Err: fmt.Errorf("%w: %s", ErrAccessDenied, msg)}
		case http.StatusRequestEntityTooLarge:
			return "", &StorageError{Op: "Upload", Key: filename, Err: ErrTooLarge}
		}
		return "", &StorageError{Op: "Upload", Key: filename, Err: fmt.Errorf("cloudinary returned %d: %s", resp.StatusCode, msg)}
	}

	if out.SecureURL == "" {
		return "", &StorageError{Op: "Upload", Key: filename, Err: fmt.Errorf("cloudinary response missing secure_url")}
	}

	u.logger.Debug("uploaded to cloudinary",
		"public_id", out.PublicID,
		"bytes", out.Bytes,
	)
	return out.SecureURL, nil
}
