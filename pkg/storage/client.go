package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "clinicdesk/internal/errors"
)

// Client uploads objects to the storage bucket and produces the public
// URLs that get persisted alongside messages.
type Client interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	PublicURL(objectPath string) string
	HasCredentials() bool
}

type ClientConfig struct {
	BaseURL    string
	Bucket     string
	PathPrefix string
	APIKey     string
}

type bucketClient struct {
	baseURL    string
	bucket     string
	pathPrefix string
	apiKey     string
	client     *http.Client
}

func NewClient(cfg ClientConfig) Client {
	return &bucketClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		bucket:     cfg.Bucket,
		pathPrefix: strings.Trim(cfg.PathPrefix, "/"),
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *bucketClient) HasCredentials() bool {
	return c.baseURL != "" && c.bucket != "" && c.apiKey != ""
}

// Upload stores the object and returns its public URL. Existing objects at
// the same path are overwritten; media re-fetches for a replayed event must
// not fail the upload.
func (c *bucketClient) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	fullPath := c.objectPath(objectPath)
	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, fullPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeStorageAPI, "storage upload failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", apperrors.Wrap(
			fmt.Errorf("storage returned status %d: %s", resp.StatusCode, string(body)),
			apperrors.ErrCodeStorageAPI, "storage upload rejected")
	}

	return c.PublicURL(objectPath), nil
}

// PublicURL returns the stable public URL for an uploaded object.
func (c *bucketClient) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, c.objectPath(objectPath))
}

func (c *bucketClient) objectPath(objectPath string) string {
	objectPath = strings.TrimLeft(objectPath, "/")
	if c.pathPrefix == "" {
		return objectPath
	}
	return c.pathPrefix + "/" + objectPath
}
