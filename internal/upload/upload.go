package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"bggsync/internal/config"
)

// Uploader is the object-storage boundary: one named blob per call.
type Uploader interface {
	Upload(ctx context.Context, name, path string) error
}

// BlobUploader PUTs files to a blob-store endpoint with bearer auth.
type BlobUploader struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func NewBlobUploader(cfg config.Config) *BlobUploader {
	return &BlobUploader{
		endpoint:   strings.TrimRight(cfg.BlobEndpoint, "/"),
		token:      cfg.BlobToken,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
	}
}

func (u *BlobUploader) Upload(ctx context.Context, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.endpoint+"/"+name, f)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Content-Type", "text/csv")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("blob upload %s: status=%d body=%s", name, resp.StatusCode, string(body))
	}
	return nil
}
