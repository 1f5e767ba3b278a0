package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/gospiritual/yacy-search-server/config"
	cmtos "github.com/gospiritual/yacy-search-server/libs/os"
)

// ErrPublishDisabled is returned by NewUploader when no publication method
// is configured.
var ErrPublishDisabled = errors.New("seed list publication is disabled")

// Uploader moves an exported seed list file to the place it is served from.
// The returned string is a human readable log of what was done.
type Uploader interface {
	UploadSeedFile(ctx context.Context, dir Directory, path string) (string, error)
}

// NewUploader returns the Uploader selected by cfg.Method.
func NewUploader(ctx context.Context, cfg *config.PublishConfig) (Uploader, error) {
	switch cfg.Method {
	case config.PublishMethodHTTP:
		return NewHTTPUploader(cfg.UploadURL), nil
	case config.PublishMethodFile:
		return NewFileUploader(cfg.FilePath), nil
	case config.PublishMethodS3:
		return NewS3Uploader(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Key:       cfg.S3Key,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case config.PublishMethodNone, "":
		return nil, ErrPublishDisabled
	default:
		return nil, fmt.Errorf("unknown publish method %q", cfg.Method)
	}
}

//-----------------------------------------------------------------------------

// PeerHashHeader carries the hash of the uploading peer.
const PeerHashHeader = "X-Seed-Hash"

// HTTPUploader stores the seed list with an HTTP PUT request.
type HTTPUploader struct {
	url    string
	client *http.Client
}

var _ Uploader = (*HTTPUploader)(nil)

// NewHTTPUploader returns an uploader that PUTs the file to url.
func NewHTTPUploader(url string) *HTTPUploader {
	return &HTTPUploader{url: url, client: http.DefaultClient}
}

// UploadSeedFile implements Uploader.
func (u *HTTPUploader) UploadSeedFile(ctx context.Context, dir Directory, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.url, f)
	if err != nil {
		return "", err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "text/plain")
	if me := dir.MySeed(); me != nil {
		req.Header.Set(PeerHashHeader, me.Hash)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("PUT %s: %s", u.url, resp.Status)
	}
	return fmt.Sprintf("PUT %s: %d bytes, %s", u.url, info.Size(), resp.Status), nil
}

//-----------------------------------------------------------------------------

// FileUploader copies the seed list into a local path, typically a directory
// served by a web server.
type FileUploader struct {
	path string
}

var _ Uploader = (*FileUploader)(nil)

// NewFileUploader returns an uploader that copies the file to path.
func NewFileUploader(path string) *FileUploader {
	return &FileUploader{path: path}
}

// UploadSeedFile implements Uploader. The destination is replaced
// atomically.
func (u *FileUploader) UploadSeedFile(ctx context.Context, _ Directory, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(u.path), 0o755); err != nil {
		return "", err
	}
	tmp := u.path + ".tmp"
	if err := cmtos.CopyFile(path, tmp); err != nil {
		return "", errors.Wrap(err, "copy")
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, u.path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return "copied seed list to " + u.path, nil
}
