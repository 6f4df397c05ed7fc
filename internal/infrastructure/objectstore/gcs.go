package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
)

type File struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type UploadResult struct {
	SecureURL string
	PublicID  string
}

var contentTypeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// GCSUploader stores evidence images in a Cloud Storage bucket.
type GCSUploader struct {
	bucket        string
	publicBaseURL string
	newWriter     func(ctx context.Context, object, contentType string) io.WriteCloser
	newName       func() string
}

func NewGCSUploader(client *gcs.Client, bucket, publicBaseURL string) (*GCSUploader, error) {
	if client == nil {
		return nil, errors.New("storage uploader: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage uploader: bucket is required")
	}

	return &GCSUploader{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		newWriter: func(ctx context.Context, object, contentType string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = contentType
			return w
		},
		newName: func() string { return ulid.Make().String() },
	}, nil
}

// Upload writes the file under folder with a ULID name and returns its
// public URL and object name.
func (u *GCSUploader) Upload(ctx context.Context, file File, folder string) (UploadResult, error) {
	if file.Content == nil {
		return UploadResult{}, errors.New("storage uploader: file content is required")
	}

	object := path.Join(strings.Trim(folder, "/"), u.newName()+extensionFor(file))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := u.newWriter(ctx, object, file.ContentType)
	if _, err := io.Copy(w, file.Content); err != nil {
		// Cancelling the context aborts the pending upload.
		cancel()
		_ = w.Close()
		return UploadResult{}, fmt.Errorf("storage uploader: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("storage uploader: finalize %s: %w", object, err)
	}

	return UploadResult{
		SecureURL: fmt.Sprintf("%s/%s/%s", u.publicBaseURL, u.bucket, object),
		PublicID:  object,
	}, nil
}

func extensionFor(file File) string {
	if ext, ok := contentTypeExtensions[strings.ToLower(file.ContentType)]; ok {
		return ext
	}
	return strings.ToLower(filepath.Ext(file.Filename))
}
