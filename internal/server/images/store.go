// Package images handles post image uploads: extracting the multipart file
// from a request, filtering by MIME type, and persisting the bytes in an
// S3-compatible object store.
package images

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
)

// Store persists image payloads and serves them back via presigned URLs.
type Store interface {
	Save(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// FieldName is the single multipart field the upload layer accepts.
const FieldName = "image"

const maxUploadMemory = 10 << 20 // 10 MiB buffered in memory, rest spills to disk

// allowedTypes mirrors the upload filter of the public API: anything else is
// silently treated as if no file was sent.
var allowedTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpg":  {},
	"image/jpeg": {},
}

// Upload is an accepted multipart image file.
type Upload struct {
	Filename    string
	ContentType string
	File        multipart.File
}

func (u *Upload) Close() error { return u.File.Close() }

// StorageKey builds the object key for a freshly uploaded file.
func StorageKey(filename string) string {
	return fmt.Sprintf("images/%v-%s", uuid.New(), filename)
}

// ExtractUpload pulls the image file out of a multipart request. It returns
// (nil, nil) when the request carries no file or the file's declared MIME
// type is not allowed: the filter drops such files without erroring, and the
// handler decides whether a missing file is a validation problem.
func ExtractUpload(r *http.Request) (*Upload, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		if err == http.ErrNotMultipart || err == http.ErrMissingBoundary {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	file, header, err := r.FormFile(FieldName)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, fmt.Errorf("reading form file: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if _, ok := allowedTypes[contentType]; !ok {
		_ = file.Close()
		return nil, nil
	}

	return &Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		File:        file,
	}, nil
}
