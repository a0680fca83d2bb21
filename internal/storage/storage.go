package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Package storage is the content store for raw uploads (S3-compatible).
// Uploads are streamed; nothing is written to local disk.

// Key prefixes for the two upload paths.
const (
	PrefixAnswerKeys  = "answer-keys"
	PrefixSubmissions = "submissions"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1 if unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the content store used by the grading service.
type Storage interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
}

// ObjectKey namespaces an uploaded filename under prefix with a fresh UUID,
// so uploads sharing a filename never overwrite each other:
// "submissions/1b4e.../essay.docx".
func ObjectKey(prefix, filename string) string {
	return path.Join(prefix, uuid.NewString(), baseName(filename))
}

func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "upload"
	}
	return name
}
