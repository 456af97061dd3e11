package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("object not found")

type Object struct {
	Key     string
	Size    int64
	Updated time.Time
}

// DocumentStore is the object storage that holds uploaded documents.
type DocumentStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Object, error)
	PublicURL(key string) string
}

// NewKey builds "{ownerId}/{unixMillis}-{filename}". The timestamp keeps
// repeated uploads of the same file from colliding.
func NewKey(ownerID uuid.UUID, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s", ownerID.String(), now.UnixMilli(), SanitizeFilename(filename))
}

// DisplayName strips the owner directory and timestamp prefix from a key.
func DisplayName(key string) string {
	base := path.Base(key)
	parts := strings.SplitN(base, "-", 2)
	if len(parts) < 2 {
		return base
	}
	return parts[1]
}

func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		return "document.pdf"
	}
	return name
}

// validKey rejects keys that could escape the owner's directory.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return true
}
