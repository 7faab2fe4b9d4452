// Package storage archives acquired court document PDFs as immutable
// blobs. Two backends implement the same interface: the local
// filesystem for development and Cloudflare R2 for production. Keys
// are derived from archive identifiers, never random, so every
// acquisition path for a document lands on the same object and the
// store stays deduplicated.
package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"strings"
	"time"
)

// Storage is the blob store the acquisition and purchase flows write
// documents into. All methods honor context cancellation.
type Storage interface {
	// Put stores data at key. Unless opts.Overwrite is set, writing to
	// an existing key fails with ErrKeyExists; acquisition paths rely
	// on that to detect a concurrent writer having won.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key. The caller owns the returned
	// ReadCloser. A missing key yields ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// URL returns an address a client can fetch the object from.
	// Backends holding private objects return a presigned URL valid
	// for expires; backends serving public objects ignore expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions control a single Put.
type PutOptions struct {
	// ContentType is stored alongside the object. When empty it is
	// derived from the key's extension.
	ContentType string

	// MaxSize rejects payloads larger than this many bytes with
	// ErrTooLarge. Zero means unlimited.
	MaxSize int64

	// Overwrite replaces an existing object instead of failing with
	// ErrKeyExists.
	Overwrite bool
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string // empty on backends without ETags
}

// LocalConfig configures filesystem storage.
type LocalConfig struct {
	// BasePath is the directory objects are written under, for
	// example /var/lib/docketwatch/blobs.
	BasePath string

	// BaseURL is the public prefix files are served from, for example
	// http://localhost:8080/files.
	BaseURL string
}

// R2Config configures Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// Region is required by the AWS SDK. R2 accepts any value and
	// documents "auto", which is the default.
	Region string
}

// Provider names accepted by the STORAGE_PROVIDER setting.
const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// DocumentKey builds the storage key for an archived court document.
// Free downloads, purchases, and auto-download jobs all derive the key
// from the same archive identifiers, so a document is stored at most
// once no matter which path acquired it.
//
// Layout: dockets/{docketID}/documents/{documentID}.pdf
func DocumentKey(docketID, documentID string) string {
	return fmt.Sprintf("dockets/%s/documents/%s.pdf", docketID, documentID)
}

// validateKey rejects keys that are empty, rooted, or contain dot-dot
// elements. Keys are slash-separated regardless of platform, so
// fs.ValidPath is exactly the contract wanted here.
func validateKey(key string) error {
	if !fs.ValidPath(key) || strings.ContainsRune(key, '\\') {
		return ErrInvalidKey
	}
	return nil
}

// contentTypeForKey derives a MIME type from the key's extension,
// which for document keys is always .pdf. Unknown extensions fall
// back to the generic binary type.
func contentTypeForKey(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
