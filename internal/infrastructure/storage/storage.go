// Package storage archives generated documents in object storage.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a key has no stored object
var ErrObjectNotFound = errors.New("storage: object not found")

// Object is a stored document with its metadata
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Link is a time-limited URL to a stored document
type Link struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentStore persists documents by key
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// Link returns a URL the caller can hand to a client. ttl <= 0 uses the
	// store's default.
	Link(ctx context.Context, key string, ttl time.Duration) (*Link, error)
}
