package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a storage key does not exist.
var ErrNotFound = errors.New("object not found")

// StoredObject describes one blob owned by a user.
type StoredObject struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"sizeBytes"`
	MimeType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
}

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (StoredObject, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
	// URL returns a link for the object, or "" when the backend has none.
	URL(ctx context.Context, storageKey string) (string, error)
	List(ctx context.Context, userID string) ([]StoredObject, error)
	Provider() string
}
