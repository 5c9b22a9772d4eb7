package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"resume-analyzer/internal/shared/storage/object"
	"resume-analyzer/internal/shared/util"
)

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir   string
	publicURL string
}

// New creates a local object store rooted at baseDir. When publicURL is set,
// URL returns publicURL joined with the storage key.
func New(baseDir, publicURL string) *Store {
	return &Store{baseDir: baseDir, publicURL: strings.TrimRight(strings.TrimSpace(publicURL), "/")}
}

func (s *Store) Provider() string { return "local" }

// Save writes the reader to disk under the user's namespace with a random prefix.
func (s *Store) Save(ctx context.Context, userID string, fileName string, r io.Reader) (object.StoredObject, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return object.StoredObject{}, fmt.Errorf("sanitize file name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return object.StoredObject{}, err
	}

	storageUserKey := util.HashUserKey(userID)
	finalName := util.StoredFileName(sanitizedName)

	dirPath := filepath.Join(s.baseDir, storageUserKey)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return object.StoredObject{}, fmt.Errorf("mkdir: %w", err)
	}

	fullPath := filepath.Join(dirPath, finalName)
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return object.StoredObject{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return object.StoredObject{}, fmt.Errorf("read sniff: %w", readErr)
	}
	mimeType := http.DetectContentType(sniff[:n])

	size := int64(0)
	if n > 0 {
		if _, err := f.Write(sniff[:n]); err != nil {
			return object.StoredObject{}, fmt.Errorf("write sniff: %w", err)
		}
		size += int64(n)
	}
	written, err := io.Copy(f, r)
	if err != nil {
		return object.StoredObject{}, fmt.Errorf("write body: %w", err)
	}
	size += written

	info, err := f.Stat()
	if err != nil {
		return object.StoredObject{}, fmt.Errorf("stat: %w", err)
	}

	return object.StoredObject{
		Key:       filepath.ToSlash(filepath.Join(storageUserKey, finalName)),
		Name:      sanitizedName,
		SizeBytes: size,
		MimeType:  mimeType,
		CreatedAt: info.ModTime().UTC(),
	}, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, object.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes a stored object. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func (s *Store) URL(ctx context.Context, storageKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := s.resolve(storageKey); err != nil {
		return "", err
	}
	if s.publicURL == "" {
		return "", nil
	}
	parts := strings.Split(filepath.ToSlash(filepath.Clean(storageKey)), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.publicURL + "/" + strings.Join(parts, "/"), nil
}

// List returns the user's objects, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]object.StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	storageUserKey := util.HashUserKey(userID)
	entries, err := os.ReadDir(filepath.Join(s.baseDir, storageUserKey))
	if errors.Is(err, fs.ErrNotExist) {
		return []object.StoredObject{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	out := make([]object.StoredObject, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, object.StoredObject{
			Key:       storageUserKey + "/" + entry.Name(),
			Name:      util.OriginalFileName(entry.Name()),
			SizeBytes: info.Size(),
			MimeType:  mimeFromName(entry.Name()),
			CreatedAt: info.ModTime().UTC(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) resolve(storageKey string) (string, error) {
	clean := filepath.Clean(storageKey)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	return filepath.Join(s.baseDir, clean), nil
}

func mimeFromName(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "application/pdf"
	}
	return "application/octet-stream"
}

var _ object.ObjectStore = (*Store)(nil)
