package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

var _ DocumentStore = (*FileSystemStore)(nil)

// FileSystemStore keeps documents under a local directory. It is used when
// object storage is disabled. Links point at BaseURL and do not expire.
type FileSystemStore struct {
	root    *os.Root
	baseURL string
	logger  *zap.Logger
}

// NewFileSystemStore opens (creating if needed) the base directory
func NewFileSystemStore(basePath, baseURL string, logger *zap.Logger) (*FileSystemStore, error) {
	if basePath == "" {
		return nil, errors.New("storage base path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	root, err := os.OpenRoot(basePath)
	if err != nil {
		return nil, fmt.Errorf("open storage directory: %w", err)
	}
	return &FileSystemStore{root: root, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}, nil
}

// cleanKey rejects keys that could leave the root; os.Root enforces it too
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	cleaned := path.Clean(strings.TrimPrefix(key, "/"))
	if cleaned == "." || !fs.ValidPath(cleaned) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}

func (s *FileSystemStore) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := cleanKey(key)
	if err != nil {
		return err
	}
	if dir := path.Dir(name); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", key, err)
		}
	}
	if err := s.root.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.logger.Debug("Document stored", zap.String("key", name), zap.Int("bytes", len(data)))
	return nil
}

func (s *FileSystemStore) Get(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return &Object{
		Key:         name,
		ContentType: mime.TypeByExtension(path.Ext(name)),
		Size:        info.Size(),
		Body:        f,
	}, nil
}

func (s *FileSystemStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	if _, err := s.root.Stat(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FileSystemStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *FileSystemStore) Link(ctx context.Context, key string, ttl time.Duration) (*Link, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrObjectNotFound
	}
	link := &Link{Key: name, URL: s.baseURL + "/" + name}
	if ttl > 0 {
		link.ExpiresAt = time.Now().Add(ttl)
	}
	return link, nil
}

// Close releases the directory handle
func (s *FileSystemStore) Close() error {
	return s.root.Close()
}
