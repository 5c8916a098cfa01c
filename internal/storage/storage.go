package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/servicedesk/internal/config"
)

var (
	ErrObjectNotFound   = errors.New("storage object not found")
	ErrTooLarge         = errors.New("upload exceeds size limit")
	ErrDeniedExtension  = errors.New("file extension not allowed")
	ErrInvalidObjectKey = errors.New("invalid object key")
)

// FileStore holds attachment bytes under opaque keys.
type FileStore interface {
	// Put stores r under key and returns the number of bytes written.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
}

// LocalStore keeps objects on the local filesystem below root.
type LocalStore struct {
	root     string
	maxBytes int64
}

// NewLocalStore builds a store rooted at cfg.Root.
func NewLocalStore(cfg config.StorageConfig) *LocalStore {
	return &LocalStore{root: cfg.Root, maxBytes: cfg.MaxUploadBytes}
}

// ValidateKey accepts only relative, slash separated keys that are already
// in clean form and contain no ".." segment.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, "\\\x00") || strings.HasPrefix(key, "/") {
		return ErrInvalidObjectKey
	}
	if path.Clean(key) != key {
		return ErrInvalidObjectKey
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return ErrInvalidObjectKey
		}
	}
	return nil
}

func (s *LocalStore) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put writes through a temp file so a failed or oversized upload never
// leaves a partial object behind.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	target, err := s.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src})
	closeErr := tmp.Close()
	if err != nil {
		return 0, fmt.Errorf("write object: %w", err)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("close object: %w", closeErr)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		return 0, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("commit object: %w", err)
	}
	return written, nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// UploadPolicy validates incoming filenames.
type UploadPolicy struct {
	MaxBytes int64
	denied   map[string]struct{}
}

// NewUploadPolicy builds the policy from storage configuration.
func NewUploadPolicy(cfg config.StorageConfig) UploadPolicy {
	denied := make(map[string]struct{}, len(cfg.DeniedExtensions))
	for _, ext := range cfg.DeniedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		denied[ext] = struct{}{}
	}
	return UploadPolicy{MaxBytes: cfg.MaxUploadBytes, denied: denied}
}

// CheckFilename returns the lower-cased extension of name or
// ErrDeniedExtension.
func (p UploadPolicy) CheckFilename(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, blocked := p.denied[ext]; blocked {
		return "", ErrDeniedExtension
	}
	return ext, nil
}

// CheckSize reports ErrTooLarge for a declared size above the limit.
func (p UploadPolicy) CheckSize(size int64) error {
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return ErrTooLarge
	}
	return nil
}

// NewKey returns uploads/<employee>/<yyyy>/<mm>/<dd>/<random hex><ext>.
func NewKey(employeeNo string, now time.Time, ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%s/%s%s", KeyPrefix(employeeNo), now.UTC().Format("2006/01/02"), id, ext)
}

// KeyPrefix is the key prefix of every object uploaded by employeeNo.
func KeyPrefix(employeeNo string) string {
	owner := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(employeeNo)
	if owner == "" {
		owner = "anonymous"
	}
	return "uploads/" + owner + "/"
}
