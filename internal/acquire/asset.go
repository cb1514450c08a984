package acquire

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"deepcheck/internal/fingerprint"
)

// Asset is a transient media file staged for one pipeline execution.
// The owner must call Release on every exit path.
type Asset struct {
	Path     string
	SHA256   string
	Kind     fingerprint.Kind
	Locator  string
	MimeType string
	Size     int64

	once       sync.Once
	releaseErr error
}

// NewAsset hashes the staged file at path and wraps it as an Asset.
func NewAsset(path, locator, mimeType string, kind fingerprint.Kind) (*Asset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open staged asset: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return nil, fmt.Errorf("hash staged asset: %w", err)
	}
	return &Asset{
		Path:     path,
		SHA256:   hex.EncodeToString(hasher.Sum(nil)),
		Kind:     kind,
		Locator:  locator,
		MimeType: mimeType,
		Size:     size,
	}, nil
}

// Release deletes the staged file. Only the first call does any work;
// later calls return the first result.
func (a *Asset) Release() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.releaseErr = fmt.Errorf("remove staged asset %q: %w", a.Path, err)
		}
	})
	return a.releaseErr
}
