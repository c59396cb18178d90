package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssargent/pcapidx/pkg/codec"
)

// DefaultSuffix is appended to a capture path to name its sidecar.
const DefaultSuffix = ".offset.index"

// SidecarConfig holds configuration for the sidecar store
type SidecarConfig struct {
	Suffix      string            // Appended to the capture path (default DefaultSuffix)
	Path        string            // Explicit sidecar path, overrides Suffix
	Compression codec.Compression // Body compression for saved tables
}

// SidecarStore keeps each table in a file next to its capture.
type SidecarStore struct {
	config SidecarConfig
	codec  *codec.TableCodec
}

// NewSidecarStore creates a new sidecar store
func NewSidecarStore(config SidecarConfig) *SidecarStore {
	if config.Suffix == "" {
		config.Suffix = DefaultSuffix
	}
	return &SidecarStore{
		config: config,
		codec:  codec.NewTableCodec(),
	}
}

// Location returns the sidecar path for source
func (s *SidecarStore) Location(source string) string {
	if s.config.Path != "" {
		return s.config.Path
	}
	return source + s.config.Suffix
}

// Load reads and decodes the sidecar for source
func (s *SidecarStore) Load(source string) (*Index, error) {
	data, err := os.ReadFile(s.Location(source))
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}

	x, err := Unmarshal(s.codec, data)
	if err != nil {
		return nil, fmt.Errorf("decode sidecar %s: %w", s.Location(source), err)
	}
	return x, nil
}

// Save writes the sidecar for source. The table goes to a temp file in the
// same directory first and is renamed over the target once it is synced.
func (s *SidecarStore) Save(source string, x *Index) error {
	data, err := Marshal(s.codec, x, s.config.Compression)
	if err != nil {
		return err
	}

	target := s.Location(source)
	dir := filepath.Dir(target)

	tmpFile, err := os.CreateTemp(dir, filepath.Base(target)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp sidecar: %w", err)
	}
	tmpName := tmpFile.Name()

	cleanup := func() {
		tmpFile.Close()
		os.Remove(tmpName)
	}

	if _, err := tmpFile.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp sidecar: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp sidecar: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp sidecar: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp sidecar: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename sidecar: %w", err)
	}

	return nil
}

// Delete removes the sidecar for source. A missing sidecar is not an error.
func (s *SidecarStore) Delete(source string) error {
	if err := os.Remove(s.Location(source)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
