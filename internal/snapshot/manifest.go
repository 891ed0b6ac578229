// Package snapshot implements point-in-time MemTable dumps and their
// recovery: a MANIFEST describing the dump plus a data file framed the
// same way as a binlog segment, optionally compressed.
package snapshot

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const manifestFileName = "MANIFEST"

// Manifest is the text key/value descriptor written alongside every
// snapshot data file.
type Manifest struct {
	Name   string `toml:"name"`
	Offset uint64 `toml:"offset"`
	Term   uint64 `toml:"term"`
	Count  uint64 `toml:"count"`
}

func manifestPath(dir string) string {
	return filepath.Join(dir, manifestFileName)
}

// WriteManifest writes m atomically: encode to a temp file in dir, then
// rename over MANIFEST, so a crash mid-write never leaves a half-written
// manifest for Recover to trip over.
func WriteManifest(dir string, m Manifest) error {
	tmp, err := os.CreateTemp(dir, manifestFileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(m); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, manifestPath(dir))
}

// ReadManifest reads and decodes MANIFEST from dir. A missing file
// returns os.ErrNotExist so callers can distinguish "no snapshot yet"
// from a decode failure.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(manifestPath(dir), &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// HasManifest reports whether dir holds a MANIFEST file.
func HasManifest(dir string) bool {
	_, err := os.Stat(manifestPath(dir))
	return err == nil
}
