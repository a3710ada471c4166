package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to a random temp file next to path, syncs it and
// renames it over path. The previous file survives any failure before rename.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("%s is a symlink", path)
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("failed to generate temp file name: %w", err)
	}
	tmp := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	f, err := openFileNoFollow(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	success := false
	defer func() {
		if f != nil {
			f.Close()
		}
		if !success {
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	// Close before rename (required on Windows).
	if err := f.Close(); err != nil {
		return err
	}
	f = nil

	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	success = true
	return nil
}
