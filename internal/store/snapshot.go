package store

import (
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
)

// SnapshotExt is the file extension of compressed store snapshots.
const SnapshotExt = ".json.zst"

// SnapshotName returns the archive name for a snapshot taken at t.
func SnapshotName(base string, t time.Time) string {
	return fmt.Sprintf("%s-%s%s", base, t.UTC().Format("20060102T150405Z"), SnapshotExt)
}

// WriteSnapshot writes the store as zstd-compressed JSON.
func WriteSnapshot(w io.Writer, s *holiday.Store) error {
	data, err := Encode(s)
	if err != nil {
		return errors.NewInternal(err)
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create zstd encoder: %w", err))
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return errors.NewInternal(err)
	}
	if err := enc.Close(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot. name is only used
// in error messages.
func ReadSnapshot(r io.Reader, name string) (*holiday.Store, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, errors.NewDataCorruption(name, err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.NewDataCorruption(name, err)
	}
	s, err := decode(data)
	if err != nil {
		return nil, errors.NewDataCorruption(name, err)
	}
	return s, nil
}
