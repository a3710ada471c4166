package ops

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/micasa/marketer/internal/archive"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/store"
)

// ExportPromptsInput contains parameters for the ExportPrompts operation.
type ExportPromptsInput struct {
	StorePath string // required
	Output    string // optional .json path
}

// ExportPromptsOutput contains the result of the ExportPrompts operation.
type ExportPromptsOutput struct {
	Path    string                 `json:"path,omitempty"`
	Count   int                    `json:"count"`
	Prompts []holiday.PromptExport `json:"prompts"`
}

// ExportPrompts returns the date-sorted {date, selected_holiday, image_prompt,
// caption} list and optionally writes it.
func ExportPrompts(input ExportPromptsInput) (*ExportPromptsOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	if input.Output != "" {
		if err := ValidatePath(input.Output, PathCheckWrite, ".json"); err != nil {
			return nil, err
		}
	}
	s, err := store.Load(input.StorePath, store.LoadOptions{})
	if err != nil {
		return nil, err
	}

	prompts := s.ExportPrompts()
	out := &ExportPromptsOutput{Count: len(prompts), Prompts: prompts}
	if input.Output != "" {
		if err := store.WriteJSON(input.Output, prompts); err != nil {
			return nil, err
		}
		out.Path = input.Output
	}
	return out, nil
}

// BackupInput contains parameters for the Backup operation.
type BackupInput struct {
	StorePath string // required
	Archiver  archive.Archiver
}

// BackupOutput contains the result of the Backup operation.
type BackupOutput struct {
	Name       string `json:"name"`
	Location   string `json:"location"`
	TotalDates int    `json:"total_dates"`
	Bytes      int    `json:"bytes"`
}

// Backup compresses the store into a snapshot and hands it to the archiver.
// A corrupt store is refused rather than archived.
func Backup(ctx context.Context, rt *Runtime, input BackupInput) (*BackupOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	if input.Archiver == nil {
		return nil, errors.NewSetup("no archive configured")
	}
	if err := ValidatePath(input.StorePath, PathCheckRead, ""); err != nil {
		return nil, err
	}
	s, err := store.Load(input.StorePath, store.LoadOptions{Logger: rt.log()})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := store.WriteSnapshot(&buf, s); err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(input.StorePath), filepath.Ext(input.StorePath))
	name := store.SnapshotName(SanitizeForFilename(base), rt.now())
	size := buf.Len()

	location, err := input.Archiver.Put(ctx, name, &buf)
	if err != nil {
		return nil, err
	}
	rt.log().Infof(logging.TypeApp, "snapshot of %d date(s) stored at %s", s.TotalDates, location)
	return &BackupOutput{Name: name, Location: location, TotalDates: s.TotalDates, Bytes: size}, nil
}

// RestoreInput contains parameters for the Restore operation.
type RestoreInput struct {
	StorePath string // required
	Archiver  archive.Archiver
	Name      string // snapshot name returned by Backup
}

// RestoreOutput contains the result of the Restore operation.
type RestoreOutput struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	TotalDates int    `json:"total_dates"`
	Replaced   bool   `json:"replaced"`
}

// Restore replaces the store with a snapshot. The snapshot is fully decoded
// before the store file is touched, and the write is atomic.
func Restore(ctx context.Context, rt *Runtime, input RestoreInput) (*RestoreOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	if input.Archiver == nil {
		return nil, errors.NewSetup("no archive configured")
	}
	if !strings.HasSuffix(input.Name, store.SnapshotExt) {
		return nil, errors.NewInvalidRequest("snapshot name must end in " + store.SnapshotExt)
	}
	if err := ValidatePath(input.StorePath, PathCheckWrite, ""); err != nil {
		return nil, err
	}

	rc, err := input.Archiver.Open(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	s, err := store.ReadSnapshot(rc, input.Name)
	if err != nil {
		return nil, err
	}
	for _, date := range s.SortedDates() {
		r := s.HolidaysByDate[date]
		r.Evaluate()
		s.HolidaysByDate[date] = r
	}

	_, statErr := os.Stat(input.StorePath)
	if err := store.Save(s, input.StorePath); err != nil {
		return nil, err
	}
	rt.log().Infof(logging.TypeApp, "restored %d date(s) from %s", s.TotalDates, input.Name)
	return &RestoreOutput{Path: input.StorePath, Name: input.Name, TotalDates: s.TotalDates, Replaced: statErr == nil}, nil
}
