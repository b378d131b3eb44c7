// Package snapshot writes the JSON dumps of a run: one per-repository file
// holding that repository's normalized advisories and one merged file
// holding the deduplicated union. The dumps are diffable artifacts; the
// relational store remains the queryable output.
package snapshot

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/daimoniac/erratadb/internal/types"
	"github.com/spf13/afero"
)

const (
	repoFileName   = "updates.json"
	mergedFileName = "updateinfo.json"
)

// document is the envelope every dump shares, keeping the top-level shape
// stable whatever the advisory list holds.
type document struct {
	Data []*types.Advisory `json:"data"`
}

type option func(w *Writer)

// WithAppFs swaps the backing filesystem, used by tests to write into an
// in-memory fs.
func WithAppFs(v afero.Fs) option {
	return func(w *Writer) { w.appFs = v }
}

// Writer persists advisory dumps under a single output directory.
type Writer struct {
	outDir string
	appFs  afero.Fs
}

func NewWriter(outDir string, options ...option) *Writer {
	w := &Writer{
		outDir: outDir,
		appFs:  afero.NewOsFs(),
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// WriteRepo dumps one repository's advisories to <outDir>/<repoID>/updates.json.
func (w *Writer) WriteRepo(repoID string, advisories []*types.Advisory) error {
	dir := filepath.Join(w.outDir, repoID)
	if err := w.appFs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir error: %w", err)
	}
	return w.writeJSON(filepath.Join(dir, repoFileName), advisories)
}

// WriteMerged dumps the merged advisory set to <outDir>/updateinfo.json.
func (w *Writer) WriteMerged(advisories []*types.Advisory) error {
	if err := w.appFs.MkdirAll(w.outDir, 0755); err != nil {
		return fmt.Errorf("mkdir error: %w", err)
	}
	return w.writeJSON(filepath.Join(w.outDir, mergedFileName), advisories)
}

func (w *Writer) writeJSON(filePath string, advisories []*types.Advisory) error {
	if advisories == nil {
		advisories = []*types.Advisory{}
	}

	f, err := w.appFs.Create(filePath)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", filePath, err)
	}
	defer f.Close()

	b, err := json.MarshalIndent(document{Data: advisories}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal advisories: %w", err)
	}

	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	return nil
}
