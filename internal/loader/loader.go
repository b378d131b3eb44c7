// Package loader locates the cached updateinfo document for a repository and
// decodes it into raw advisory nodes. The cache is populated by yum or dnf
// makecache and converted to JSON upstream; the loader only discovers and
// reads, never fetches.
package loader

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/daimoniac/erratadb/internal/errors"
	"github.com/daimoniac/erratadb/internal/raw"
	"github.com/spf13/afero"
)

// Cache layouts of the two package managers, relative to the cache root:
//
//	dnf (root):  var/cache/dnf/<repo>-*/repodata/*updateinfo.json
//	dnf (user):  var/tmp/dnf-*/<repo>-*/repodata/*updateinfo.json
//	yum:         var/cache/yum/*/*/<repo>/*updateinfo.json
var cachePatterns = []string{
	"var/cache/dnf/%s-*/repodata/*updateinfo.json",
	"var/tmp/dnf-*/%s-*/repodata/*updateinfo.json",
	"var/cache/yum/*/*/%s/*updateinfo.json",
}

type option func(l *Loader)

// WithAppFs swaps the backing filesystem, used by tests to read from an
// in-memory fs.
func WithAppFs(v afero.Fs) option {
	return func(l *Loader) { l.appFs = v }
}

// Loader reads cached updateinfo documents under a single cache root.
type Loader struct {
	cacheRoot string
	appFs     afero.Fs
	logger    *slog.Logger
}

func NewLoader(cacheRoot string, logger *slog.Logger, options ...option) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		cacheRoot: cacheRoot,
		appFs:     afero.NewOsFs(),
		logger:    logger,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// Load returns the raw advisory nodes of the newest cached updateinfo
// document for the repository. A missing document is a SourceUnavailableError;
// a document that exists but does not decode is corrupt.
func (l *Loader) Load(repoID string) ([]raw.Node, error) {
	path, err := l.findNewest(repoID)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("loading cached updateinfo", "repo", repoID, "path", path)

	b, err := afero.ReadFile(l.appFs, path)
	if err != nil {
		return nil, errors.NewSourceUnavailable(repoID, err)
	}

	// Each entry of "updates" wraps its advisory under an "update" key,
	// mirroring the element nesting of the source XML.
	var envelope struct {
		Updates []map[string]any `json:"updates"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return nil, errors.NewCorruptAdvisoryf("", "undecodable updateinfo document %s: %v", path, err)
	}

	nodes := make([]raw.Node, 0, len(envelope.Updates))
	for _, entry := range envelope.Updates {
		update, ok := raw.Node(entry).Node("update")
		if !ok {
			return nil, errors.NewCorruptAdvisoryf("", "entry without update element in %s", path)
		}
		nodes = append(nodes, update)
	}

	return nodes, nil
}

// findNewest globs the known cache layouts and returns the most recently
// modified match.
func (l *Loader) findNewest(repoID string) (string, error) {
	type candidate struct {
		path    string
		modTime time.Time
	}

	var candidates []candidate
	for _, pattern := range cachePatterns {
		glob := filepath.Join(l.cacheRoot, filepath.FromSlash(fmt.Sprintf(pattern, repoID)))
		matches, err := afero.Glob(l.appFs, glob)
		if err != nil {
			return "", errors.NewSourceUnavailable(repoID, err)
		}
		for _, match := range matches {
			info, err := l.appFs.Stat(match)
			if err != nil {
				continue
			}
			candidates = append(candidates, candidate{path: match, modTime: info.ModTime()})
		}
	}

	if len(candidates) == 0 {
		return "", errors.NewSourceUnavailable(repoID, errors.ErrNotFound)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})
	return candidates[0].path, nil
}
