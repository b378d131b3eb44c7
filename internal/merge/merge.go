// Package merge combines advisory sets normalized independently per source
// repository into one set. Repositories are assumed to carry identical
// content for a shared advisory code, so only repository membership is
// unioned: the first repository's copy of every content field wins.
package merge

import (
	"log/slog"
	"sort"

	"github.com/daimoniac/erratadb/internal/types"
)

// Merger accumulates advisories keyed by their derived id. It is owned by a
// single ingestion run and never mutated concurrently.
type Merger struct {
	advisories map[int64]*types.Advisory
	logger     *slog.Logger
}

// NewMerger creates an empty merger.
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		advisories: make(map[int64]*types.Advisory),
		logger:     logger,
	}
}

// Add folds one repository's advisories into the table. An advisory id seen
// before keeps the earlier repository's content and only unions the repo
// links, deduplicated by repo id; an unseen id is inserted as-is.
func (m *Merger) Add(advisories []*types.Advisory) {
	for _, adv := range advisories {
		existing, ok := m.advisories[adv.ID]
		if !ok {
			m.advisories[adv.ID] = adv
			continue
		}

		m.logger.Debug("advisory already merged, unioning repository links",
			"advisory", adv.Code,
			"id", adv.ID)

		for _, link := range adv.RepoLinks {
			if existing.HasRepo(link.RepoID) {
				continue
			}
			link.AdvisoryID = existing.ID
			existing.RepoLinks = append(existing.RepoLinks, link)
		}
	}
}

// Len returns the number of distinct advisories merged so far.
func (m *Merger) Len() int {
	return len(m.advisories)
}

// Advisories returns the merged set sorted ascending by id, so downstream
// output is deterministic regardless of repository contents.
func (m *Merger) Advisories() []*types.Advisory {
	out := make([]*types.Advisory, 0, len(m.advisories))
	for _, adv := range m.advisories {
		out = append(out, adv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
