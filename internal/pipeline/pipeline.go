// Package pipeline drives one ingestion run: load each repository's cached
// feed, normalize its advisories, apply the admission policy, merge across
// repositories, dump snapshots and persist the merged set. Repositories are
// processed strictly in caller order because the first repository to carry
// an advisory owns its content in the merged set.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/daimoniac/erratadb/internal/config"
	"github.com/daimoniac/erratadb/internal/errors"
	"github.com/daimoniac/erratadb/internal/loader"
	"github.com/daimoniac/erratadb/internal/merge"
	"github.com/daimoniac/erratadb/internal/normalize"
	"github.com/daimoniac/erratadb/internal/observability"
	"github.com/daimoniac/erratadb/internal/policy"
	"github.com/daimoniac/erratadb/internal/snapshot"
	"github.com/daimoniac/erratadb/internal/store"
	"github.com/daimoniac/erratadb/internal/types"
)

// Pipeline wires the stages of an ingestion run
type Pipeline struct {
	loader  *loader.Loader
	engine  *policy.Engine
	writer  *snapshot.Writer
	store   store.AdvisoryStore
	metrics *observability.Metrics
	logger  *slog.Logger

	// skipCorrupt drops undecodable advisories instead of aborting the run.
	skipCorrupt bool
}

// Summary reports what one run did
type Summary struct {
	ReposProcessed   int
	ReposUnavailable int
	Normalized       int
	Corrupt          int
	Rejected         int
	Merged           int
	Persisted        int
}

func New(
	l *loader.Loader,
	engine *policy.Engine,
	writer *snapshot.Writer,
	st store.AdvisoryStore,
	metrics *observability.Metrics,
	logger *slog.Logger,
	skipCorrupt bool,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		loader:      l,
		engine:      engine,
		writer:      writer,
		store:       st,
		metrics:     metrics,
		logger:      logger,
		skipCorrupt: skipCorrupt,
	}
}

// Run executes one ingestion over the given repositories, in order.
func (p *Pipeline) Run(ctx context.Context, repos []config.Repo) (*Summary, error) {
	summary := &Summary{}
	merger := merge.NewMerger(p.logger)

	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		advisories, err := p.ingestRepo(repo, merger, summary)
		if err != nil {
			return summary, err
		}
		if advisories == nil {
			continue
		}

		if err := p.writer.WriteRepo(repo.ID, advisories); err != nil {
			return summary, err
		}
		summary.ReposProcessed++
	}

	merged := merger.Advisories()
	summary.Merged = len(merged)
	p.metrics.AdvisoriesMerged.Add(float64(len(merged)))
	p.metrics.DuplicateAdvisories.Add(float64(summary.Normalized - len(merged)))

	if err := p.writer.WriteMerged(merged); err != nil {
		return summary, err
	}

	start := time.Now()
	if err := p.store.SaveAdvisories(ctx, merged); err != nil {
		return summary, err
	}
	p.metrics.PersistDuration.Observe(time.Since(start).Seconds())
	p.metrics.AdvisoriesPersisted.Add(float64(len(merged)))
	summary.Persisted = len(merged)

	p.logger.Info("ingestion run complete",
		"repos", summary.ReposProcessed,
		"unavailable", summary.ReposUnavailable,
		"normalized", summary.Normalized,
		"corrupt", summary.Corrupt,
		"rejected", summary.Rejected,
		"merged", summary.Merged)

	return summary, nil
}

// ingestRepo loads and normalizes one repository. A nil advisory slice with
// a nil error means the repository was skipped as unavailable.
func (p *Pipeline) ingestRepo(repo config.Repo, merger *merge.Merger, summary *Summary) ([]*types.Advisory, error) {
	nodes, err := p.loader.Load(repo.ID)
	if err != nil {
		switch {
		case errors.IsSourceUnavailable(err):
			p.logger.Warn("repository cache unavailable, skipping",
				"repo", repo.ID,
				"error", err.Error())
			p.metrics.SourcesUnavailable.Inc()
			summary.ReposUnavailable++
			return nil, nil
		case errors.IsCorruptAdvisory(err) && p.skipCorrupt:
			p.logger.Warn("repository feed undecodable, skipping",
				"repo", repo.ID,
				"error", err.Error())
			p.metrics.AdvisoriesCorrupt.WithLabelValues(repo.ID).Inc()
			summary.Corrupt++
			return nil, nil
		default:
			return nil, err
		}
	}

	p.metrics.AdvisoriesLoaded.WithLabelValues(repo.ID).Add(float64(len(nodes)))

	advisories := make([]*types.Advisory, 0, len(nodes))
	for _, node := range nodes {
		adv, err := normalize.Advisory(node, repo.ID)
		if err != nil {
			if !errors.IsCorruptAdvisory(err) && !errors.IsMalformedIdentifier(err) {
				return nil, err
			}
			if !p.skipCorrupt {
				return nil, err
			}
			code, _ := errors.AdvisoryCode(err)
			p.logger.Warn("dropping corrupt advisory",
				"repo", repo.ID,
				"advisory", code,
				"error", err.Error())
			p.metrics.AdvisoriesCorrupt.WithLabelValues(repo.ID).Inc()
			summary.Corrupt++
			continue
		}

		admitted, err := p.engine.Admit(adv, repo.ID)
		if err != nil {
			return nil, err
		}
		if !admitted {
			p.metrics.AdvisoriesRejected.WithLabelValues(repo.ID).Inc()
			summary.Rejected++
			continue
		}

		p.metrics.AdvisoriesNormalized.WithLabelValues(repo.ID).Inc()
		summary.Normalized++
		advisories = append(advisories, adv)
	}

	merger.Add(advisories)
	return advisories, nil
}
