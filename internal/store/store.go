package store

import (
	"context"

	"github.com/daimoniac/erratadb/internal/types"
)

// AdvisoryStore defines the interface for persisting and querying the
// normalized advisory set
type AdvisoryStore interface {
	// SaveAdvisories persists a merged advisory set, one transaction per
	// advisory, with insert-or-ignore semantics throughout
	SaveAdvisories(ctx context.Context, advisories []*types.Advisory) error

	// GetAdvisory retrieves one advisory by its human-readable code with
	// packages, references and repository links loaded
	GetAdvisory(ctx context.Context, code string) (*types.Advisory, error)

	// ListAdvisories returns advisories matching the filter without their
	// child collections
	ListAdvisories(ctx context.Context, filter AdvisoryFilter) ([]*types.Advisory, error)

	// AdvisoriesByPackage returns advisories referencing a package name
	AdvisoriesByPackage(ctx context.Context, name string) ([]*types.Advisory, error)

	// AdvisoriesByCVE returns advisories carrying a reference to a CVE id
	AdvisoriesByCVE(ctx context.Context, cveID string) ([]*types.Advisory, error)

	// Count returns the number of rows in one of the schema's tables
	Count(ctx context.Context, table string) (int64, error)
}

// AdvisoryFilter defines criteria for listing advisories
type AdvisoryFilter struct {
	Category string
	Severity string
	RepoID   string
	Limit    int
	Offset   int
}
