package types

// Category classifies an advisory by its code prefix.
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryBug         Category = "bug"
	CategoryEnhancement Category = "enhancement"
	CategoryOther       Category = "other"
)

// Reference types as they appear in updateinfo feeds.
const (
	RefTypeCVE      = "cve"
	RefTypeBugzilla = "bugzilla"
	RefTypeErrata   = "errata"
	RefTypeSelf     = "self"
	RefTypeOther    = "other"
)

// Advisory is one published update notice, normalized from the raw feed.
// ID is a pure function of Code, so re-ingesting the same advisory always
// yields the same row.
type Advisory struct {
	ID              int64       `json:"id"`
	Code            string      `json:"advisory"`
	Category        Category    `json:"type"`
	Title           string      `json:"title,omitempty"`
	Summary         string      `json:"summary,omitempty"`
	Description     string      `json:"description,omitempty"`
	Solution        string      `json:"solution,omitempty"`
	Release         string      `json:"release,omitempty"`
	Severity        string      `json:"severity,omitempty"`
	RebootSuggested string      `json:"reboot_suggested,omitempty"`
	IssuedAt        string      `json:"issued"`
	UpdatedAt       string      `json:"updated"`
	InfoURL         string      `json:"url,omitempty"`
	Packages        []Package   `json:"pkglist"`
	PackageNames    []string    `json:"package_names"`
	References      []Reference `json:"references"`
	CVERefs         []Reference `json:"cves,omitempty"`
	BugzillaRefs    []Reference `json:"bzs,omitempty"`
	RepoLinks       []RepoLink  `json:"repos"`
}

// Package is one installable unit referenced by an advisory. ID is a content
// hash of the NEVRA tuple, so identical builds collide to the same row
// regardless of which advisory or repository produced them.
type Package struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Epoch   string `json:"epoch"`
	Version string `json:"version"`
	Release string `json:"release"`
	Arch    string `json:"arch"`
	Src     string `json:"src,omitempty"`
}

// Reference is a cross-link from an advisory to an external resource.
// IDs stay textual: CVE and bugzilla identifiers are strings, and errata
// references reclassified from opaque links carry the decimal rendering of
// the derived advisory id.
type Reference struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type"`
	Href  string `json:"href,omitempty"`
}

// RepoLink records that an advisory is distributed via a source repository.
type RepoLink struct {
	AdvisoryID int64  `json:"uid"`
	RepoID     string `json:"repo_id"`
	RepoName   string `json:"repo_name,omitempty"`
}

// HasRepo reports whether the advisory already links the given repository id.
func (a *Advisory) HasRepo(repoID string) bool {
	for _, link := range a.RepoLinks {
		if link.RepoID == repoID {
			return true
		}
	}
	return false
}

// NEVRA returns the name-epoch-version-release-arch tuple identifying the
// package build.
func (p Package) NEVRA() [5]string {
	return [5]string{p.Name, p.Epoch, p.Version, p.Release, p.Arch}
}
