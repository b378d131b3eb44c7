// Package normalize converts one raw advisory node into its canonical record:
// identifiers derived, package listings flattened, references classified and
// the date wrappers unwrapped.
package normalize

import (
	"regexp"
	"strconv"

	"github.com/samber/lo"

	"github.com/daimoniac/erratadb/internal/errors"
	"github.com/daimoniac/erratadb/internal/ident"
	"github.com/daimoniac/erratadb/internal/raw"
	"github.com/daimoniac/erratadb/internal/types"
)

// errataDetailPattern recognizes advisory-detail URLs inside references
// declared as type "other". A match turns the opaque link into a typed
// cross-advisory edge.
var errataDetailPattern = regexp.MustCompile(`/errata/(RH[SBE]A-\d{4}:\d{1,5})`)

// Advisory normalizes one raw update node into a canonical advisory. The
// repo argument is the repository identifier the caller is ingesting; the
// advisory's repo link uses it unless the package collection carries a
// "short" name of its own.
func Advisory(node raw.Node, repo string) (*types.Advisory, error) {
	code := node.String("id")
	if code == "" {
		return nil, errors.NewCorruptAdvisoryf("", "missing advisory identifier")
	}

	id, err := ident.AdvisoryID(code)
	if err != nil {
		return nil, err
	}

	adv := &types.Advisory{
		ID:              id,
		Code:            code,
		Category:        ident.CategoryOf(code),
		Title:           node.String("title"),
		Summary:         node.String("summary"),
		Description:     node.String("description"),
		Solution:        node.String("solution"),
		Release:         node.String("release"),
		Severity:        node.String("severity"),
		RebootSuggested: node.String("reboot_suggested"),
		IssuedAt:        node.String("issued"),
		UpdatedAt:       node.String("updated"),
	}

	repoID, repoName, packages, err := packagesFrom(node, code, repo)
	if err != nil {
		return nil, err
	}
	adv.Packages = packages
	adv.PackageNames = lo.Uniq(lo.Map(packages, func(p types.Package, _ int) string {
		return p.Name
	}))

	infoURL, references, err := referencesFrom(node, code)
	if err != nil {
		return nil, err
	}
	adv.InfoURL = infoURL
	adv.References = references
	adv.CVERefs = lo.Filter(references, func(r types.Reference, _ int) bool {
		return r.Type == types.RefTypeCVE
	})
	adv.BugzillaRefs = lo.Filter(references, func(r types.Reference, _ int) bool {
		return r.Type == types.RefTypeBugzilla
	})

	adv.RepoLinks = []types.RepoLink{{AdvisoryID: id, RepoID: repoID, RepoName: repoName}}

	return adv, nil
}

// packagesFrom flattens the advisory's package collections into a uniform
// package list and resolves the repository id and name the collection
// declares. A collection's "short" name overrides the caller's repository id.
func packagesFrom(node raw.Node, code, repo string) (string, string, []types.Package, error) {
	pkglist, ok := node.Node("pkglist")
	if !ok {
		return "", "", nil, errors.NewCorruptAdvisoryf(code, "missing pkglist node")
	}

	collections := pkglist.Slice("collection")
	if len(collections) == 0 {
		return "", "", nil, errors.NewCorruptAdvisoryf(code, "pkglist has no collection node")
	}

	repoID := collections[0].String("short")
	if repoID == "" {
		repoID = repo
	}
	repoName := collections[0].String("name")

	var packages []types.Package
	for _, collection := range collections {
		for _, p := range collection.Slice("package") {
			pkg := types.Package{
				Name:    p.String("name"),
				Epoch:   p.String("epoch"),
				Version: p.String("version"),
				Release: p.String("release"),
				Arch:    p.String("arch"),
				Src:     p.String("src"),
			}
			pkg.ID = ident.PackageID(pkg.Name, pkg.Epoch, pkg.Version, pkg.Release, pkg.Arch)
			packages = append(packages, pkg)
		}
	}

	return repoID, repoName, packages, nil
}

// referencesFrom resolves the advisory's informational URL and classifies
// its remaining references.
func referencesFrom(node raw.Node, code string) (string, []types.Reference, error) {
	rawRefs, ok := node.Child("references")
	if !ok {
		return "", nil, errors.NewCorruptAdvisoryf(code, "missing references node")
	}

	wrappers := raw.OneOrMany(rawRefs)
	if len(wrappers) == 0 {
		return "", nil, errors.NewCorruptAdvisoryf(code, "references node has unexpected shape")
	}

	var entries []raw.Node
	for _, w := range wrappers {
		entries = append(entries, w.Slice("reference")...)
	}
	if len(entries) == 0 {
		return "", nil, errors.NewCorruptAdvisoryf(code, "references node has no reference entries")
	}

	// The informational URL is the first reference's href regardless of the
	// node's single or list shape.
	infoURL := entries[0].String("href")

	var references []types.Reference
	for _, entry := range entries {
		ref := types.Reference{
			ID:    entry.String("id"),
			Title: entry.String("title"),
			Type:  entry.String("type"),
			Href:  entry.String("href"),
		}

		// Self references carry nothing beyond the advisory's own identity.
		if ref.Type == types.RefTypeSelf || ref.ID == types.RefTypeSelf {
			continue
		}

		if ref.Type == types.RefTypeOther {
			if m := errataDetailPattern.FindStringSubmatch(ref.Href); m != nil {
				linked, err := ident.AdvisoryID(m[1])
				if err == nil {
					ref.Type = types.RefTypeErrata
					ref.Title = m[1]
					ref.ID = strconv.FormatInt(linked, 10)
				}
			}
		}

		// A reference without an identifier has nothing to join on.
		if ref.ID == "" {
			continue
		}

		references = append(references, ref)
	}

	return infoURL, references, nil
}
