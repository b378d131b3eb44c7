package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/daimoniac/erratadb/internal/errors"
	"github.com/daimoniac/erratadb/internal/ident"
	"github.com/daimoniac/erratadb/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "errata.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func kernelAdvisory(t *testing.T) *types.Advisory {
	t.Helper()

	const code = "RHSA-2016:2872"
	id, err := ident.AdvisoryID(code)
	if err != nil {
		t.Fatalf("failed to derive advisory id: %v", err)
	}

	pkg := types.Package{
		Name:    "kernel",
		Epoch:   "0",
		Version: "3.10.0",
		Release: "123.el7",
		Arch:    "x86_64",
		Src:     "kernel-3.10.0-123.el7.src.rpm",
	}
	pkg.ID = ident.PackageID(pkg.Name, pkg.Epoch, pkg.Version, pkg.Release, pkg.Arch)

	cve := types.Reference{
		ID:    "CVE-2016-5195",
		Title: "CVE-2016-5195",
		Type:  types.RefTypeCVE,
		Href:  "https://access.redhat.com/security/cve/CVE-2016-5195",
	}

	return &types.Advisory{
		ID:           id,
		Code:         code,
		Category:     types.CategorySecurity,
		Title:        "Important: kernel security update",
		Summary:      "An update for kernel is now available.",
		Description:  "The kernel packages provide the Linux kernel.",
		Severity:     "Important",
		IssuedAt:     "2016-12-06 00:00:00",
		UpdatedAt:    "2016-12-06 00:00:00",
		Packages:     []types.Package{pkg},
		PackageNames: []string{"kernel"},
		References:   []types.Reference{cve},
		CVERefs:      []types.Reference{cve},
		RepoLinks: []types.RepoLink{
			{AdvisoryID: id, RepoID: "rhel-7-server-rpms", RepoName: "RHEL 7 Server"},
		},
	}
}

func assertCount(t *testing.T, store *SQLiteStore, table string, want int64) {
	t.Helper()

	got, err := store.Count(context.Background(), table)
	if err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	if got != want {
		t.Errorf("expected %d rows in %s, got %d", want, table, got)
	}
}

func TestSaveAdvisoryRowCounts(t *testing.T) {
	store := newTestStore(t)
	adv := kernelAdvisory(t)

	if err := store.SaveAdvisories(context.Background(), []*types.Advisory{adv}); err != nil {
		t.Fatalf("failed to save advisories: %v", err)
	}

	assertCount(t, store, "advisories", 1)
	assertCount(t, store, "packages", 1)
	assertCount(t, store, "references", 1)
	assertCount(t, store, "advisory_packages", 1)
	assertCount(t, store, "advisory_references", 1)
	assertCount(t, store, "advisory_repos", 1)
}

func TestSaveAdvisoriesIdempotent(t *testing.T) {
	store := newTestStore(t)
	adv := kernelAdvisory(t)

	for i := 0; i < 2; i++ {
		if err := store.SaveAdvisories(context.Background(), []*types.Advisory{adv}); err != nil {
			t.Fatalf("ingest %d failed: %v", i+1, err)
		}
	}

	assertCount(t, store, "advisories", 1)
	assertCount(t, store, "packages", 1)
	assertCount(t, store, "references", 1)
	assertCount(t, store, "advisory_packages", 1)
	assertCount(t, store, "advisory_references", 1)
	assertCount(t, store, "advisory_repos", 1)
}

func TestSharedPackageAcrossAdvisories(t *testing.T) {
	store := newTestStore(t)

	first := kernelAdvisory(t)
	second := kernelAdvisory(t)
	second.Code = "RHBA-2016:2423"
	id, err := ident.AdvisoryID(second.Code)
	if err != nil {
		t.Fatalf("failed to derive advisory id: %v", err)
	}
	second.ID = id
	second.Category = types.CategoryBug
	second.References = nil
	second.CVERefs = nil

	if err := store.SaveAdvisories(context.Background(), []*types.Advisory{first, second}); err != nil {
		t.Fatalf("failed to save advisories: %v", err)
	}

	assertCount(t, store, "advisories", 2)
	assertCount(t, store, "packages", 1)
	assertCount(t, store, "advisory_packages", 2)
}

func TestGetAdvisory(t *testing.T) {
	store := newTestStore(t)
	adv := kernelAdvisory(t)

	if err := store.SaveAdvisory(context.Background(), adv); err != nil {
		t.Fatalf("failed to save advisory: %v", err)
	}

	got, err := store.GetAdvisory(context.Background(), adv.Code)
	if err != nil {
		t.Fatalf("failed to get advisory: %v", err)
	}

	if got.ID != adv.ID {
		t.Errorf("expected id %d, got %d", adv.ID, got.ID)
	}
	if got.Category != types.CategorySecurity {
		t.Errorf("expected category security, got %s", got.Category)
	}
	if got.Severity != "Important" {
		t.Errorf("expected severity Important, got %s", got.Severity)
	}
	if len(got.Packages) != 1 || got.Packages[0].Name != "kernel" {
		t.Fatalf("expected single kernel package, got %+v", got.Packages)
	}
	if got.Packages[0].ID != adv.Packages[0].ID {
		t.Errorf("expected package id %d, got %d", adv.Packages[0].ID, got.Packages[0].ID)
	}
	if len(got.PackageNames) != 1 || got.PackageNames[0] != "kernel" {
		t.Errorf("expected package names [kernel], got %v", got.PackageNames)
	}
	if len(got.References) != 1 || got.References[0].ID != "CVE-2016-5195" {
		t.Fatalf("expected single CVE reference, got %+v", got.References)
	}
	if len(got.CVERefs) != 1 {
		t.Errorf("expected 1 CVE ref, got %d", len(got.CVERefs))
	}
	if len(got.BugzillaRefs) != 0 {
		t.Errorf("expected no bugzilla refs, got %d", len(got.BugzillaRefs))
	}
	if len(got.RepoLinks) != 1 || got.RepoLinks[0].RepoID != "rhel-7-server-rpms" {
		t.Fatalf("expected single repo link, got %+v", got.RepoLinks)
	}
}

func TestGetAdvisoryNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetAdvisory(context.Background(), "RHSA-1999:0001")
	if err != errors.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAdvisoriesFilterAndOrder(t *testing.T) {
	store := newTestStore(t)

	security := kernelAdvisory(t)

	bugfix := kernelAdvisory(t)
	bugfix.Code = "RHBA-2016:2423"
	id, err := ident.AdvisoryID(bugfix.Code)
	if err != nil {
		t.Fatalf("failed to derive advisory id: %v", err)
	}
	bugfix.ID = id
	bugfix.Category = types.CategoryBug
	bugfix.Severity = ""
	bugfix.References = nil
	bugfix.CVERefs = nil
	bugfix.RepoLinks = []types.RepoLink{
		{AdvisoryID: id, RepoID: "rhel-7-workstation-rpms"},
	}

	if err := store.SaveAdvisories(context.Background(), []*types.Advisory{bugfix, security}); err != nil {
		t.Fatalf("failed to save advisories: %v", err)
	}

	all, err := store.ListAdvisories(context.Background(), AdvisoryFilter{})
	if err != nil {
		t.Fatalf("failed to list advisories: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 advisories, got %d", len(all))
	}
	if all[0].ID > all[1].ID {
		t.Errorf("expected ascending id order, got %d before %d", all[0].ID, all[1].ID)
	}

	onlySecurity, err := store.ListAdvisories(context.Background(), AdvisoryFilter{Category: "security"})
	if err != nil {
		t.Fatalf("failed to list security advisories: %v", err)
	}
	if len(onlySecurity) != 1 || onlySecurity[0].Code != "RHSA-2016:2872" {
		t.Fatalf("expected the security advisory only, got %+v", onlySecurity)
	}

	byRepo, err := store.ListAdvisories(context.Background(), AdvisoryFilter{RepoID: "rhel-7-workstation-rpms"})
	if err != nil {
		t.Fatalf("failed to list advisories by repo: %v", err)
	}
	if len(byRepo) != 1 || byRepo[0].Code != "RHBA-2016:2423" {
		t.Fatalf("expected the workstation advisory only, got %+v", byRepo)
	}

	limited, err := store.ListAdvisories(context.Background(), AdvisoryFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("failed to list with limit: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != all[1].ID {
		t.Fatalf("expected the second advisory, got %+v", limited)
	}
}

func TestAdvisoriesByPackage(t *testing.T) {
	store := newTestStore(t)
	adv := kernelAdvisory(t)

	if err := store.SaveAdvisory(context.Background(), adv); err != nil {
		t.Fatalf("failed to save advisory: %v", err)
	}

	hits, err := store.AdvisoriesByPackage(context.Background(), "kernel")
	if err != nil {
		t.Fatalf("failed to query by package: %v", err)
	}
	if len(hits) != 1 || hits[0].Code != adv.Code {
		t.Fatalf("expected %s, got %+v", adv.Code, hits)
	}

	misses, err := store.AdvisoriesByPackage(context.Background(), "glibc")
	if err != nil {
		t.Fatalf("failed to query by package: %v", err)
	}
	if len(misses) != 0 {
		t.Errorf("expected no advisories for glibc, got %d", len(misses))
	}
}

func TestAdvisoriesByCVE(t *testing.T) {
	store := newTestStore(t)
	adv := kernelAdvisory(t)

	if err := store.SaveAdvisory(context.Background(), adv); err != nil {
		t.Fatalf("failed to save advisory: %v", err)
	}

	hits, err := store.AdvisoriesByCVE(context.Background(), "CVE-2016-5195")
	if err != nil {
		t.Fatalf("failed to query by CVE: %v", err)
	}
	if len(hits) != 1 || hits[0].Code != adv.Code {
		t.Fatalf("expected %s, got %+v", adv.Code, hits)
	}

	misses, err := store.AdvisoriesByCVE(context.Background(), "CVE-2014-0160")
	if err != nil {
		t.Fatalf("failed to query by CVE: %v", err)
	}
	if len(misses) != 0 {
		t.Errorf("expected no advisories for unrelated CVE, got %d", len(misses))
	}
}

func TestCountRejectsUnknownTable(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Count(context.Background(), "sqlite_master"); err == nil {
		t.Error("expected an error for a table outside the schema")
	}
}
