package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daimoniac/erratadb/internal/errors"
	"github.com/daimoniac/erratadb/internal/types"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements AdvisoryStore using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite advisory store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// _foreign_keys=1: declare referential intent (best effort, see schema)
	// mode=rwc: Read/Write/Create mode
	// _journal_mode=WAL: allows readers while a run is writing
	// _busy_timeout=3000: wait up to 3 seconds for locks
	connStr := dbPath + "?_foreign_keys=1&mode=rwc&_journal_mode=WAL&_busy_timeout=3000"

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// The store is exclusive to the persister during a run; a single
	// connection keeps every advisory transaction on one writer.
	db.SetMaxOpenConns(1)

	// Verify foreign keys are enabled
	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check foreign keys status: %w", err)
	}
	if fkEnabled != 1 {
		db.Close()
		return nil, fmt.Errorf("foreign keys are not enabled (got %d, expected 1)", fkEnabled)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// initSchema creates the database schema. Every statement is idempotent so
// repeated runs against the same store are safe. The join tables carry
// composite primary keys: INSERT OR IGNORE against them is what makes
// re-ingestion produce exactly one row per relationship.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS advisories (
		id INTEGER PRIMARY KEY,
		advisory TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		title TEXT,
		summary TEXT,
		description TEXT,
		solution TEXT,
		"release" TEXT,
		severity TEXT,
		reboot_suggested TEXT,
		issued TEXT,
		updated TEXT,
		url TEXT
	);

	CREATE TABLE IF NOT EXISTS packages (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		epoch TEXT,
		version TEXT,
		"release" TEXT,
		arch TEXT,
		src TEXT
	);

	CREATE TABLE IF NOT EXISTS "references" (
		id TEXT PRIMARY KEY,
		title TEXT,
		type TEXT NOT NULL,
		href TEXT
	);

	CREATE TABLE IF NOT EXISTS advisory_packages (
		advisory_id INTEGER NOT NULL,
		package_id INTEGER NOT NULL,
		PRIMARY KEY (advisory_id, package_id),
		FOREIGN KEY (advisory_id) REFERENCES advisories(id),
		FOREIGN KEY (package_id) REFERENCES packages(id)
	);

	CREATE TABLE IF NOT EXISTS advisory_references (
		advisory_id INTEGER NOT NULL,
		ref_id TEXT NOT NULL,
		PRIMARY KEY (advisory_id, ref_id),
		FOREIGN KEY (advisory_id) REFERENCES advisories(id),
		FOREIGN KEY (ref_id) REFERENCES "references"(id)
	);

	CREATE TABLE IF NOT EXISTS advisory_repos (
		advisory_id INTEGER NOT NULL,
		repo_id TEXT NOT NULL,
		repo_name TEXT,
		PRIMARY KEY (advisory_id, repo_id),
		FOREIGN KEY (advisory_id) REFERENCES advisories(id)
	);

	CREATE INDEX IF NOT EXISTS idx_packages_name ON packages(name);
	CREATE INDEX IF NOT EXISTS idx_references_type ON "references"(type);
	CREATE INDEX IF NOT EXISTS idx_advisory_repos_repo ON advisory_repos(repo_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveAdvisories persists a merged advisory set. Each advisory commits its
// own transaction before the next begins, so a failure aborts the run while
// already-committed advisories stay durable.
func (s *SQLiteStore) SaveAdvisories(ctx context.Context, advisories []*types.Advisory) error {
	for _, adv := range advisories {
		if err := s.SaveAdvisory(ctx, adv); err != nil {
			return err
		}
	}
	return nil
}

// SaveAdvisory persists one advisory and its dependent join rows in a single
// transaction so a package or reference failure never leaves a half-written
// advisory visible.
func (s *SQLiteStore) SaveAdvisory(ctx context.Context, adv *types.Advisory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := execIgnoring(ctx, tx, "advisories", `
		INSERT OR IGNORE INTO advisories (
			id, advisory, category, title, summary, description, solution,
			"release", severity, reboot_suggested, issued, updated, url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		adv.ID, adv.Code, string(adv.Category), adv.Title, adv.Summary,
		adv.Description, adv.Solution, adv.Release, adv.Severity,
		adv.RebootSuggested, adv.IssuedAt, adv.UpdatedAt, adv.InfoURL,
	); err != nil {
		return err
	}

	if len(adv.Packages) > 0 {
		pkgStmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO packages (id, name, epoch, version, "release", arch, src)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return errors.NewPersistence("packages", nil, err)
		}
		defer pkgStmt.Close()

		joinStmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO advisory_packages (advisory_id, package_id) VALUES (?, ?)
		`)
		if err != nil {
			return errors.NewPersistence("advisory_packages", nil, err)
		}
		defer joinStmt.Close()

		for _, pkg := range adv.Packages {
			if _, err := pkgStmt.ExecContext(ctx,
				pkg.ID, pkg.Name, pkg.Epoch, pkg.Version, pkg.Release, pkg.Arch, pkg.Src,
			); err != nil {
				return errors.NewPersistence("packages", []interface{}{pkg.ID, pkg.Name}, err)
			}
			if _, err := joinStmt.ExecContext(ctx, adv.ID, pkg.ID); err != nil {
				return errors.NewPersistence("advisory_packages", []interface{}{adv.ID, pkg.ID}, err)
			}
		}
	}

	for _, ref := range adv.References {
		if err := execIgnoring(ctx, tx, "references", `
			INSERT OR IGNORE INTO "references" (id, title, type, href) VALUES (?, ?, ?, ?)
		`, ref.ID, ref.Title, ref.Type, ref.Href); err != nil {
			return err
		}
		if err := execIgnoring(ctx, tx, "advisory_references", `
			INSERT OR IGNORE INTO advisory_references (advisory_id, ref_id) VALUES (?, ?)
		`, adv.ID, ref.ID); err != nil {
			return err
		}
	}

	for _, link := range adv.RepoLinks {
		if err := execIgnoring(ctx, tx, "advisory_repos", `
			INSERT OR IGNORE INTO advisory_repos (advisory_id, repo_id, repo_name) VALUES (?, ?, ?)
		`, adv.ID, link.RepoID, link.RepoName); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewPersistence("advisories", []interface{}{adv.ID, adv.Code}, err)
	}

	return nil
}

// execIgnoring runs one insert-or-ignore statement and wraps any failure
// into a PersistenceError naming the table and values.
func execIgnoring(ctx context.Context, tx *sql.Tx, table, stmt string, values ...interface{}) error {
	if _, err := tx.ExecContext(ctx, stmt, values...); err != nil {
		return errors.NewPersistence(table, values, err)
	}
	return nil
}

const advisoryColumns = `id, advisory, category, title, summary, description, solution,
	"release", severity, reboot_suggested, issued, updated, url`

func scanAdvisory(row interface{ Scan(...interface{}) error }) (*types.Advisory, error) {
	var adv types.Advisory
	var category string
	if err := row.Scan(
		&adv.ID, &adv.Code, &category, &adv.Title, &adv.Summary,
		&adv.Description, &adv.Solution, &adv.Release, &adv.Severity,
		&adv.RebootSuggested, &adv.IssuedAt, &adv.UpdatedAt, &adv.InfoURL,
	); err != nil {
		return nil, err
	}
	adv.Category = types.Category(category)
	return &adv, nil
}

// GetAdvisory retrieves one advisory by code with its packages, references
// and repository links loaded
func (s *SQLiteStore) GetAdvisory(ctx context.Context, code string) (*types.Advisory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+advisoryColumns+` FROM advisories WHERE advisory = ?
	`, code)

	adv, err := scanAdvisory(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query advisory: %w", err)
	}

	if adv.Packages, err = s.loadPackages(ctx, adv.ID); err != nil {
		return nil, err
	}
	for _, pkg := range adv.Packages {
		adv.PackageNames = append(adv.PackageNames, pkg.Name)
	}
	if adv.References, err = s.loadReferences(ctx, adv.ID); err != nil {
		return nil, err
	}
	for _, ref := range adv.References {
		switch ref.Type {
		case types.RefTypeCVE:
			adv.CVERefs = append(adv.CVERefs, ref)
		case types.RefTypeBugzilla:
			adv.BugzillaRefs = append(adv.BugzillaRefs, ref)
		}
	}
	if adv.RepoLinks, err = s.loadRepoLinks(ctx, adv.ID); err != nil {
		return nil, err
	}

	return adv, nil
}

// ListAdvisories returns advisories matching the filter, sorted by id, with
// no child collections loaded. Detail views go through GetAdvisory.
func (s *SQLiteStore) ListAdvisories(ctx context.Context, filter AdvisoryFilter) ([]*types.Advisory, error) {
	query := `SELECT ` + advisoryColumns + ` FROM advisories WHERE 1=1`
	args := []interface{}{}

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.RepoID != "" {
		query += " AND id IN (SELECT advisory_id FROM advisory_repos WHERE repo_id = ?)"
		args = append(args, filter.RepoID)
	}

	query += " ORDER BY id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	return s.queryAdvisories(ctx, query, args...)
}

// AdvisoriesByPackage returns advisories referencing a package name
func (s *SQLiteStore) AdvisoriesByPackage(ctx context.Context, name string) ([]*types.Advisory, error) {
	return s.queryAdvisories(ctx, `
		SELECT DISTINCT `+qualifiedAdvisoryColumns("a")+`
		FROM advisories a
		JOIN advisory_packages ap ON a.id = ap.advisory_id
		JOIN packages p ON ap.package_id = p.id
		WHERE p.name = ?
		ORDER BY a.id ASC
	`, name)
}

// AdvisoriesByCVE returns advisories carrying a reference to a CVE id
func (s *SQLiteStore) AdvisoriesByCVE(ctx context.Context, cveID string) ([]*types.Advisory, error) {
	return s.queryAdvisories(ctx, `
		SELECT DISTINCT `+qualifiedAdvisoryColumns("a")+`
		FROM advisories a
		JOIN advisory_references ar ON a.id = ar.advisory_id
		JOIN "references" r ON ar.ref_id = r.id
		WHERE r.id = ? AND r.type = ?
		ORDER BY a.id ASC
	`, cveID, types.RefTypeCVE)
}

// countableTables guards Count against arbitrary identifiers reaching the
// query string.
var countableTables = map[string]string{
	"advisories":          "advisories",
	"packages":            "packages",
	"references":          `"references"`,
	"advisory_packages":   "advisory_packages",
	"advisory_references": "advisory_references",
	"advisory_repos":      "advisory_repos",
}

// Count returns the number of rows in one of the schema's tables
func (s *SQLiteStore) Count(ctx context.Context, table string) (int64, error) {
	quoted, ok := countableTables[table]
	if !ok {
		return 0, fmt.Errorf("unknown table: %s", table)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLiteStore) queryAdvisories(ctx context.Context, query string, args ...interface{}) ([]*types.Advisory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query advisories: %w", err)
	}
	defer rows.Close()

	var advisories []*types.Advisory
	for rows.Next() {
		adv, err := scanAdvisory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advisory row: %w", err)
		}
		advisories = append(advisories, adv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating advisory rows: %w", err)
	}

	return advisories, nil
}

func (s *SQLiteStore) loadPackages(ctx context.Context, advisoryID int64) ([]types.Package, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.epoch, p.version, p."release", p.arch, p.src
		FROM packages p
		JOIN advisory_packages ap ON p.id = ap.package_id
		WHERE ap.advisory_id = ?
		ORDER BY p.name, p.arch
	`, advisoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query packages: %w", err)
	}
	defer rows.Close()

	var packages []types.Package
	for rows.Next() {
		var pkg types.Package
		if err := rows.Scan(&pkg.ID, &pkg.Name, &pkg.Epoch, &pkg.Version, &pkg.Release, &pkg.Arch, &pkg.Src); err != nil {
			return nil, fmt.Errorf("failed to scan package row: %w", err)
		}
		packages = append(packages, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating package rows: %w", err)
	}

	return packages, nil
}

func (s *SQLiteStore) loadReferences(ctx context.Context, advisoryID int64) ([]types.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.title, r.type, r.href
		FROM "references" r
		JOIN advisory_references ar ON r.id = ar.ref_id
		WHERE ar.advisory_id = ?
		ORDER BY r.type, r.id
	`, advisoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()

	var references []types.Reference
	for rows.Next() {
		var ref types.Reference
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.Type, &ref.Href); err != nil {
			return nil, fmt.Errorf("failed to scan reference row: %w", err)
		}
		references = append(references, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reference rows: %w", err)
	}

	return references, nil
}

func (s *SQLiteStore) loadRepoLinks(ctx context.Context, advisoryID int64) ([]types.RepoLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT advisory_id, repo_id, repo_name
		FROM advisory_repos
		WHERE advisory_id = ?
		ORDER BY repo_id
	`, advisoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query repo links: %w", err)
	}
	defer rows.Close()

	var links []types.RepoLink
	for rows.Next() {
		var link types.RepoLink
		if err := rows.Scan(&link.AdvisoryID, &link.RepoID, &link.RepoName); err != nil {
			return nil, fmt.Errorf("failed to scan repo link row: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repo link rows: %w", err)
	}

	return links, nil
}

func qualifiedAdvisoryColumns(alias string) string {
	return alias + `.id, ` + alias + `.advisory, ` + alias + `.category, ` +
		alias + `.title, ` + alias + `.summary, ` + alias + `.description, ` +
		alias + `.solution, ` + alias + `."release", ` + alias + `.severity, ` +
		alias + `.reboot_suggested, ` + alias + `.issued, ` + alias + `.updated, ` +
		alias + `.url`
}
