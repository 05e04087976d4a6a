package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dfryer1193/graphmigrate/api"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const DefaultLedgerTable = "graph_migrations"

// LedgerRepository keeps the migration ledger in a local SQLite file.
// The table is created on the first Save.
type LedgerRepository struct {
	db          *sql.DB
	table       string
	tableExists bool
	now         func() time.Time
}

func NewLedgerRepository(path string, table string) (*LedgerRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite ledger path is required")
	}
	if table == "" {
		table = DefaultLedgerTable
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
	}

	return &LedgerRepository{db: db, table: table, now: time.Now}, nil
}

func (r *LedgerRepository) List(ctx context.Context) ([]*api.Migration, error) {
	exists, err := r.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT filename, version, checksum, contents, applied_at
        FROM %s ORDER BY filename`, r.identifier())

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration ledger: %w", err)
	}
	defer rows.Close()

	var migrations []*api.Migration
	for rows.Next() {
		var (
			m         api.Migration
			contents  string
			appliedAt string
		)
		if err := rows.Scan(&m.FileName, &m.Version, &m.Checksum, &contents, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration ledger row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, appliedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid applied_at for %s: %w", m.FileName, err)
		}
		m.AppliedAt = &ts
		m.Statements = api.SplitContents(contents)
		migrations = append(migrations, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration ledger rows: %w", err)
	}
	return migrations, nil
}

func (r *LedgerRepository) Save(ctx context.Context, migration *api.Migration, contents string) error {
	if err := r.init(ctx); err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (filename, version, checksum, contents, applied_at)
        VALUES (?, ?, ?, ?, ?)`, r.identifier())

	_, err := r.db.ExecContext(ctx, query,
		migration.FileName,
		migration.Version,
		migration.Checksum,
		contents,
		r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.FileName, err)
	}
	return nil
}

func (r *LedgerRepository) Close() {
	if err := r.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close sqlite ledger")
	}
}

func (r *LedgerRepository) init(ctx context.Context) error {
	exists, err := r.exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	log.Info().Str("table", r.table).Msg("Creating migration ledger table")
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        filename   TEXT PRIMARY KEY,
        version    INTEGER NOT NULL,
        checksum   TEXT NOT NULL,
        contents   TEXT NOT NULL,
        applied_at TEXT NOT NULL
    )`, r.identifier())

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create migration ledger table: %w", err)
	}
	r.tableExists = true
	return nil
}

func (r *LedgerRepository) exists(ctx context.Context) (bool, error) {
	if r.tableExists {
		return true, nil
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, r.table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration ledger table: %w", err)
	}
	r.tableExists = count > 0
	return r.tableExists, nil
}

func (r *LedgerRepository) identifier() string {
	return `"` + strings.ReplaceAll(r.table, `"`, `""`) + `"`
}
