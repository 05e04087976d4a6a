// repository/postgres/ledger_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dfryer1193/graphmigrate/api"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const DefaultLedgerTable = "graph_migrations"

type LedgerRepository struct {
	pool        *pgxpool.Pool
	table       string
	now         func() time.Time
	tableExists bool
}

func NewLedgerRepository(ctx context.Context, connString string, table string) (*LedgerRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool for migration ledger: %w", err)
	}
	return NewLedgerRepositoryFromPool(pool, table), nil
}

func NewLedgerRepositoryFromPool(pool *pgxpool.Pool, table string) *LedgerRepository {
	if table == "" {
		table = DefaultLedgerTable
	}
	return &LedgerRepository{pool: pool, table: table, now: time.Now}
}

func (r *LedgerRepository) List(ctx context.Context) ([]*api.Migration, error) {
	exists, err := r.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	query := fmt.Sprintf(`
        SELECT filename, version, checksum, contents, applied_at
        FROM %s
        ORDER BY filename`, r.identifier())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration ledger: %w", err)
	}
	defer rows.Close()

	var migrations []*api.Migration
	for rows.Next() {
		var (
			m         api.Migration
			contents  string
			appliedAt time.Time
		)
		if err := rows.Scan(&m.FileName, &m.Version, &m.Checksum, &contents, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration ledger row: %w", err)
		}
		appliedAt = appliedAt.UTC()
		m.AppliedAt = &appliedAt
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

	query := fmt.Sprintf(`
        INSERT INTO %s (filename, version, checksum, contents, applied_at)
        VALUES ($1, $2, $3, $4, $5)`, r.identifier())

	_, err := r.pool.Exec(ctx, query,
		migration.FileName,
		migration.Version,
		migration.Checksum,
		contents,
		r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.FileName, err)
	}
	return nil
}

func (r *LedgerRepository) Close() {
	r.pool.Close()
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
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            filename   TEXT PRIMARY KEY,
            version    INTEGER NOT NULL,
            checksum   TEXT NOT NULL,
            contents   TEXT NOT NULL,
            applied_at TIMESTAMPTZ NOT NULL
        )`, r.identifier())

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migration ledger table: %w", err)
	}
	r.tableExists = true
	return nil
}

func (r *LedgerRepository) exists(ctx context.Context) (bool, error) {
	if r.tableExists {
		return true, nil
	}

	query := `SELECT EXISTS(
        SELECT 1 FROM information_schema.tables
        WHERE table_schema = current_schema() AND table_name = $1
    )`

	err := r.pool.QueryRow(ctx, query, r.table).Scan(&r.tableExists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration ledger table: %w", err)
	}
	return r.tableExists, nil
}

func (r *LedgerRepository) identifier() string {
	return pgx.Identifier{r.table}.Sanitize()
}
