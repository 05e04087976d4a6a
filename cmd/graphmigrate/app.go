package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dfryer1193/graphmigrate/internal/config"
	"github.com/dfryer1193/graphmigrate/internal/data/repository"
	"github.com/dfryer1193/graphmigrate/internal/data/repository/dse"
	"github.com/dfryer1193/graphmigrate/internal/data/repository/postgres"
	"github.com/dfryer1193/graphmigrate/internal/data/repository/sqlite"
	dataUtils "github.com/dfryer1193/graphmigrate/internal/data/utils"
	"github.com/dfryer1193/graphmigrate/internal/graph"
	"github.com/dfryer1193/graphmigrate/internal/rest/managers"
	"github.com/dfryer1193/graphmigrate/internal/utils"
	"github.com/rs/zerolog/log"
)

const connectTimeout = 30 * time.Second

type app struct {
	session graph.Session
	schema  *graph.GraphSchema
	manager *managers.MigrationManager
}

func newApp(ctx context.Context, opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	profileOptions, err := cfg.ProfileOptions(opts.profile)
	if err != nil {
		return nil, err
	}

	session, err := graph.NewDseSession(graph.ClusterConfig{
		Hosts:    opts.hosts,
		Port:     opts.port,
		SSL:      opts.ssl,
		Username: opts.username,
		Password: opts.password,
		Timeout:  connectTimeout,
	})
	if err != nil {
		return nil, err
	}

	schema := graph.NewGraphSchema(session, cfg.Schema)
	ledger, err := openLedger(ctx, cfg, schema, opts.ledgerDSN)
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	mgr := managers.NewMigrationManager(
		schema,
		utils.NewFileMigrationSource(cfg.MigrationDir()),
		utils.NewMigrationLoader(utils.NewStatementParser()),
		ledger,
		profileOptions,
	)
	mgr.SetMaxVersion(opts.maxVersion)

	return &app{session: session, schema: schema, manager: mgr}, nil
}

func (a *app) Close() {
	a.manager.Close()
	if err := a.session.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close session")
	}
}

// openLedger builds the ledger backend named in the configuration. dsn, when
// set, overrides the configured postgres connection.
func openLedger(ctx context.Context, cfg *config.Config, schema dse.Executor, dsn string) (repository.LedgerRepository, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerBackendPostgres:
		settings := dataUtils.PostgresSettings{
			DSN:      cfg.Ledger.DSN,
			Host:     cfg.Ledger.Host,
			Port:     cfg.Ledger.Port,
			User:     cfg.Ledger.User,
			Password: cfg.Ledger.Password,
			Database: cfg.Ledger.Database,
		}
		if dsn != "" {
			settings.DSN = dsn
		}
		connString, err := dataUtils.BuildConnectionString(settings)
		if err != nil {
			return nil, err
		}
		ledger, err := postgres.NewLedgerRepository(ctx, connString, cfg.Ledger.Table)
		if err != nil {
			return nil, err
		}
		return ledger, nil

	case config.LedgerBackendSQLite:
		path := cfg.LedgerPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
		ledger, err := sqlite.NewLedgerRepository(path, cfg.Ledger.Table)
		if err != nil {
			return nil, err
		}
		return ledger, nil

	case config.LedgerBackendGraph:
		return dse.NewLedgerRepository(schema), nil

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}
