package managers

import (
	"context"
	"errors"
	"fmt"

	"github.com/dfryer1193/graphmigrate/api"
	"github.com/dfryer1193/graphmigrate/internal/data/repository"
	"github.com/dfryer1193/graphmigrate/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type SchemaExecutor interface {
	Create(ctx context.Context, options map[string]string) error
	Execute(ctx context.Context, statement string) error
}

type MigrationSource interface {
	ListCandidates() ([]utils.MigrationFile, error)
}

type MigrationLoader interface {
	Load(file utils.MigrationFile) (*api.Migration, error)
}

// MigrationManager applies migration files to a graph and records them in
// the ledger.
type MigrationManager struct {
	schema     SchemaExecutor
	source     MigrationSource
	loader     MigrationLoader
	ledger     repository.LedgerRepository
	options    map[string]string
	maxVersion int
	log        zerolog.Logger
}

func NewMigrationManager(
	schema SchemaExecutor,
	source MigrationSource,
	loader MigrationLoader,
	ledger repository.LedgerRepository,
	options map[string]string,
) *MigrationManager {
	if loader == nil {
		loader = utils.NewMigrationLoader(nil)
	}
	return &MigrationManager{
		schema:  schema,
		source:  source,
		loader:  loader,
		ledger:  ledger,
		options: options,
		log:     log.With().Str("component", "migrations").Logger(),
	}
}

// SetMaxVersion excludes migrations above version. Zero or less removes the
// ceiling.
func (mgr *MigrationManager) SetMaxVersion(version int) {
	mgr.maxVersion = version
}

func (mgr *MigrationManager) Close() {
	mgr.ledger.Close()
}

// Migrate creates the schema if needed and applies every migration that is
// not yet in the ledger. A migration whose file changed since it was
// recorded aborts the run with *api.ChecksumConflictError; migrations
// recorded before that point stay recorded.
func (mgr *MigrationManager) Migrate(ctx context.Context) error {
	runLog := mgr.log.With().Str("run", uuid.NewString()).Logger()

	if err := mgr.schema.Create(ctx, mgr.options); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	migrations, err := mgr.loadMigrations(runLog)
	if err != nil {
		return err
	}
	runLog.Info().Msgf("Found %d migration files", len(migrations))

	applied, err := mgr.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	pending := make([]*api.Migration, 0, len(migrations))
	for _, m := range migrations {
		recorded, ok := applied[m.FileName]
		if (!ok || recorded.Checksum != m.Checksum) && mgr.withinCeiling(m) {
			pending = append(pending, m)
		}
	}
	runLog.Info().Msgf("%d migrations to apply", len(pending))

	for _, m := range pending {
		if recorded, ok := applied[m.FileName]; ok {
			return &api.ChecksumConflictError{
				FileName:         m.FileName,
				RecordedChecksum: recorded.Checksum,
				FileChecksum:     m.Checksum,
				AppliedAt:        recorded.AppliedAt,
			}
		}

		if err := mgr.apply(ctx, runLog, m); err != nil {
			return err
		}
	}

	return nil
}

// Status classifies every discovered migration against the ledger without
// touching the graph.
func (mgr *MigrationManager) Status(ctx context.Context) ([]api.MigrationStatus, error) {
	migrations, err := mgr.loadMigrations(mgr.log)
	if err != nil {
		return nil, err
	}

	applied, err := mgr.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]api.MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		status := api.MigrationStatus{
			FileName:   m.FileName,
			Version:    m.Version,
			Checksum:   m.Checksum,
			Statements: len(m.Statements),
			State:      api.MigrationStateNew,
		}

		recorded, ok := applied[m.FileName]
		if ok {
			status.RecordedChecksum = recorded.Checksum
			status.AppliedAt = recorded.AppliedAt
		}

		switch {
		case ok && recorded.Checksum == m.Checksum:
			status.State = api.MigrationStateApplied
		case !mgr.withinCeiling(m):
			status.State = api.MigrationStateExcluded
		case ok:
			status.State = api.MigrationStateConflict
		}
		out = append(out, status)
	}

	return out, nil
}

func (mgr *MigrationManager) apply(ctx context.Context, runLog zerolog.Logger, m *api.Migration) error {
	runLog.Info().Msgf("Applying migration file %s", m.FileName)

	applied := 0
	for idx, statement := range m.Statements {
		if err := mgr.schema.Execute(ctx, statement); err != nil {
			if errors.Is(err, api.ErrSchemaAgreement) || ctx.Err() != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m.FileName, err)
			}
			runLog.Error().Err(err).
				Str("file", m.FileName).
				Int("statement", idx).
				Msgf("Failed to execute statement %d: %s", idx, statement)
			continue
		}
		applied++
	}
	runLog.Info().Msgf("%s - Applied %d of %d statements.", m.FileName, applied, len(m.Statements))

	if err := mgr.ledger.Save(ctx, m, m.Contents()); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.FileName, err)
	}
	return nil
}

// loadMigrations reads every candidate file. File names key the ledger, so
// the same name in two directories is rejected before anything runs.
func (mgr *MigrationManager) loadMigrations(logger zerolog.Logger) ([]*api.Migration, error) {
	files, err := mgr.source.ListCandidates()
	if err != nil {
		return nil, fmt.Errorf("failed to list migration files: %w", err)
	}

	seen := make(map[string]string, len(files))
	migrations := make([]*api.Migration, 0, len(files))
	for _, file := range files {
		if first, ok := seen[file.Name()]; ok {
			return nil, fmt.Errorf("%w: %s found at %s and %s", api.ErrDuplicateName, file.Name(), first, file.Path)
		}
		seen[file.Name()] = file.Path

		m, err := mgr.loader.Load(file)
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("file", m.FileName).
			Int("version", m.Version).
			Int("statements", len(m.Statements)).
			Msg("Discovered migration file")
		migrations = append(migrations, m)
	}
	return migrations, nil
}

func (mgr *MigrationManager) appliedMigrations(ctx context.Context) (map[string]*api.Migration, error) {
	recorded, err := mgr.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	applied := make(map[string]*api.Migration, len(recorded))
	for _, m := range recorded {
		applied[m.FileName] = m
	}
	return applied, nil
}

func (mgr *MigrationManager) withinCeiling(m *api.Migration) bool {
	return mgr.maxVersion <= 0 || m.Version <= mgr.maxVersion
}
