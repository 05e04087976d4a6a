// Package dse keeps the migration ledger inside the migrated graph itself.
package dse

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dfryer1193/graphmigrate/api"
	"github.com/dfryer1193/graphmigrate/internal/graph"
	"github.com/dfryer1193/graphmigrate/internal/utils"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const migrationVertexLabel = "databaseMigration"

const (
	propLabel     = "migrationLabel"
	propFilename  = "migrationFilename"
	propVersion   = "migrationVersion"
	propChecksum  = "migrationChecksum"
	propContents  = "migrationContents"
	propAppliedAt = "migrationAppliedAt"
)

//go:embed migration_metadata.gremlin
var metadataScript string

var (
	metadataExistsStatement = fmt.Sprintf("schema.vertexLabel('%s').exists()", migrationVertexLabel)
	listMigrationsStatement = fmt.Sprintf("g.V().hasLabel('%s').has('%s', '%s')",
		migrationVertexLabel, propLabel, migrationVertexLabel)
)

// Executor runs a statement against the migrated graph.
type Executor interface {
	ExecuteStatement(ctx context.Context, statement string) (*graph.Result, error)
}

type LedgerRepository struct {
	schema         Executor
	parser         *utils.StatementParser
	now            func() time.Time
	metadataExists bool
}

func NewLedgerRepository(schema Executor) *LedgerRepository {
	return &LedgerRepository{
		schema: schema,
		parser: utils.NewStatementParser(),
		now:    time.Now,
	}
}

func (r *LedgerRepository) List(ctx context.Context) ([]*api.Migration, error) {
	exists, err := r.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	result, err := r.schema.ExecuteStatement(ctx, listMigrationsStatement)
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	var migrations []*api.Migration
	for _, vertex := range result.All() {
		m, err := toMigration(vertex)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].FileName < migrations[j].FileName
	})
	return migrations, nil
}

func (r *LedgerRepository) Save(ctx context.Context, migration *api.Migration, contents string) error {
	if err := r.init(ctx); err != nil {
		return err
	}

	statement := fmt.Sprintf(
		"graph.addVertex(label, %s, %s, %s, %s, %s, %s, %d, %s, %s, %s, %s, %s, java.time.Instant.parse(%s))",
		quote(migrationVertexLabel),
		quote(propLabel), quote(migrationVertexLabel),
		quote(propFilename), quote(migration.FileName),
		quote(propVersion), migration.Version,
		quote(propChecksum), quote(migration.Checksum),
		quote(propContents), quote(contents),
		quote(propAppliedAt), quote(r.now().UTC().Format(time.RFC3339Nano)),
	)

	if _, err := r.schema.ExecuteStatement(ctx, statement); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.FileName, err)
	}
	return nil
}

func (r *LedgerRepository) Close() {}

func (r *LedgerRepository) init(ctx context.Context) error {
	exists, err := r.exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	log.Info().Msg("Creating migration ledger schema")
	for _, statement := range r.parser.Parse(utils.SplitLines(metadataScript)) {
		if _, err := r.schema.ExecuteStatement(ctx, statement); err != nil {
			return fmt.Errorf("failed to create migration ledger schema: %w", err)
		}
	}
	r.metadataExists = true
	return nil
}

func (r *LedgerRepository) exists(ctx context.Context) (bool, error) {
	if r.metadataExists {
		return true, nil
	}

	result, err := r.schema.ExecuteStatement(ctx, metadataExistsStatement)
	if err != nil {
		return false, fmt.Errorf("failed to check migration ledger schema: %w", err)
	}
	r.metadataExists = result.One().Bool()
	return r.metadataExists, nil
}

// toMigration maps a GraphSON vertex to a migration. Property values live at
// properties.<key>.0.value.
func toMigration(vertex gjson.Result) (*api.Migration, error) {
	prop := func(key string) gjson.Result {
		return vertex.Get("properties." + key + ".0.value")
	}

	fileName := prop(propFilename)
	if !fileName.Exists() {
		return nil, fmt.Errorf("ledger vertex %s has no %s", vertex.Get("id").Raw, propFilename)
	}

	m := &api.Migration{
		FileName:   fileName.String(),
		Version:    int(prop(propVersion).Int()),
		Checksum:   prop(propChecksum).String(),
		Statements: api.SplitContents(prop(propContents).String()),
	}

	if appliedAt := prop(propAppliedAt); appliedAt.Exists() {
		t, err := parseTimestamp(appliedAt)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %s: %w", m.FileName, err)
		}
		m.AppliedAt = &t
	}
	return m, nil
}

func parseTimestamp(v gjson.Result) (time.Time, error) {
	if v.Type == gjson.Number {
		return time.UnixMilli(v.Int()).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid applied timestamp %q: %w", v.String(), err)
	}
	return t.UTC(), nil
}

// quote renders s as a single quoted groovy string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}
