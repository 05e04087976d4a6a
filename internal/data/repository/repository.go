package repository

import (
	"context"

	"github.com/dfryer1193/graphmigrate/api"
)

// LedgerRepository stores the migrations that have been applied to a graph.
type LedgerRepository interface {
	// List returns every recorded migration sorted by file name.
	List(ctx context.Context) ([]*api.Migration, error)
	// Save records a migration as applied now. contents holds its statements
	// joined with api.ContentsSeparator.
	Save(ctx context.Context, migration *api.Migration, contents string) error
	Close()
}
