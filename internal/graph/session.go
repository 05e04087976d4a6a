package graph

import (
	"context"

	"github.com/tidwall/gjson"
)

// Statement is a gremlin script sent to the graph store. An empty GraphName
// addresses the system graph, which is how graphs are created and dropped.
type Statement struct {
	Query     string
	GraphName string
}

// Result is the outcome of a graph statement. Rows hold the raw GraphSON
// documents returned by the server, one per result.
type Result struct {
	Rows              []string
	SchemaInAgreement bool
}

// One returns the "result" value of the first row.
func (r *Result) One() gjson.Result {
	if r == nil || len(r.Rows) == 0 {
		return gjson.Result{}
	}
	return gjson.Get(r.Rows[0], "result")
}

// All returns the "result" value of every row.
func (r *Result) All() []gjson.Result {
	if r == nil {
		return nil
	}
	out := make([]gjson.Result, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, gjson.Get(row, "result"))
	}
	return out
}

// Session is the connection to the graph store.
type Session interface {
	ExecuteGraph(ctx context.Context, statement Statement) (*Result, error)
	// CheckSchemaAgreement reports whether every node in the cluster sees the
	// same schema version.
	CheckSchemaAgreement(ctx context.Context) (bool, error)
	Close() error
}
