package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	commandSeparator = "."
	graphStatement   = "system.graph('%s')"
	optionStatement  = `option("%s")`
	setStatement     = `set("%s")`
	createCommand    = "ifNotExists().create()"
	dropCommand      = "drop()"
	schemaPrefix     = "schema."
)

// IsSchemaChange reports whether a gremlin statement alters the graph schema.
func IsSchemaChange(statement string) bool {
	return strings.HasPrefix(statement, schemaPrefix)
}

// GraphSchema executes statements against one named graph and waits for
// cluster-wide schema agreement after schema changes.
type GraphSchema struct {
	session           Session
	name              string
	delayer           Delayer
	isSchemaChange    func(string) bool
	agreementAttempts int
	retryDelay        time.Duration
	log               zerolog.Logger
}

type Option func(*GraphSchema)

func WithDelayer(d Delayer) Option {
	return func(s *GraphSchema) { s.delayer = d }
}

// WithSchemaChangePredicate replaces IsSchemaChange, e.g. for another dialect.
func WithSchemaChangePredicate(fn func(string) bool) Option {
	return func(s *GraphSchema) { s.isSchemaChange = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *GraphSchema) { s.log = l }
}

func NewGraphSchema(session Session, schemaName string, opts ...Option) *GraphSchema {
	s := &GraphSchema{
		session:           session,
		name:              schemaName,
		delayer:           SleepDelayer{},
		isSchemaChange:    IsSchemaChange,
		agreementAttempts: SchemaAgreementAttempts,
		retryDelay:        RetryDelay,
		log:               log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "schema").Str("graph", schemaName).Logger()
	return s
}

// Name returns the graph the schema is bound to.
func (s *GraphSchema) Name() string {
	return s.name
}

// Create creates the graph if it does not exist, applying options as
// option(key).set(value) clauses. Options are emitted in key order.
func (s *GraphSchema) Create(ctx context.Context, options map[string]string) error {
	clauses := []string{fmt.Sprintf(graphStatement, s.name)}
	clauses = append(clauses, graphOptions(options)...)
	clauses = append(clauses, createCommand)

	s.log.Info().Msgf("Creating schema %s", s.name)
	return s.executeSystem(ctx, strings.Join(clauses, commandSeparator))
}

// Drop removes the graph.
func (s *GraphSchema) Drop(ctx context.Context) error {
	statement := strings.Join([]string{fmt.Sprintf(graphStatement, s.name), dropCommand}, commandSeparator)

	s.log.Info().Msgf("Dropping schema %s", s.name)
	return s.executeSystem(ctx, statement)
}

// Execute runs a single statement against the graph.
func (s *GraphSchema) Execute(ctx context.Context, statement string) error {
	_, err := s.ExecuteStatement(ctx, statement)
	return err
}

// ExecuteStatement runs a statement against the graph and returns its result.
// Schema changes block until the cluster agrees on the new schema.
func (s *GraphSchema) ExecuteStatement(ctx context.Context, statement string) (*Result, error) {
	result, err := s.session.ExecuteGraph(ctx, Statement{Query: statement, GraphName: s.name})
	if err != nil {
		return nil, err
	}

	if s.isSchemaChange(statement) {
		if err := s.waitForSchemaAgreement(ctx, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *GraphSchema) executeSystem(ctx context.Context, statement string) error {
	result, err := s.session.ExecuteGraph(ctx, Statement{Query: statement})
	if err != nil {
		return fmt.Errorf("failed to execute %q: %w", statement, err)
	}
	return s.waitForSchemaAgreement(ctx, result)
}

func graphOptions(options map[string]string) []string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses,
			fmt.Sprintf(optionStatement, k)+commandSeparator+fmt.Sprintf(setStatement, options[k]))
	}
	return clauses
}
