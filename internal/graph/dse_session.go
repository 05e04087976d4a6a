package graph

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog/log"
)

const (
	graphLanguage = "gremlin-groovy"
	graphSource   = "g"
)

// ClusterConfig holds the connection settings of a DataStax Enterprise cluster.
type ClusterConfig struct {
	Hosts    []string
	Port     int
	SSL      bool
	Username string
	Password string
	Timeout  time.Duration
}

// DseSession sends gremlin scripts to DSE Graph over the CQL native protocol.
type DseSession struct {
	session *gocql.Session
}

func NewDseSession(cfg ClusterConfig) (*DseSession, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("at least one contact point is required")
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	if cfg.Port > 0 {
		cluster.Port = cfg.Port
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	if cfg.SSL {
		cluster.SslOpts = &gocql.SslOptions{
			Config:                 &tls.Config{MinVersion: tls.VersionTLS12},
			EnableHostVerification: true,
		}
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %v: %w", cfg.Hosts, err)
	}

	log.Info().Strs("hosts", cfg.Hosts).Int("port", cluster.Port).Msg("Connected to cluster")
	return &DseSession{session: session}, nil
}

// ExecuteGraph runs statement as a graph query. DSE returns one "gremlin"
// text column per row holding a GraphSON document.
func (s *DseSession) ExecuteGraph(ctx context.Context, statement Statement) (*Result, error) {
	payload := map[string][]byte{
		"graph-language": []byte(graphLanguage),
		"graph-source":   []byte(graphSource),
	}
	if statement.GraphName != "" {
		payload["graph-name"] = []byte(statement.GraphName)
	}

	iter := s.session.Query(statement.Query).
		WithContext(ctx).
		CustomPayload(payload).
		Iter()

	result := &Result{}
	var row string
	for iter.Scan(&row) {
		result.Rows = append(result.Rows, row)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("graph statement failed: %w", err)
	}

	return result, nil
}

// CheckSchemaAgreement compares the schema version of the coordinator with
// the versions reported for its peers.
func (s *DseSession) CheckSchemaAgreement(ctx context.Context) (bool, error) {
	var local gocql.UUID
	if err := s.session.Query(`SELECT schema_version FROM system.local WHERE key = 'local'`).
		WithContext(ctx).
		Scan(&local); err != nil {
		return false, fmt.Errorf("failed to read local schema version: %w", err)
	}

	versions := map[gocql.UUID]struct{}{local: {}}

	iter := s.session.Query(`SELECT schema_version FROM system.peers`).WithContext(ctx).Iter()
	var peer gocql.UUID
	for iter.Scan(&peer) {
		// peers that are down report no version
		if peer != (gocql.UUID{}) {
			versions[peer] = struct{}{}
		}
	}
	if err := iter.Close(); err != nil {
		return false, fmt.Errorf("failed to read peer schema versions: %w", err)
	}

	return len(versions) == 1, nil
}

func (s *DseSession) Close() error {
	s.session.Close()
	return nil
}
