package api

import (
	"strings"
	"time"
)

// ContentsSeparator joins statements when a migration is persisted to the ledger.
const ContentsSeparator = "\n"

// Migration is one versioned migration script, either loaded from disk or
// reconstructed from the ledger.
type Migration struct {
	FileName   string     `json:"fileName"`
	Version    int        `json:"version"`
	Checksum   string     `json:"checksum"`
	Statements []string   `json:"statements,omitempty"`
	AppliedAt  *time.Time `json:"appliedAt,omitempty"`
}

// Contents returns the statements joined the way the ledger stores them.
func (m *Migration) Contents() string {
	return strings.Join(m.Statements, ContentsSeparator)
}

// SplitContents is the inverse of Contents.
func SplitContents(contents string) []string {
	if contents == "" {
		return nil
	}
	return strings.Split(contents, ContentsSeparator)
}

type MigrationState string

const (
	MigrationStateNew      MigrationState = "new"
	MigrationStateApplied  MigrationState = "applied"
	MigrationStateConflict MigrationState = "conflict"
	MigrationStateExcluded MigrationState = "excluded"
)

// MigrationStatus describes a discovered migration file against the ledger.
type MigrationStatus struct {
	FileName         string         `json:"fileName"`
	Version          int            `json:"version"`
	Checksum         string         `json:"checksum"`
	Statements       int            `json:"statements"`
	State            MigrationState `json:"state"`
	RecordedChecksum string         `json:"recordedChecksum,omitempty"`
	AppliedAt        *time.Time     `json:"appliedAt,omitempty"`
}

type MigrationList struct {
	Migrations []MigrationStatus `json:"migrations"`
}
