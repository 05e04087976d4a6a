package api

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidName is returned when a migration file name does not follow
	// the v{version:03d}_{description}.{gremlin|groovy} convention.
	ErrInvalidName = errors.New("invalid migration file name")

	// ErrDuplicateName is returned when two migration files in different
	// directories share a file name, which is the ledger key.
	ErrDuplicateName = errors.New("duplicate migration file name")

	// ErrNotFound is returned when a migration file does not exist.
	ErrNotFound = errors.New("migration file not found")

	// ErrIO is returned when a migration file cannot be read.
	ErrIO = errors.New("migration file read failed")

	ErrChecksumConflict = errors.New("migration checksum conflict")

	ErrSchemaAgreement = errors.New("schema agreement not reached")
)

// ChecksumConflictError reports a migration file that changed after it was
// recorded in the ledger.
type ChecksumConflictError struct {
	FileName         string
	RecordedChecksum string
	FileChecksum     string
	AppliedAt        *time.Time
}

func (e *ChecksumConflictError) Error() string {
	appliedAt := "unknown time"
	if e.AppliedAt != nil {
		appliedAt = e.AppliedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("migration %s already applied with checksum %s at %s (file checksum %s)",
		e.FileName, e.RecordedChecksum, appliedAt, e.FileChecksum)
}

func (e *ChecksumConflictError) Is(target error) bool {
	return target == ErrChecksumConflict
}

// SchemaAgreementError reports that the cluster did not agree on a schema
// change within the polling budget.
type SchemaAgreementError struct {
	Attempts int
}

func (e *SchemaAgreementError) Error() string {
	return fmt.Sprintf("failed to achieve schema agreement across the cluster after %d attempts", e.Attempts)
}

func (e *SchemaAgreementError) Is(target error) bool {
	return target == ErrSchemaAgreement
}
