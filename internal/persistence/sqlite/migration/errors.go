package migration

import (
	"errors"
	"fmt"
)

// Sentinels wrapped by MigrationError and DatabaseError.
var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	// ErrVersionConflict reports a gap in the version sequence or an applied
	// version without a matching file.
	ErrVersionConflict  = errors.New("migration version conflict")
	ErrInvalidVersion   = errors.New("invalid migration version")
	ErrDuplicateVersion = errors.New("duplicate migration version")
	// ErrChecksumMismatch reports an applied migration whose file changed afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// MigrationError ties a failure to the migration file and the step that produced it.
type MigrationError struct {
	Version   string
	Name      string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	subject := "migration"
	if e.Version != "" {
		subject += " " + e.Version
	}
	if e.Name != "" {
		subject += " (" + e.Name + ")"
	}
	return fmt.Sprintf("%s: %s: %v", subject, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// NewMigrationError builds a MigrationError.
func NewMigrationError(version, name, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, Name: name, Operation: operation, Err: err}
}

// DatabaseError is a driver failure while applying a migration or reading
// the schema_migrations table. Version is empty for table level operations.
type DatabaseError struct {
	Version   string
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("schema_migrations: %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("migration %s: %s: %v", e.Version, e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError builds a DatabaseError.
func NewDatabaseError(version, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Operation: operation, Err: err}
}
