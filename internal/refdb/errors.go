package refdb

import "errors"

var (
	// ErrEmptyDatabase indicates an operation that needs a fitted database.
	ErrEmptyDatabase = errors.New("reference database is empty")
	// ErrEmptyInput indicates Fit was called without entries.
	ErrEmptyInput = errors.New("no reference entries supplied")
	// ErrInsufficientReferences indicates a prediction that needs at least two references.
	ErrInsufficientReferences = errors.New("at least two references are required")
	// ErrDuplicateLabel indicates two entries whose labels normalise to the same value.
	ErrDuplicateLabel = errors.New("duplicate reference label")
	// ErrInvalidLabel indicates an empty or whitespace-only label.
	ErrInvalidLabel = errors.New("invalid reference label")
	// ErrCheckpointVersion indicates a checkpoint written in an unsupported format.
	ErrCheckpointVersion = errors.New("unsupported checkpoint version")
	// ErrCheckpointCorrupt indicates a checkpoint that fails shape or checksum verification.
	ErrCheckpointCorrupt = errors.New("checkpoint is corrupt")
	// ErrCheckpointLocked indicates another process holds the checkpoint lock.
	ErrCheckpointLocked = errors.New("checkpoint is locked")
)
