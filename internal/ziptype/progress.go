package ziptype

// ProgressEvent represents a progress update during add, verify or recompress operations.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Name is the entry currently being processed, if applicable.
	Name string

	// BytesDone is the number of uncompressed bytes completed so far.
	BytesDone uint64

	// EntriesDone is the number of entries completed.
	EntriesDone int

	// EntriesTotal is the total number of entries.
	// Zero indicates the total is unknown.
	EntriesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

const (
	// StageCompressing indicates an entry is being compressed and written.
	StageCompressing ProgressStage = iota

	// StageVerifying indicates an entry is being extracted and checked.
	StageVerifying

	// StageTruncating indicates the archive stream is being reset for a rewrite.
	StageTruncating

	// StageFinalizing indicates the central directory is being written.
	StageFinalizing
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageCompressing:
		return "compressing"
	case StageVerifying:
		return "verifying"
	case StageTruncating:
		return "truncating"
	case StageFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
type ProgressFunc func(ProgressEvent)
