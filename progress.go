package maxinezip

import "github.com/uwx/MaxineZip/internal/ziptype"

// Re-export progress types from internal/ziptype.
type (
	// ProgressEvent represents a progress update during add, verify or recompress.
	ProgressEvent = ziptype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = ziptype.ProgressStage

	// ProgressFunc receives progress updates. It is called synchronously
	// from the goroutine running the operation.
	ProgressFunc = ziptype.ProgressFunc
)

// Re-export progress stage constants.
const (
	// StageCompressing indicates an entry is being compressed and written.
	StageCompressing = ziptype.StageCompressing

	// StageVerifying indicates an entry is being extracted and checked.
	StageVerifying = ziptype.StageVerifying

	// StageTruncating indicates the stream is being reset for a rewrite.
	StageTruncating = ziptype.StageTruncating

	// StageFinalizing indicates the central directory is being written.
	StageFinalizing = ziptype.StageFinalizing
)
