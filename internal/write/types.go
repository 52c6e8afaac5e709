package write

import "github.com/uwx/MaxineZip/internal/ziptype"

// Re-export types from ziptype to keep call sites short.
type Entry = ziptype.Entry
