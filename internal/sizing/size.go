// Package sizing provides overflow-checked conversions into the fixed-width
// fields of the archive format.
package sizing

import "math"

// ToUint32 converts a non-negative length to uint32, returning overflowErr
// if it does not fit a 32-bit field.
func ToUint32(size int64, overflowErr error) (uint32, error) {
	if size < 0 || size > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(size), nil
}

// ToUint16 converts a non-negative length to uint16, returning overflowErr
// if it does not fit a 16-bit field.
func ToUint16(size int, overflowErr error) (uint16, error) {
	if size < 0 || size > math.MaxUint16 {
		return 0, overflowErr
	}
	return uint16(size), nil
}

// AddUint32 adds a length to an offset, returning (result, false) if the
// result leaves the 32-bit offset space.
func AddUint32(off uint32, n int64) (uint32, bool) {
	if n < 0 {
		return 0, false
	}
	sum := int64(off) + n
	if sum > math.MaxUint32 {
		return 0, false
	}
	return uint32(sum), true
}
