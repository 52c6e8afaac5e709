// Package dostime converts between time.Time and the packed MS-DOS
// date/time pair stored in ZIP headers.
//
// Layout of the packed value (date in the high half, time in the low half):
//
//	bits  0-4   seconds / 2
//	bits  5-10  minute
//	bits 11-15  hour
//	bits 16-20  day
//	bits 21-24  month
//	bits 25-31  year - 1980
//
// Odd seconds are not representable and round down on encode. Years
// outside 1980..2107 do not fit the fields; Clamp them before Pack.
package dostime

import "time"

// MinTime and MaxTime bound the representable range.
var (
	MinTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxTime = time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC)
)

// Clamp limits t to MinTime..MaxTime. The comparison uses t's wall clock
// in its own location, the fields Pack stores.
func Clamp(t time.Time) time.Time {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	switch {
	case wall.Before(MinTime):
		return MinTime
	case wall.After(MaxTime):
		return MaxTime
	}
	return t
}

// Pack encodes t using its own wall-clock fields.
func Pack(t time.Time) uint32 {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	date := uint32(year-1980)<<9 | uint32(month)<<5 | uint32(day)
	clock := uint32(hour)<<11 | uint32(minute)<<5 | uint32(sec/2)
	return date<<16 | clock&0xffff
}

// Unpack decodes a packed value as a UTC wall-clock time.
func Unpack(v uint32) time.Time {
	return Split(uint16(v>>16), uint16(v))
}

// Split decodes the date and time header fields.
func Split(date, clock uint16) time.Time {
	return time.Date(
		int(date>>9)+1980,
		time.Month(date>>5&0xf),
		int(date&0x1f),
		int(clock>>11),
		int(clock>>5&0x3f),
		int(clock&0x1f)*2,
		0,
		time.UTC,
	)
}

// Fields splits t into the (date, time) header fields.
func Fields(t time.Time) (date, clock uint16) {
	v := Pack(t)
	return uint16(v >> 16), uint16(v)
}

// Quantize returns t truncated to the precision the format keeps,
// as it will read back after a round trip.
func Quantize(t time.Time) time.Time {
	return Unpack(Pack(t))
}
