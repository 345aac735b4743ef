// Package instant provides a microsecond-precision timestamp used
// throughout the row store: every aggregate comparison, expiration
// bucket and LRU ordering is expressed in unix-microsecond terms so
// that values round-trip byte-for-byte through JSON and stay
// comparable across the wire.
package instant

import (
	"strings"
	"time"
)

// Instant is a point in time truncated to microsecond precision and
// stored as unix microseconds, mirroring the precision embedded in
// the row payload's TimeStamp/Expires fields.
type Instant struct {
	unixMicros int64
}

// Zero is the default, unset Instant.
var Zero = Instant{}

// FromTime converts a time.Time to an Instant, truncating to microseconds.
func FromTime(t time.Time) Instant {
	return Instant{unixMicros: t.UnixMicro()}
}

// FromUnixMicros builds an Instant directly from a unix-microsecond value.
func FromUnixMicros(v int64) Instant {
	return Instant{unixMicros: v}
}

// Now returns the current moment truncated to microsecond precision.
func Now() Instant {
	return FromTime(time.Now().UTC())
}

// Parse accepts an ISO-8601 timestamp, with or without a trailing "Z",
// and with fractional seconds of arbitrary precision. It returns ok=false
// rather than an error, matching the codec's "unparseable means absent"
// contract for the Expires field.
func Parse(s string) (Instant, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, false
	}

	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t.UTC()), true
		}
	}
	return Zero, false
}

var parseLayouts = []string{
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// UnixMicros returns the raw unix-microsecond value, used as the
// expiration-index bucket key and for equality/ordering comparisons.
func (i Instant) UnixMicros() int64 {
	return i.unixMicros
}

// Time converts back to a time.Time in UTC.
func (i Instant) Time() time.Time {
	return time.UnixMicro(i.unixMicros).UTC()
}

// Before reports whether i occurs strictly before other.
func (i Instant) Before(other Instant) bool {
	return i.unixMicros < other.unixMicros
}

// After reports whether i occurs strictly after other.
func (i Instant) After(other Instant) bool {
	return i.unixMicros > other.unixMicros
}

// Equal reports whether the two instants are the same microsecond.
func (i Instant) Equal(other Instant) bool {
	return i.unixMicros == other.unixMicros
}

// AddMicros returns a new Instant shifted by the given number of
// microseconds; used by the LRU GC tie-breaker to bump colliding
// last-read-access values by 1us so the oldest-N selection stays
// deterministic.
func (i Instant) AddMicros(n int64) Instant {
	return Instant{unixMicros: i.unixMicros + n}
}

// Max returns the later of the two instants.
func Max(a, b Instant) Instant {
	if a.After(b) {
		return a
	}
	return b
}

// String renders RFC3339 with microsecond precision and a trailing "Z",
// matching the format the codec injects into row payloads.
func (i Instant) String() string {
	return i.Time().Format("2006-01-02T15:04:05.000000Z")
}
