// Package dbrow implements the immutable row entity (C3): keys, raw JSON
// bytes, an optional expiration instant kept coherent with the bytes, a
// writer-supplied timestamp string, and a lock-free last-read-access
// instant used only for LRU bookkeeping.
package dbrow

import (
	"github.com/MyJetTools/my-no-sql-core/instant"
	"github.com/MyJetTools/my-no-sql-core/jsonrow"
)

// DbRow is logically immutable: every mutation produces a new *DbRow with
// freshly compiled data and expiration spans. The only field ever mutated
// in place is lastReadAccess, which is advisory and lock-free.
type DbRow struct {
	partitionKey string
	rowKey       string
	data         []byte

	hasExpires         bool
	expires            instant.Instant
	hasExpiresPosition bool
	expiresPosition    jsonrow.Position

	timeStamp string

	lastReadAccess *instant.Atomic
}

// NewFromParsed builds a row from an already-compiled buffer: parsed.Raw
// must be the final bytes the row will hold (TimeStamp already injected),
// and readAt becomes the initial last-read-access instant.
func NewFromParsed(parsed *jsonrow.ParsedRow, readAt instant.Instant) *DbRow {
	return &DbRow{
		partitionKey:       parsed.PartitionKey,
		rowKey:             parsed.RowKey,
		data:               parsed.Raw,
		hasExpires:         parsed.HasExpires,
		expires:            parsed.Expires,
		hasExpiresPosition: parsed.HasExpiresPosition,
		expiresPosition:    parsed.ExpiresPosition,
		timeStamp:          parsed.TimeStamp,
		lastReadAccess:     instant.NewAtomic(readAt),
	}
}

// Restore rebuilds a row from persisted bytes: it parses the embedded
// TimeStamp when present and falls back to the current time otherwise.
func Restore(parsed *jsonrow.ParsedRow) *DbRow {
	readAt := instant.Now()
	if parsed.HasTimeStamp {
		if parsed2, ok := instant.Parse(parsed.TimeStamp); ok {
			readAt = parsed2
		}
	}
	return NewFromParsed(parsed, readAt)
}

// WithNewExpiration returns a new row whose data reflects newExpires,
// copying last_read_access unchanged. Passing hasNewExpires=false removes
// the Expires field from the payload entirely.
func (r *DbRow) WithNewExpiration(newExpires instant.Instant, hasNewExpires bool) *DbRow {
	next := &DbRow{
		partitionKey:   r.partitionKey,
		rowKey:         r.rowKey,
		timeStamp:      r.timeStamp,
		lastReadAccess: instant.NewAtomic(r.lastReadAccess.Load()),
	}

	if hasNewExpires {
		next.data, next.expiresPosition = jsonrow.SetExpires(r.data, r.expiresPosition, r.hasExpiresPosition, newExpires.String())
		next.hasExpiresPosition = true
		next.hasExpires = true
		next.expires = newExpires
	} else {
		next.data = jsonrow.RemoveExpires(r.data, r.expiresPosition, r.hasExpiresPosition)
	}

	return next
}

// UpdateLastReadAccess is lock-free: a relaxed atomic store, since the
// only readers are GC ordering passes that tolerate advisory staleness.
func (r *DbRow) UpdateLastReadAccess(now instant.Instant) {
	r.lastReadAccess.Update(now)
}

// BumpLastReadAccessBy advances last_read_access by delta microseconds and
// returns the new value.
func (r *DbRow) BumpLastReadAccessBy(deltaMicros int64) instant.Instant {
	bumped := r.lastReadAccess.Load().AddMicros(deltaMicros)
	r.lastReadAccess.Store(bumped)
	return bumped
}

func (r *DbRow) PartitionKey() string { return r.partitionKey }
func (r *DbRow) RowKey() string       { return r.rowKey }
func (r *DbRow) Data() []byte         { return r.data }
func (r *DbRow) Size() int            { return len(r.data) }
func (r *DbRow) TimeStamp() string    { return r.timeStamp }

func (r *DbRow) Expires() (instant.Instant, bool) {
	return r.expires, r.hasExpires
}

func (r *DbRow) LastReadAccess() instant.Instant {
	return r.lastReadAccess.Load()
}

// SameAs implements the expiration-index equality contract: two rows are
// the same entity iff their row_key matches.
func SameAs(a, b *DbRow) bool {
	return a.rowKey == b.rowKey
}
