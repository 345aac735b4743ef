// Package jsonrow implements the byte-preserving codec that turns a raw
// JSON row document into (PartitionKey, RowKey, Expires, TimeStamp) plus
// the byte spans of the TimeStamp/Expires fields, and that rewrites those
// fields in place without a full marshal/unmarshal round trip. Downstream
// consumers depend on byte-exact preservation of every field they did not
// ask to change, so every rewrite below produces a new buffer rather than
// mutating one.
package jsonrow

import (
	"encoding/json"

	"github.com/MyJetTools/my-no-sql-core/instant"
)

// Field names recognized at the top level of a row document.
const (
	FieldPartitionKey  = "PartitionKey"
	FieldRowKey        = "RowKey"
	FieldExpires       = "Expires"
	FieldTimeStamp     = "TimeStamp"
	fieldTimeStampLow  = "timestamp"
	maxPartitionKeyLen = 255
)

// Position is a byte span pair for a single JSON field: the key span
// includes the surrounding quotes, as does the value span when the value
// is a JSON string.
type Position struct {
	KeyStart   int
	KeyEnd     int
	ValueStart int
	ValueEnd   int
}

// ParsedRow is the result of scanning a single JSON object without fully
// deserializing it.
type ParsedRow struct {
	PartitionKey string
	RowKey       string

	HasExpires bool
	Expires    instant.Instant

	HasTimeStamp bool
	TimeStamp    string

	HasTimeStampPosition bool
	TimeStampPosition    Position

	HasExpiresPosition bool
	ExpiresPosition    Position

	Raw []byte
}

// field is one decoded top-level (name, value) pair together with its
// byte spans, mirroring the original-language JsonFirstLineReader's line.
type field struct {
	name               string
	nameStart, nameEnd int
	valueStart, valueEnd int
	isString           bool
	isNull             bool
}

// Parse scans raw as a single JSON object, extracting the row identity
// fields without deserializing the rest of the document.
func Parse(raw []byte) (*ParsedRow, error) {
	fields, err := scanTopLevelFields(raw)
	if err != nil {
		return nil, errJSONParse(err)
	}

	result := &ParsedRow{Raw: raw}

	var partitionKeySeen, rowKeySeen bool
	var partitionKeyNull, rowKeyNull bool
	var partitionKey, rowKey string

	for _, f := range fields {
		switch {
		case f.name == FieldPartitionKey:
			partitionKeySeen = true
			if f.isNull {
				partitionKeyNull = true
				continue
			}
			partitionKey, err = decodeJSONString(raw[f.valueStart:f.valueEnd])
			if err != nil {
				return nil, errJSONParse(err)
			}

		case f.name == FieldRowKey:
			rowKeySeen = true
			if f.isNull {
				rowKeyNull = true
				continue
			}
			rowKey, err = decodeJSONString(raw[f.valueStart:f.valueEnd])
			if err != nil {
				return nil, errJSONParse(err)
			}

		case f.name == FieldExpires:
			result.HasExpiresPosition = true
			result.ExpiresPosition = Position{
				KeyStart:   f.nameStart,
				KeyEnd:     f.nameEnd,
				ValueStart: f.valueStart,
				ValueEnd:   f.valueEnd,
			}
			if !f.isNull && f.isString {
				raw, err := decodeJSONString(raw[f.valueStart:f.valueEnd])
				if err == nil {
					if parsed, ok := instant.Parse(raw); ok {
						result.Expires = parsed
						result.HasExpires = true
					}
				}
			}

		case f.name == FieldTimeStamp || lower(f.name) == fieldTimeStampLow:
			result.HasTimeStampPosition = true
			result.TimeStampPosition = Position{
				KeyStart:   f.nameStart,
				KeyEnd:     f.nameEnd,
				ValueStart: f.valueStart,
				ValueEnd:   f.valueEnd,
			}
			if !f.isNull && f.isString {
				ts, err := decodeJSONString(raw[f.valueStart:f.valueEnd])
				if err == nil {
					result.TimeStamp = ts
					result.HasTimeStamp = true
				}
			}
		}
	}

	if !partitionKeySeen {
		return nil, errFieldMissing(FieldPartitionKey)
	}
	if partitionKeyNull {
		return nil, errFieldCannotBeNull(FieldPartitionKey)
	}
	if len(partitionKey) > maxPartitionKeyLen {
		return nil, errPartitionKeyTooLong()
	}

	if !rowKeySeen {
		return nil, errFieldMissing(FieldRowKey)
	}
	if rowKeyNull {
		return nil, errFieldCannotBeNull(FieldRowKey)
	}

	result.PartitionKey = partitionKey
	result.RowKey = rowKey

	return result, nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func decodeJSONString(quoted []byte) (string, error) {
	var s string
	if err := json.Unmarshal(quoted, &s); err != nil {
		return "", err
	}
	return s, nil
}
