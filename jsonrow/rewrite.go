package jsonrow

import "encoding/json"

// InjectTimestamp returns a new buffer with the TimeStamp field set to
// value: overwriting the existing field's value when pos/hasPos locate
// one, or inserting a new field as the first key after the opening brace
// otherwise. The input is never mutated.
func InjectTimestamp(raw []byte, pos Position, hasPos bool, value string) []byte {
	if hasPos {
		return replaceValue(raw, pos, mustQuote(value))
	}
	return insertFieldAfterOpenBrace(raw, FieldTimeStamp, value)
}

// SetExpires returns a new buffer with Expires set to value, together with
// the byte position of the rewritten field, replacing an existing field or
// inserting a new one immediately after the opening brace.
func SetExpires(raw []byte, pos Position, hasPos bool, value string) ([]byte, Position) {
	if hasPos {
		return replaceValueWithPosition(raw, pos, mustQuote(value))
	}
	return insertFieldAfterOpenBraceWithPosition(raw, FieldExpires, value)
}

// RemoveExpires returns a new buffer with the Expires field (and its
// separating comma) spliced out. If hasPos is false, it returns a clone
// of raw unchanged.
func RemoveExpires(raw []byte, pos Position, hasPos bool) []byte {
	if !hasPos {
		clone := make([]byte, len(raw))
		copy(clone, raw)
		return clone
	}

	if i := precedingComma(raw, pos.KeyStart); i >= 0 {
		return concat(raw[:i], raw[pos.ValueEnd:])
	}

	if j := followingComma(raw, pos.ValueEnd); j >= 0 {
		return concat(raw[:pos.KeyStart], raw[j+1:])
	}

	return concat(raw[:pos.KeyStart], raw[pos.ValueEnd:])
}

// precedingComma returns the index of the nearest non-whitespace byte
// before from if it is a comma, else -1.
func precedingComma(raw []byte, from int) int {
	i := from - 1
	for i >= 0 && isJSONSpace(raw[i]) {
		i--
	}
	if i >= 0 && raw[i] == ',' {
		return i
	}
	return -1
}

// followingComma returns the index of the nearest non-whitespace byte at
// or after from if it is a comma, else -1.
func followingComma(raw []byte, from int) int {
	j := from
	for j < len(raw) && isJSONSpace(raw[j]) {
		j++
	}
	if j < len(raw) && raw[j] == ',' {
		return j
	}
	return -1
}

func isJSONSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func mustQuote(value string) []byte {
	quoted, err := json.Marshal(value)
	if err != nil {
		// value is a plain Go string; Marshal only fails on unsupported
		// types or cyclic structures, neither possible here.
		panic(err)
	}
	return quoted
}

func replaceValue(raw []byte, pos Position, newQuotedValue []byte) []byte {
	out := make([]byte, 0, len(raw)-(pos.ValueEnd-pos.ValueStart)+len(newQuotedValue))
	out = append(out, raw[:pos.ValueStart]...)
	out = append(out, newQuotedValue...)
	out = append(out, raw[pos.ValueEnd:]...)
	return out
}

func replaceValueWithPosition(raw []byte, pos Position, newQuotedValue []byte) ([]byte, Position) {
	newRaw := replaceValue(raw, pos, newQuotedValue)
	newPos := Position{
		KeyStart:   pos.KeyStart,
		KeyEnd:     pos.KeyEnd,
		ValueStart: pos.ValueStart,
		ValueEnd:   pos.ValueStart + len(newQuotedValue),
	}
	return newRaw, newPos
}

func indexOfOpenBrace(raw []byte) int {
	for i, b := range raw {
		if b == '{' {
			return i
		}
	}
	return -1
}

func insertFieldAfterOpenBrace(raw []byte, fieldName, value string) []byte {
	insertAt := indexOfOpenBrace(raw) + 1
	piece := fieldPiece(fieldName, value)
	return concat(raw[:insertAt], piece, raw[insertAt:])
}

func insertFieldAfterOpenBraceWithPosition(raw []byte, fieldName, value string) ([]byte, Position) {
	insertAt := indexOfOpenBrace(raw) + 1
	quoted := mustQuote(value)

	pos := Position{
		KeyStart: insertAt,
		KeyEnd:   insertAt + len(fieldName) + 2,
	}
	pos.ValueStart = pos.KeyEnd + 1
	pos.ValueEnd = pos.ValueStart + len(quoted)

	piece := concat([]byte(`"`+fieldName+`":`), quoted, []byte(","))
	return concat(raw[:insertAt], piece, raw[insertAt:]), pos
}

func fieldPiece(fieldName, value string) []byte {
	return concat([]byte(`"`+fieldName+`":`), mustQuote(value), []byte(","))
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
