package jsonrow

import "fmt"

// scanTopLevelFields walks a single JSON object byte slice and returns the
// name/value byte spans of its top-level fields, without deserializing
// nested values. Key spans include the surrounding quotes; value spans
// include the surrounding quotes when the value is a JSON string.
func scanTopLevelFields(data []byte) ([]field, error) {
	pos := skipWhitespace(data, 0)
	if pos >= len(data) || data[pos] != '{' {
		return nil, fmt.Errorf("expected '{' at offset %d", pos)
	}
	pos++

	var fields []field

	pos = skipWhitespace(data, pos)
	if pos < len(data) && data[pos] == '}' {
		return fields, nil
	}

	for {
		pos = skipWhitespace(data, pos)
		if pos >= len(data) || data[pos] != '"' {
			return nil, fmt.Errorf("expected field name at offset %d", pos)
		}

		nameStart := pos
		nameEndQuote, err := scanString(data, pos)
		if err != nil {
			return nil, err
		}
		nameEnd := nameEndQuote
		name, err := decodeJSONString(data[nameStart:nameEnd])
		if err != nil {
			return nil, err
		}

		pos = skipWhitespace(data, nameEnd)
		if pos >= len(data) || data[pos] != ':' {
			return nil, fmt.Errorf("expected ':' at offset %d", pos)
		}
		pos++

		pos = skipWhitespace(data, pos)
		valueStart := pos
		valueEnd, isString, isNull, err := skipValue(data, pos)
		if err != nil {
			return nil, err
		}

		fields = append(fields, field{
			name:       name,
			nameStart:  nameStart,
			nameEnd:    nameEnd,
			valueStart: valueStart,
			valueEnd:   valueEnd,
			isString:   isString,
			isNull:     isNull,
		})

		pos = skipWhitespace(data, valueEnd)
		if pos >= len(data) {
			return nil, fmt.Errorf("unexpected end of input after field %q", name)
		}
		if data[pos] == ',' {
			pos++
			continue
		}
		if data[pos] == '}' {
			break
		}
		return nil, fmt.Errorf("expected ',' or '}' at offset %d", pos)
	}

	return fields, nil
}

func skipWhitespace(data []byte, pos int) int {
	for pos < len(data) {
		switch data[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

// scanString returns the offset just past the closing quote of the JSON
// string starting at pos (which must point at the opening quote).
func scanString(data []byte, pos int) (int, error) {
	if pos >= len(data) || data[pos] != '"' {
		return 0, fmt.Errorf("expected '\"' at offset %d", pos)
	}
	i := pos + 1
	for i < len(data) {
		switch data[i] {
		case '\\':
			i += 2
			continue
		case '"':
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("unterminated string starting at offset %d", pos)
}

// skipValue returns the offset just past the JSON value starting at pos,
// along with whether that value was a JSON string or JSON null.
func skipValue(data []byte, pos int) (end int, isString bool, isNull bool, err error) {
	if pos >= len(data) {
		return 0, false, false, fmt.Errorf("unexpected end of input at offset %d", pos)
	}

	switch data[pos] {
	case '"':
		end, err := scanString(data, pos)
		return end, true, false, err
	case '{':
		end, err := skipBraced(data, pos, '{', '}')
		return end, false, false, err
	case '[':
		end, err := skipBraced(data, pos, '[', ']')
		return end, false, false, err
	case 't':
		return expectLiteral(data, pos, "true")
	case 'f':
		return expectLiteral(data, pos, "false")
	case 'n':
		end, err := expectLiteralRaw(data, pos, "null")
		return end, false, true, err
	default:
		return skipNumber(data, pos)
	}
}

func expectLiteral(data []byte, pos int, lit string) (int, bool, bool, error) {
	end, err := expectLiteralRaw(data, pos, lit)
	return end, false, false, err
}

func expectLiteralRaw(data []byte, pos int, lit string) (int, error) {
	if pos+len(lit) > len(data) || string(data[pos:pos+len(lit)]) != lit {
		return 0, fmt.Errorf("expected literal %q at offset %d", lit, pos)
	}
	return pos + len(lit), nil
}

func skipBraced(data []byte, pos int, open, close byte) (int, error) {
	depth := 0
	i := pos
	for i < len(data) {
		switch data[i] {
		case '"':
			end, err := scanString(data, i)
			if err != nil {
				return 0, err
			}
			i = end
			continue
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
		i++
	}
	return 0, fmt.Errorf("unterminated value starting at offset %d", pos)
}

func skipNumber(data []byte, pos int) (int, bool, bool, error) {
	i := pos
	for i < len(data) {
		c := data[i]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			i++
			continue
		}
		break
	}
	if i == pos {
		return 0, false, false, fmt.Errorf("expected value at offset %d", pos)
	}
	return i, false, false, nil
}
