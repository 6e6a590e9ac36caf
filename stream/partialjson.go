package stream

import "bytes"

// parseStatus classifies how far a value could be read from the buffer.
type parseStatus int

const (
	statusComplete parseStatus = iota
	// statusIncomplete means the buffer ended mid-value. Containers
	// still produce a closed representation of their complete members;
	// scalars do not.
	statusIncomplete
	// statusMalformed means the buffer cannot become valid JSON no
	// matter what arrives next.
	statusMalformed
)

// completePartial turns a JSON prefix into the smallest syntactically
// valid document covering its complete members. Incomplete scalar
// values are dropped: an unterminated string, a number still at the
// buffer edge, or a half-spelled literal all leave their field unset.
// Incomplete containers are closed around their complete members.
//
// ok is false when the buffer holds no representable value yet, or
// when it is malformed beyond repair.
func completePartial(data []byte) ([]byte, bool) {
	i := skipSpace(data, 0)
	if i >= len(data) {
		return nil, false
	}

	end, st, out := parseValue(data, i)
	switch st {
	case statusComplete:
		return data[i:end], true
	case statusIncomplete:
		if out != nil {
			return out, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// parseValue reads one value starting at i. On statusComplete, end is
// the offset just past the value and out is nil (the caller slices the
// input directly). On statusIncomplete, out is the closed
// representation when one exists.
func parseValue(s []byte, i int) (end int, st parseStatus, out []byte) {
	switch s[i] {
	case '{':
		return parseObject(s, i)
	case '[':
		return parseArray(s, i)
	case '"':
		return parseString(s, i)
	case 't':
		return parseLiteral(s, i, "true")
	case 'f':
		return parseLiteral(s, i, "false")
	case 'n':
		return parseLiteral(s, i, "null")
	default:
		if s[i] == '-' || (s[i] >= '0' && s[i] <= '9') {
			return parseNumber(s, i)
		}
		return i, statusMalformed, nil
	}
}

func parseObject(s []byte, i int) (int, parseStatus, []byte) {
	// memberStart..lastGood spans the complete members verbatim,
	// separators included. pending carries a trailing member whose
	// value was an incomplete container with a representable close.
	var memberStart, lastGood int
	var pendingKey, pendingValue []byte

	buildIncomplete := func() (int, parseStatus, []byte) {
		var buf bytes.Buffer
		buf.WriteByte('{')
		if lastGood > 0 {
			buf.Write(s[memberStart:lastGood])
		}
		if pendingValue != nil {
			if lastGood > 0 {
				buf.WriteByte(',')
			}
			buf.Write(pendingKey)
			buf.WriteByte(':')
			buf.Write(pendingValue)
		}
		buf.WriteByte('}')
		return len(s), statusIncomplete, buf.Bytes()
	}

	j := skipSpace(s, i+1)
	if j >= len(s) {
		return buildIncomplete()
	}
	if s[j] == '}' {
		return j + 1, statusComplete, nil
	}

	for {
		if s[j] != '"' {
			return j, statusMalformed, nil
		}
		keyStart := j
		keyEnd, st, _ := parseString(s, j)
		if st == statusIncomplete {
			return buildIncomplete()
		}
		if st == statusMalformed {
			return keyEnd, statusMalformed, nil
		}

		j = skipSpace(s, keyEnd)
		if j >= len(s) {
			return buildIncomplete()
		}
		if s[j] != ':' {
			return j, statusMalformed, nil
		}
		j = skipSpace(s, j+1)
		if j >= len(s) {
			return buildIncomplete()
		}

		valEnd, st, childOut := parseValue(s, j)
		if st == statusMalformed {
			return valEnd, statusMalformed, nil
		}
		if st == statusIncomplete {
			if informative(childOut) {
				pendingKey = s[keyStart:keyEnd]
				pendingValue = childOut
			}
			return buildIncomplete()
		}

		if lastGood == 0 {
			memberStart = keyStart
		}
		lastGood = valEnd

		j = skipSpace(s, valEnd)
		if j >= len(s) {
			return buildIncomplete()
		}
		switch s[j] {
		case ',':
			j = skipSpace(s, j+1)
			if j >= len(s) {
				return buildIncomplete()
			}
		case '}':
			return j + 1, statusComplete, nil
		default:
			return j, statusMalformed, nil
		}
	}
}

func parseArray(s []byte, i int) (int, parseStatus, []byte) {
	var elemStart, lastGood int
	var pendingValue []byte

	buildIncomplete := func() (int, parseStatus, []byte) {
		var buf bytes.Buffer
		buf.WriteByte('[')
		if lastGood > 0 {
			buf.Write(s[elemStart:lastGood])
		}
		if pendingValue != nil {
			if lastGood > 0 {
				buf.WriteByte(',')
			}
			buf.Write(pendingValue)
		}
		buf.WriteByte(']')
		return len(s), statusIncomplete, buf.Bytes()
	}

	j := skipSpace(s, i+1)
	if j >= len(s) {
		return buildIncomplete()
	}
	if s[j] == ']' {
		return j + 1, statusComplete, nil
	}

	for {
		valStart := j
		valEnd, st, childOut := parseValue(s, j)
		if st == statusMalformed {
			return valEnd, statusMalformed, nil
		}
		if st == statusIncomplete {
			if informative(childOut) {
				pendingValue = childOut
			}
			return buildIncomplete()
		}

		if lastGood == 0 {
			elemStart = valStart
		}
		lastGood = valEnd

		j = skipSpace(s, valEnd)
		if j >= len(s) {
			return buildIncomplete()
		}
		switch s[j] {
		case ',':
			j = skipSpace(s, j+1)
			if j >= len(s) {
				return buildIncomplete()
			}
		case ']':
			return j + 1, statusComplete, nil
		default:
			return j, statusMalformed, nil
		}
	}
}

func parseString(s []byte, i int) (int, parseStatus, []byte) {
	escaped := false
	for j := i + 1; j < len(s); j++ {
		switch {
		case escaped:
			escaped = false
		case s[j] == '\\':
			escaped = true
		case s[j] == '"':
			return j + 1, statusComplete, nil
		}
	}
	return len(s), statusIncomplete, nil
}

func parseLiteral(s []byte, i int, want string) (int, parseStatus, []byte) {
	rest := s[i:]
	if len(rest) >= len(want) {
		if string(rest[:len(want)]) == want {
			return i + len(want), statusComplete, nil
		}
		return i, statusMalformed, nil
	}
	if string(rest) == want[:len(rest)] {
		return len(s), statusIncomplete, nil
	}
	return i, statusMalformed, nil
}

// parseNumber treats a number touching the buffer edge as incomplete:
// more digits may still arrive, so "2" never masquerades as the final
// value of a field mid-stream.
func parseNumber(s []byte, i int) (int, parseStatus, []byte) {
	j := i
	for j < len(s) && isNumberByte(s[j]) {
		j++
	}
	if j >= len(s) {
		return len(s), statusIncomplete, nil
	}
	return j, statusComplete, nil
}

// informative reports whether a closed child representation carries
// any content worth surfacing. A bare "{}" or "[]" does not; keeping
// it out avoids fields blinking in with nothing to show.
func informative(out []byte) bool {
	return len(out) > 2
}

func isNumberByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == '-' || b == '+' || b == '.' || b == 'e' || b == 'E'
}

func skipSpace(s []byte, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}
