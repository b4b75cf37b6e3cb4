package ir

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Canonical produces RFC 8785 canonical JSON for v.
// CRITICAL: This is the ONLY serialization that may be used for digests.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping (< > & stay literal)
//  3. U+2028 and U+2029 stay literal
//  4. Strings (keys included) are NFC normalized
func Canonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalJSON parses a JSON document and returns its canonical form.
func CanonicalJSON(data []byte) ([]byte, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Canonical(v)
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
	case String:
		writeString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range normalizedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k.norm)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k.raw]); err != nil {
				return fmt.Errorf("value for key %q: %w", k.raw, err)
			}
		}
		buf.WriteByte('}')
	case nil:
		return fmt.Errorf("nil value (use Null)")
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

type objectKey struct {
	raw  string
	norm string
}

// normalizedKeys orders keys by their NFC form, which is what gets written.
func normalizedKeys(obj Object) []objectKey {
	normed := make(Object, len(obj))
	back := make(map[string]string, len(obj))
	for k := range obj {
		n := norm.NFC.String(k)
		normed[n] = nil
		back[n] = k
	}
	sorted := normed.SortedKeys()
	out := make([]objectKey, len(sorted))
	for i, n := range sorted {
		out[i] = objectKey{raw: back[n], norm: n}
	}
	return out
}

// writeString writes an RFC 8785 string: only the quote, the backslash and
// control characters below U+0020 are escaped.
func writeString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		case r == utf8.RuneError && size == 1:
			buf.WriteRune(utf8.RuneError)
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}
