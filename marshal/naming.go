package marshal

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// EntryPoint escapes a fully-qualified logical name into a flat identifier.
// Separators ('.' and '/') become '_'; '_', ';' and '[' become "_1", "_2" and
// "_3"; any other character outside [A-Za-z0-9] becomes "_0" followed by four
// lower-case hex digits per UTF-16 code unit.
func EntryPoint(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case isASCIIAlnum(r):
			b.WriteRune(r)
		case r == '.' || r == '/':
			b.WriteByte('_')
		case r == '_':
			b.WriteString("_1")
		case r == ';':
			b.WriteString("_2")
		case r == '[':
			b.WriteString("_3")
		default:
			for _, u := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&b, "_0%04x", u)
			}
		}
	}
	return b.String()
}

// DecodeEntryPoint reverses EntryPoint. Separators decode as '.'.
func DecodeEntryPoint(entry string) (string, error) {
	var (
		b     strings.Builder
		units []uint16
	)
	flush := func() {
		if len(units) > 0 {
			b.WriteString(string(utf16.Decode(units)))
			units = units[:0]
		}
	}
	for i := 0; i < len(entry); i++ {
		c := entry[i]
		if c != '_' {
			if !isASCIIAlnum(rune(c)) {
				return "", fmt.Errorf("invalid character %q at %d in entry point %q", c, i, entry)
			}
			flush()
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(entry) {
			flush()
			b.WriteByte('.')
			continue
		}
		switch entry[i+1] {
		case '0':
			if i+6 > len(entry) {
				return "", fmt.Errorf("truncated escape at %d in entry point %q", i, entry)
			}
			u, err := strconv.ParseUint(entry[i+2:i+6], 16, 16)
			if err != nil {
				return "", fmt.Errorf("invalid escape at %d in entry point %q: %w", i, entry, err)
			}
			units = append(units, uint16(u))
			i += 5
			continue
		case '1':
			flush()
			b.WriteByte('_')
		case '2':
			flush()
			b.WriteByte(';')
		case '3':
			flush()
			b.WriteByte('[')
		default:
			flush()
			b.WriteByte('.')
			continue
		}
		i++
	}
	flush()
	return b.String(), nil
}

// NativeName derives the native function name of a logical name: prefix
// followed by the snake_case form of the last name segment.
// NativeName("Z3_", "z3.Native.mkContext") is "Z3_mk_context".
func NativeName(prefix, name string) string {
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		name = name[i+1:]
	}
	return prefix + snakeCase(name)
}

func snakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}
