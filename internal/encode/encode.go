// Package encode turns identifiers and typed values into MySQL-safe SQL text.
package encode

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tordrt/dbwrapper/internal/value"
)

// DefaultTimestampFormat renders timestamps as yyyy-MM-dd HH:mm:ss.ffffff.
const DefaultTimestampFormat = "2006-01-02 15:04:05.000000"

// Encoder renders literals with a fixed timestamp layout. It is immutable
// and safe for concurrent use.
type Encoder struct {
	timestampFormat string
}

// New returns an Encoder using layout for timestamps. An empty layout
// selects DefaultTimestampFormat.
func New(layout string) *Encoder {
	if layout == "" {
		layout = DefaultTimestampFormat
	}
	return &Encoder{timestampFormat: layout}
}

// TimestampFormat returns the layout used for timestamp literals.
func (e *Encoder) TimestampFormat() string { return e.timestampFormat }

// QuoteIdentifier wraps name in backticks. Embedded backticks are doubled.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Literal renders v as a SQL literal.
func (e *Encoder) Literal(v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return "null"
	case value.KindInteger:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10)
	case value.KindDecimal:
		d, _ := v.AsDecimal()
		return d.String()
	case value.KindTimestamp:
		t, _ := v.AsTime()
		return "'" + Sanitize(e.Timestamp(t)) + "'"
	case value.KindText:
		s, _ := v.AsText()
		return TextLiteral(s)
	default:
		panic(fmt.Sprintf("encode: unrecognized value kind %s", v.Kind()))
	}
}

// Text returns the unquoted textual form of v, used where the value is
// spliced into a larger literal such as a LIKE pattern.
func (e *Encoder) Text(v value.Value) string {
	switch v.Kind() {
	case value.KindText:
		s, _ := v.AsText()
		return s
	case value.KindTimestamp:
		t, _ := v.AsTime()
		return e.Timestamp(t)
	case value.KindNull:
		return ""
	default:
		return e.Literal(v)
	}
}

// Timestamp formats t with the configured layout.
func (e *Encoder) Timestamp(t time.Time) string {
	return t.Format(e.timestampFormat)
}

// TextLiteral quotes s, choosing the national-character form when s holds
// extended characters.
func TextLiteral(s string) string {
	if IsExtended(s) {
		return "N'" + Sanitize(s) + "'"
	}
	return "'" + Sanitize(s) + "'"
}

// IsExtended reports whether s contains a rune outside 7-bit ASCII.
func IsExtended(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

var sanitizer = strings.NewReplacer(
	`\`, `\\`,
	`'`, `''`,
	`"`, `\"`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

// Sanitize escapes s for use inside a single-quoted literal and returns the
// content without the surrounding quotes.
func Sanitize(s string) string {
	if !strings.ContainsAny(s, "\\'\"\x00\n\r\x1a") {
		return s
	}
	return sanitizer.Replace(s)
}
