package httpx

import (
	"mime"
	"path"
	"strings"

	"github.com/samber/lo"
)

// VaryAppend merges field into an existing Vary header value. A "*" on
// either side wins.
func VaryAppend(header, field string) string {
	fields := parseTokenList(field)
	if header == "*" {
		return header
	}

	if lo.Contains(fields, "*") {
		return "*"
	}

	val := header
	lower := lo.Map(parseTokenList(header), func(s string, _ int) string { return strings.ToLower(s) })
	for _, f := range fields {
		fl := strings.ToLower(f)
		if lo.Contains(lower, fl) {
			continue
		}

		lower = append(lower, fl)
		if val == "" {
			val = f
		} else {
			val += ", " + f
		}
	}

	return val
}

const upperhex = "0123456789ABCDEF"

// EncodeURL percent-encodes the characters of s that may not appear in a URL
// while keeping existing escapes intact.
func EncodeURL(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(c)
			continue
		}

		if c != '%' && allowedURLByte(c) {
			b.WriteByte(c)
			continue
		}

		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}

	return b.String()
}

func allowedURLByte(c byte) bool {
	switch {
	case c == 0x21, c >= 0x23 && c <= 0x3B, c == 0x3D, c >= 0x3F && c <= 0x5F,
		c >= 0x61 && c <= 0x7A, c == 0x7C, c == 0x7E:
		return true
	}

	return false
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// ContentDisposition renders an attachment disposition for filename. Names
// outside printable ASCII get an ASCII fallback plus an RFC 2231 filename*.
func ContentDisposition(filename string) string {
	if filename == "" {
		return "attachment"
	}

	name := path.Base(filename)
	if isPrintableASCII(name) {
		return `attachment; filename="` + quoteEscaper.Replace(name) + `"`
	}

	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, name)

	// mime only emits the extended form for such names, the quoted fallback is kept for older clients
	ext := strings.TrimPrefix(mime.FormatMediaType("attachment", map[string]string{"filename": name}), "attachment")

	return `attachment; filename="` + quoteEscaper.Replace(fallback) + `"` + ext
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}

	return true
}
