package codec

import (
	"encoding/base64"
	"strings"
)

// EncodingTable maps a byte to the character it is emitted as. A zero entry means the byte must be
// written as %XX.
type EncodingTable [256]byte

var (
	rfc3986   EncodingTable
	html5Form EncodingTable
)

func init() {
	for b := 0; b < 256; b++ {
		c := byte(b)
		if isAlnum(c) || c == '~' || c == '-' || c == '.' || c == '_' {
			rfc3986[b] = c
		}

		switch {
		case isAlnum(c) || c == '*' || c == '-' || c == '.' || c == '_':
			html5Form[b] = c
		case c == ' ':
			html5Form[b] = '+'
		}
	}
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// RFC3986 returns the table used for URL path and query segments, and for the encrypted password.
func RFC3986() EncodingTable {
	return rfc3986
}

// HTML5Form returns the table used for application/x-www-form-urlencoded values.
func HTML5Form() EncodingTable {
	return html5Form
}

const upperHex = "0123456789ABCDEF"

// PercentEncode writes each byte of input as its table substitute, or as %XX with uppercase hex when the
// table has none.
func PercentEncode(input string, table EncodingTable) string {
	var builder strings.Builder
	builder.Grow(len(input))

	for i := 0; i < len(input); i++ {
		b := input[i]
		if substitute := table[b]; substitute != 0 {
			builder.WriteByte(substitute)
			continue
		}

		builder.WriteByte('%')
		builder.WriteByte(upperHex[b>>4])
		builder.WriteByte(upperHex[b&0x0F])
	}

	return builder.String()
}

// Base64Encode uses the standard alphabet with '=' padding and no line breaks.
func Base64Encode(input []byte) string {
	return base64.StdEncoding.EncodeToString(input)
}
