package codec

import "strings"

type formField struct {
	key   string
	value string
}

// Form builds a form body with fields kept in insertion order. Steam's login endpoint is sensitive to
// how individual values are escaped, so values are never re-encoded after they are added.
type Form struct {
	fields []formField
}

// Add appends key with value encoded using the HTML5Form table.
func (f *Form) Add(key string, value string) *Form {
	return f.AddEncoded(key, PercentEncode(value, html5Form))
}

// AddEncoded appends a value that has already been escaped by the caller.
func (f *Form) AddEncoded(key string, encodedValue string) *Form {
	f.fields = append(f.fields, formField{
		key:   PercentEncode(key, html5Form),
		value: encodedValue,
	})
	return f
}

// Len is the number of fields added so far.
func (f *Form) Len() int {
	return len(f.fields)
}

// Encode joins the fields as key=value pairs separated by '&', in the order they were added.
func (f *Form) Encode() string {
	var builder strings.Builder
	for i, field := range f.fields {
		if i > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(field.key)
		builder.WriteByte('=')
		builder.WriteString(field.value)
	}
	return builder.String()
}
