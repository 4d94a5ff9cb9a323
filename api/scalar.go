package api

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Scalar holds a JSON string, number or boolean in its textual form. Steam is inconsistent about
// quoting ids and flags, so "753" and 753 both read as "753" and true reads as "true".
//
// Fields are declared as *Scalar: nil means the key was absent (or null), which is distinct from a present
// empty string.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return eris.New("empty JSON value")
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = Scalar(text)
	case '{', '[':
		return eris.Errorf("expected a JSON scalar, got %s", truncate(data, 32))
	default:
		// numbers and true/false keep their literal spelling
		if !json.Valid(data) {
			return eris.Errorf("invalid JSON scalar %s", truncate(data, 32))
		}
		*s = Scalar(data)
	}

	return nil
}

// String returns the textual value, or "" when s is absent.
func (s *Scalar) String() string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func (s *Scalar) Present() bool {
	return s != nil
}

// NonEmpty reports whether the field was present with a non-empty value.
func (s *Scalar) NonEmpty() bool {
	return s != nil && *s != ""
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
