package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"time"

	"github.com/rotisserie/eris"
)

// Steam Guard codes use this alphabet instead of decimal digits.
//
//goland:noinspection SpellCheckingInspection
const codeChars = "23456789BCDFGHJKMNPQRTVWXY"

const (
	CodeLength = 5
	Period     = 30 * time.Second
)

// Generator produces the twofactorcode value for dologin from an authenticator's shared secret.
type Generator struct {
	sharedSecret []byte
}

func NewGenerator(sharedSecret string) (*Generator, error) {
	sharedKey, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return nil, eris.Wrap(err, "error decoding shared secret")
	}

	if len(sharedKey) == 0 {
		return nil, eris.New("shared secret is empty")
	}

	return &Generator{sharedSecret: sharedKey}, nil
}

// Code returns the code valid for the 30 second window containing at.
func (g *Generator) Code(at time.Time) string {
	counter := uint64(at.Unix()) / uint64(Period/time.Second)
	counterBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(counterBytes, counter)

	mac := hmac.New(sha1.New, g.sharedSecret)
	mac.Write(counterBytes)
	sum := mac.Sum(nil)

	// low nibble of the last byte selects a 4 byte window; its top bit is dropped
	start := sum[len(sum)-1] & 0xf
	fullCode := binary.BigEndian.Uint32(sum[start:start+4]) & 0x7FFFFFFF

	code := make([]byte, CodeLength)
	for i := range code {
		code[i] = codeChars[fullCode%uint32(len(codeChars))]
		fullCode /= uint32(len(codeChars))
	}

	return string(code)
}
