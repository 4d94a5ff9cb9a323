package rsakey

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"math"
	"math/big"

	"github.com/rotisserie/eris"
)

var ErrMessageTooLong = errors.New("message too long for RSA key size")

// Parse builds a public key from the hex modulus and exponent Steam hands out with a login challenge.
func Parse(modulusHex string, exponentHex string) (*rsa.PublicKey, error) {
	modulus, ok := new(big.Int).SetString(modulusHex, 16)
	if !ok {
		return nil, eris.New("error parsing public key modulus")
	}

	if modulus.Sign() <= 0 {
		return nil, eris.New("public key modulus must be positive")
	}

	exponent, ok := new(big.Int).SetString(exponentHex, 16)
	if !ok {
		return nil, eris.New("error parsing public key exponent")
	}

	if !exponent.IsInt64() || exponent.Int64() < 2 || exponent.Int64() > math.MaxInt32 {
		return nil, eris.Errorf("public key exponent %s out of range", exponentHex)
	}

	return &rsa.PublicKey{
		N: modulus,
		E: int(exponent.Int64()),
	}, nil
}

// EncryptPKCS1v15 encrypts input as a single PKCS#1 v1.5 block. Input longer than the key size minus 11
// bytes is rejected rather than split across blocks, since the login endpoint only decrypts one block.
func EncryptPKCS1v15(input []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	return encrypt(rand.Reader, input, publicKey)
}

func encrypt(random io.Reader, input []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, eris.New("public key is nil")
	}

	if len(input) > publicKey.Size()-11 {
		return nil, eris.Wrapf(ErrMessageTooLong, "%d bytes with a %d bit key", len(input), publicKey.N.BitLen())
	}

	encrypted, err := rsa.EncryptPKCS1v15(random, publicKey, input)
	if err != nil {
		return nil, eris.Wrap(err, "rsa.EncryptPKCS1v15 failed")
	}

	if len(encrypted) == 0 {
		return nil, eris.New("rsa.EncryptPKCS1v15 returned no ciphertext")
	}

	return encrypted, nil
}
