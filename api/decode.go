package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/rotisserie/eris"
)

// MaxBodySize bounds a single decoded response. A full 5000 item inventory page is well below it.
const MaxBodySize = 64 << 20

// readBody reads the response body, undoing the Content-Encoding negotiated through AcceptEncoding.
// The standard library only decodes gzip transparently when it set Accept-Encoding itself, which it
// doesn't here.
func readBody(httpResponse *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(httpResponse.Body, MaxBodySize+1))
	if err != nil {
		return nil, err
	}

	if len(raw) > MaxBodySize {
		return nil, eris.Errorf("response body exceeds %d bytes", MaxBodySize)
	}

	encoding := strings.ToLower(strings.TrimSpace(httpResponse.Header.Get("Content-Encoding")))
	return decodeBody(encoding, raw)
}

func decodeBody(encoding string, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	switch encoding {
	case "", "identity":
		return raw, nil
	case "gzip", "x-gzip":
		reader, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, eris.Wrap(err, "invalid gzip body")
		}
		defer reader.Close()
		return readDecoded(reader)
	case "deflate":
		// servers disagree on whether deflate means zlib framing or a raw stream
		if reader, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer reader.Close()
			return readDecoded(reader)
		}
		reader := flate.NewReader(bytes.NewReader(raw))
		defer reader.Close()
		return readDecoded(reader)
	case "br":
		return readDecoded(brotli.NewReader(bytes.NewReader(raw)))
	default:
		return nil, eris.Errorf("unsupported content encoding %q", encoding)
	}
}

func readDecoded(reader io.Reader) ([]byte, error) {
	decoded, err := io.ReadAll(io.LimitReader(reader, MaxBodySize+1))
	if err != nil {
		return nil, eris.Wrap(err, "couldn't decode response body")
	}

	if len(decoded) > MaxBodySize {
		return nil, eris.Errorf("decoded response body exceeds %d bytes", MaxBodySize)
	}

	return decoded, nil
}
