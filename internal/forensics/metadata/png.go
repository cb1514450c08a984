package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/text/encoding/charmap"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const maxChunkText = 1 << 20

var errNotPNG = errors.New("not a png stream")

// pngTextChunks returns the keyword/text pairs stored in tEXt, zTXt and iTXt
// chunks. Later chunks with a repeated keyword win. Parsing stops at IEND or
// at the first truncated chunk.
func pngTextChunks(data []byte) (map[string]string, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errNotPNG
	}
	out := make(map[string]string)
	rest := data[len(pngSignature):]
	for len(rest) >= 12 {
		length := binary.BigEndian.Uint32(rest[0:4])
		kind := string(rest[4:8])
		if uint64(length)+12 > uint64(len(rest)) {
			break
		}
		body := rest[8 : 8+length]
		rest = rest[12+length:]

		switch kind {
		case "tEXt":
			if key, text, ok := bytes.Cut(body, []byte{0}); ok {
				out[string(key)] = latin1(text)
			}
		case "zTXt":
			key, tail, ok := bytes.Cut(body, []byte{0})
			if !ok || len(tail) < 1 {
				continue
			}
			if text, err := inflate(tail[1:]); err == nil {
				out[string(key)] = latin1(text)
			}
		case "iTXt":
			if key, text, ok := parseITXt(body); ok {
				out[key] = text
			}
		case "IEND":
			return out, nil
		}
	}
	return out, nil
}

func parseITXt(body []byte) (string, string, bool) {
	key, tail, ok := bytes.Cut(body, []byte{0})
	if !ok || len(tail) < 2 {
		return "", "", false
	}
	compressed := tail[0] == 1
	tail = tail[2:]
	// language tag, then translated keyword
	_, tail, ok = bytes.Cut(tail, []byte{0})
	if !ok {
		return "", "", false
	}
	_, text, ok := bytes.Cut(tail, []byte{0})
	if !ok {
		return "", "", false
	}
	if compressed {
		inflated, err := inflate(text)
		if err != nil {
			return "", "", false
		}
		text = inflated
	}
	return string(key), string(text), true
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, maxChunkText))
}

func latin1(b []byte) string {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}
