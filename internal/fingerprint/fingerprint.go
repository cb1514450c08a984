// Package fingerprint derives content-addressable cache keys from request
// inputs. Equivalent inputs (the same URL with tracking parameters or a
// different host case, the same text with different spacing or width) map to
// the same key.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Kind classifies what an input refers to.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindVideo, KindImage, KindText:
		return true
	}
	return false
}

// ErrEmptyInput reports an input that normalizes to nothing.
var ErrEmptyInput = errors.New("fingerprint: empty input")

var trackingParams = map[string]struct{}{
	"fbclid":     {},
	"gclid":      {},
	"si":         {},
	"feature":    {},
	"vl":         {},
	"ref":        {},
	"ab_channel": {},
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Key returns "kind:" followed by the hex SHA-256 of the canonical identity.
// Video and image identities are canonical URLs; text identities are
// normalized text.
func Key(kind Kind, input string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("fingerprint: unknown kind %q", kind)
	}
	var (
		identity string
		err      error
	)
	if kind == KindText {
		identity = CanonicalText(input)
		if identity == "" {
			err = ErrEmptyInput
		}
	} else {
		identity, err = CanonicalURL(input)
	}
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(identity))
	return string(kind) + ":" + hex.EncodeToString(sum[:]), nil
}

// CanonicalURL normalizes a media locator: lowercase scheme and host,
// default ports and fragment removed, tracking parameters dropped, remaining
// query parameters sorted, trailing slash stripped.
func CanonicalURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyInput
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("fingerprint: parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("fingerprint: url %q must be absolute", trimmed)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != defaultPorts[u.Scheme] {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	u.Host = host
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""

	query := u.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		if isTrackingParam(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)
		for _, value := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(value))
		}
	}
	u.RawQuery = b.String()
	u.ForceQuery = false

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}

func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "utm_") {
		return true
	}
	_, ok := trackingParams[lower]
	return ok
}

// CanonicalText applies NFKC normalization, Unicode case folding, and
// collapses runs of whitespace to single spaces.
func CanonicalText(text string) string {
	normalized := norm.NFKC.String(text)
	// Casers carry state, so each call gets its own.
	folded := cases.Fold().String(normalized)
	return strings.Join(strings.Fields(folded), " ")
}
