package subscription

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
)

// urlPattern matches both plain "http(s)://..." and JSON-escaped
// "http(s):\/\/..." URLs, stopping at characters that cannot appear
// unescaped inside either form.
var urlPattern = regexp.MustCompile(`https?:(?:\\/\\/|//)(?:[^\s"'<>\\]|\\/)+`)

// RewriteDomain implements §4.8's "optional domain preservation":
// scans payload for URLs that carry token and lie under one of
// basePaths (or any "/sub/" prefix) and rewrites their origin to
// targetOrigin, leaving path/query/fragment untouched. A no-op when
// no such URL is present.
func RewriteDomain(payload []byte, targetOrigin string, token string, basePaths []string) []byte {
	if looksLikeCanonicalBase64(payload) {
		decoded, err := decodeCanonicalBase64(string(payload))
		if err == nil {
			rewritten := RewriteDomain(decoded, targetOrigin, token, basePaths)
			return []byte(reencodeCanonicalBase64(rewritten, string(payload)))
		}
	}

	return urlPattern.ReplaceAllFunc(payload, func(match []byte) []byte {
		escaped := strings.Contains(string(match), `\/\/`)
		plain := string(match)
		if escaped {
			plain = strings.ReplaceAll(plain, `\/`, `/`)
		}

		if !carriesToken(plain, token) || !underAnyBasePath(plain, basePaths) {
			return match
		}
		rewritten := rewriteOrigin(plain, targetOrigin)
		if rewritten == plain {
			return match
		}
		if escaped {
			rewritten = strings.ReplaceAll(rewritten, "/", `\/`)
		}
		return []byte(rewritten)
	})
}

func carriesToken(rawURL, token string) bool {
	if token == "" {
		return false
	}
	if strings.Contains(rawURL, token) {
		return true
	}
	return strings.Contains(rawURL, url.QueryEscape(token)) || strings.Contains(rawURL, url.PathEscape(token))
}

func underAnyBasePath(rawURL string, basePaths []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if strings.Contains(u.Path, "/sub/") || strings.HasPrefix(u.Path, "/sub/") {
		return true
	}
	for _, bp := range basePaths {
		if bp != "" && strings.HasPrefix(u.Path, bp) {
			return true
		}
	}
	return false
}

// rewriteOrigin replaces rawURL's scheme+host+port with targetOrigin
// (itself a "scheme://host[:port]" string), preserving path, query
// and fragment verbatim. Returns rawURL unchanged if either fails to
// parse, or if rawURL's origin already equals targetOrigin.
func rewriteOrigin(rawURL, targetOrigin string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	t, err := url.Parse(targetOrigin)
	if err != nil {
		return rawURL
	}
	if u.Scheme == t.Scheme && u.Host == t.Host {
		return rawURL
	}
	u.Scheme = t.Scheme
	u.Host = t.Host
	return u.String()
}

// looksLikeCanonicalBase64 classifies an entire payload as base64url
// text per §4.8: at least 16 characters after trimming surrounding
// whitespace, made only of the unpadded base64url alphabet, and
// canonical (decoding and re-encoding gives back the same text).
func looksLikeCanonicalBase64(payload []byte) bool {
	s := strings.TrimSpace(string(payload))
	if len(s) < 16 {
		return false
	}
	for _, c := range s {
		if !isBase64URLChar(c) {
			return false
		}
	}
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil && base64.RawURLEncoding.EncodeToString(decoded) == s
}

func isBase64URLChar(c rune) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		return true
	default:
		return false
	}
}

func decodeCanonicalBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "=") {
		return base64.URLEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// reencodeCanonicalBase64 re-encodes data using the same
// alphabet/padding style as original (padded vs unpadded).
func reencodeCanonicalBase64(data []byte, original string) string {
	if strings.Contains(strings.TrimSpace(original), "=") {
		return base64.URLEncoding.EncodeToString(data)
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// TransformLinks implements §4.8's independent "optional link
// transform": rewrites every http(s):// URL in a text/plain or
// application/json payload so its origin becomes newOrigin, applied
// after fetch and, on cache hits, before return.
func TransformLinks(payload []byte, contentType, newOrigin string) []byte {
	ct := strings.ToLower(contentType)
	if !strings.Contains(ct, "text/plain") && !strings.Contains(ct, "application/json") {
		return payload
	}
	return urlPattern.ReplaceAllFunc(payload, func(match []byte) []byte {
		escaped := strings.Contains(string(match), `\/\/`)
		plain := string(match)
		if escaped {
			plain = strings.ReplaceAll(plain, `\/`, `/`)
		}
		rewritten := rewriteOrigin(plain, newOrigin)
		if escaped {
			rewritten = strings.ReplaceAll(rewritten, "/", `\/`)
		}
		return []byte(rewritten)
	})
}

// IsTextContent reports whether contentType or, absent a decisive
// hint, the first portion of body looks like text, per §4.8's
// "content-type hints ... or a printable-bytes-over-first-512
// heuristic".
func IsTextContent(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	for _, hint := range []string{"text/", "json", "xml", "yaml"} {
		if strings.Contains(ct, hint) {
			return true
		}
	}
	if strings.Contains(ct, "application/octet-stream") {
		return false
	}

	sample := body
	if len(sample) > 512 {
		sample = sample[:512]
	}
	if len(sample) == 0 {
		return true
	}
	printable := 0
	for _, b := range sample {
		if b == '\t' || b == '\n' || b == '\r' || (b >= 0x20 && b < 0x7f) {
			printable++
		}
	}
	return float64(printable)/float64(len(sample)) >= 0.85
}
