package server

import (
	"net/http"
	"regexp"
	"strings"
)

// identityPattern recognizes a canonical identity token (a UUID, the
// form the upstream tunneling protocols use) appearing as a path
// segment, per §4.7.
var identityPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// extractIdentity finds the configuration-recognized identity in r:
// the first path segment matching identityPattern, or the second
// segment when the first is "sub", or the "id" query parameter;
// lower-cased. Returns "" when none is present (identity admission is
// skipped for such requests).
func extractIdentity(r *http.Request) string {
	segs := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	var candidates []string
	for _, s := range segs {
		if s != "" {
			candidates = append(candidates, s)
		}
	}

	if len(candidates) > 0 {
		if identityPattern.MatchString(candidates[0]) {
			return strings.ToLower(candidates[0])
		}
		if candidates[0] == "sub" && len(candidates) > 1 && identityPattern.MatchString(candidates[1]) {
			return strings.ToLower(candidates[1])
		}
	}

	if v := r.URL.Query().Get("id"); v != "" {
		return strings.ToLower(v)
	}
	return ""
}
