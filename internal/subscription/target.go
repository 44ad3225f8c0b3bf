package subscription

import (
	"net/url"
	"strings"

	"github.com/e1732a364fed/edgebridge/internal/config"
)

// ParseRoute recognizes the two subscription route shapes of §4.8:
// "/sub/<token...>" (service "") and "/<service>/sub/<token...>".
// Each path segment is percent-decoded before the token is
// reassembled, since the token itself may contain slashes.
func ParseRoute(path string) (service, token string, ok bool) {
	segs := splitNonEmpty(path)
	if len(segs) == 0 {
		return "", "", false
	}

	if segs[0] == "sub" && len(segs) >= 2 {
		return "", joinDecoded(segs[1:]), true
	}
	if len(segs) >= 3 && segs[1] == "sub" {
		return segs[0], joinDecoded(segs[2:]), true
	}
	return "", "", false
}

func splitNonEmpty(path string) []string {
	raw := strings.Split(strings.Trim(path, "/"), "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinDecoded(segs []string) string {
	decoded := make([]string, len(segs))
	for i, s := range segs {
		if d, err := url.PathUnescape(s); err == nil {
			decoded[i] = d
		} else {
			decoded[i] = s
		}
	}
	return strings.Join(decoded, "/")
}

// ResolveTarget picks the named target case-insensitively, falling
// back to the first configured target when name is empty or unknown.
func ResolveTarget(targets []config.Target, name string) (config.Target, bool) {
	if len(targets) == 0 {
		return config.Target{}, false
	}
	if name != "" {
		lower := strings.ToLower(name)
		for _, t := range targets {
			if t.Name == lower {
				return t, true
			}
		}
	}
	return targets[0], true
}
