package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
)

// targetJSON mirrors the JSON object shape accepted by
// SUBSCRIPTION_TARGETS, per §4.11.
type targetJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Port int    `json:"port"`
	Path string `json:"path"`
}

// resolveSubscriptionTargets parses SUBSCRIPTION_TARGETS as either a
// JSON array of {name,url,port,path} objects or the comma-list
// "name|url|port|path" shorthand. First occurrence of a name wins,
// per §3's "names unique" invariant.
func resolveSubscriptionTargets() []Target {
	raw := os.Getenv("SUBSCRIPTION_TARGETS")
	if raw == "" {
		return nil
	}

	trimmed := strings.TrimSpace(raw)
	var parsed []targetJSON
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			warnf("SUBSCRIPTION_TARGETS is not valid JSON, ignoring: %v", err)
			return nil
		}
	} else {
		for _, entry := range strings.Split(trimmed, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			parts := strings.Split(entry, "|")
			if len(parts) < 2 {
				warnf("skipping malformed subscription target %q", entry)
				continue
			}
			t := targetJSON{Name: parts[0], URL: parts[1]}
			if len(parts) > 2 {
				if p, err := strconv.Atoi(parts[2]); err == nil {
					t.Port = p
				}
			}
			if len(parts) > 3 {
				t.Path = parts[3]
			}
			parsed = append(parsed, t)
		}
	}

	seen := make(map[string]bool, len(parsed))
	var out []Target
	for _, t := range parsed {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" || seen[name] {
			continue
		}
		target, ok := buildTarget(name, t)
		if !ok {
			continue
		}
		seen[name] = true
		out = append(out, target)
	}
	return out
}

func buildTarget(name string, t targetJSON) (Target, bool) {
	if !govalidator.IsURL(t.URL) {
		warnf("subscription target %q has invalid url %q", name, t.URL)
		return Target{}, false
	}
	scheme, host, ok := splitSchemeHost(t.URL)
	if !ok || (scheme != "http" && scheme != "https") {
		warnf("subscription target %q has unsupported scheme in %q", name, t.URL)
		return Target{}, false
	}
	port := t.Port
	if port == 0 {
		if scheme == "https" {
			port = 443
		} else {
			port = 80
		}
	}
	if port < 1 || port > 65535 {
		warnf("subscription target %q has invalid port %d", name, port)
		return Target{}, false
	}
	path := t.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Target{Name: name, Scheme: scheme, Host: host, Port: port, BasePath: path}, true
}

func splitSchemeHost(raw string) (scheme, host string, ok bool) {
	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return "", "", false
	}
	host, _, _ = strings.Cut(rest, "/")
	if host == "" {
		return "", "", false
	}
	return strings.ToLower(scheme), host, true
}
