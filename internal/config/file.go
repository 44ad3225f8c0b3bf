package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/e1732a364fed/edgebridge/internal/logging"
)

// fileOverrides is the subset of Config an operator may park in a
// static TOML file (the teacher's primary config format, per
// machine/conf.go's VSConf) for values that rarely change between
// deploys. Env-resolved values generally win when both are set — see
// ApplyFile for the exact rule.
type fileOverrides struct {
	BackendList      []string `toml:"backend_list"`
	DefaultTransport string   `toml:"transport"`
	Subscription     struct {
		Targets []targetJSON `toml:"targets"`
	} `toml:"subscription"`
}

// ApplyFile layers path's TOML content under cfg: the backend list and
// subscription targets are filled from the file only when cfg has
// none, and the transport only when cfg still holds the built-in
// default ("xhttp"), so a TRANSPORT=xhttp set explicitly in the
// environment is still replaced by the file's transport. A missing
// file is not an error — the -config flag is optional.
func ApplyFile(cfg Config, path string) Config {
	if path == "" {
		return cfg
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("failed to read config file: " + err.Error())
		}
		return cfg
	}

	var fo fileOverrides
	if err := toml.Unmarshal(bs, &fo); err != nil {
		logging.Warn("failed to parse config file: " + err.Error())
		return cfg
	}

	if len(cfg.Backends) == 0 && len(fo.BackendList) > 0 {
		for _, entry := range fo.BackendList {
			spec, err := parseBackendEntry(entry)
			if err != nil {
				warnf("skipping malformed config-file backend entry %q: %v", entry, err)
				continue
			}
			cfg.Backends = append(cfg.Backends, spec)
		}
	}

	if cfg.DefaultTransport == defaultTransport && fo.DefaultTransport != "" {
		cfg.DefaultTransport = fo.DefaultTransport
	}

	if len(cfg.Subscription.Targets) == 0 && len(fo.Subscription.Targets) > 0 {
		seen := make(map[string]bool)
		for _, t := range fo.Subscription.Targets {
			name := strings.ToLower(strings.TrimSpace(t.Name))
			if name == "" || seen[name] {
				continue
			}
			target, ok := buildTarget(name, t)
			if !ok {
				continue
			}
			seen[name] = true
			cfg.Subscription.Targets = append(cfg.Subscription.Targets, target)
		}
	}

	return cfg
}
