package subscription

import (
	"net"
	"sync"

	"github.com/oschwald/maxminddb-golang"

	"github.com/e1732a364fed/edgebridge/internal/logging"
)

// GeoTagger looks up a client address's ISO country code in an
// optional MaxMind database. The subscription Proxy holds one, but no
// code path calls Country: subscription responses are not tagged and
// /status reports no country. It never gates admission or rewrites
// payloads (the proxy does not make protocol/identity decisions based
// on geography).
type GeoTagger struct {
	mu sync.RWMutex
	db *maxminddb.Reader
}

// OpenGeoTagger opens a MaxMind-format database at path. A missing or
// unreadable database disables tagging without aborting startup.
func OpenGeoTagger(path string) *GeoTagger {
	g := &GeoTagger{}
	if path == "" {
		return g
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		logging.Warn("geoip database unavailable, tagging disabled: " + err.Error())
		return g
	}
	g.db = db
	return g
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Country returns the ISO country code for ip, or "" when tagging is
// disabled or the address is not found.
func (g *GeoTagger) Country(ip string) string {
	g.mu.RLock()
	db := g.db
	g.mu.RUnlock()
	if db == nil {
		return ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	var rec countryRecord
	if err := db.Lookup(parsed, &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

func (g *GeoTagger) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}
