package subscription

import (
	"net/http"
	"strconv"

	"github.com/e1732a364fed/edgebridge/internal/config"
)

// Proxy wires route resolution, the bounded fetch, optional
// domain-preservation rewrite, optional link transform, and the
// TTL+size-bounded cache into the HTTP surface described by §4.8.
type Proxy struct {
	Targets        []config.Target
	Cache          *Cache
	PreserveDomain bool
	Transform      bool
	Geo            *GeoTagger
}

// ServeHTTP handles a single "/sub/<token...>" or
// "/<service>/sub/<token...>" request. Callers are expected to have
// already confirmed the path matches one of those two shapes via
// ParseRoute before routing here.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	service, token, ok := ParseRoute(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	target, ok := ResolveTarget(p.Targets, service)
	if !ok {
		http.Error(w, "no subscription targets configured", http.StatusNotFound)
		return
	}

	cacheKey := target.Name + ":" + token
	if entry, hit := p.Cache.Get(cacheKey); hit {
		p.writeEntry(w, r, target, entry)
		return
	}

	targetURL := buildTargetURL(target, token, r.URL.RawQuery)
	result, err := Fetch(r.Context(), targetURL, r.Header)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	body := result.Body
	if p.PreserveDomain && result.Status == 200 {
		body = RewriteDomain(body, targetOriginString(target), token, []string{target.BasePath, "/sub"})
	}

	entry := Entry{Status: result.Status, Header: result.Header, Body: body}
	p.Cache.Set(cacheKey, entry)
	p.writeEntry(w, r, target, entry)
}

func (p *Proxy) writeEntry(w http.ResponseWriter, r *http.Request, target config.Target, entry Entry) {
	body := entry.Body
	if p.Transform {
		ct := firstHeader(entry.Header, "Content-Type")
		body = TransformLinks(body, ct, requestOrigin(r))
	}
	for k, vv := range entry.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(entry.Status)
	_, _ = w.Write(body)
}

func buildTargetURL(target config.Target, token, rawQuery string) string {
	u := target.Scheme + "://" + target.Host + ":" + strconv.Itoa(target.Port) + target.BasePath + "/" + token
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

func targetOriginString(target config.Target) string {
	return target.Scheme + "://" + target.Host + ":" + strconv.Itoa(target.Port)
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func firstHeader(h map[string][]string, key string) string {
	if vv, ok := h[key]; ok && len(vv) > 0 {
		return vv[0]
	}
	return ""
}

func writeFetchError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadGateway)
}
