package subscription

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/e1732a364fed/edgebridge/internal/xerr"
)

const (
	FetchTimeout  = 10 * time.Second
	MaxBodyBytes  = 10 << 20 // 10 MiB
	initialBufCap = 16 << 10
)

// FetchResult carries a fetched (and not-yet-rewritten) subscription
// response.
type FetchResult struct {
	Status int
	Header http.Header
	Body   []byte
}

// Fetch performs the bounded GET described in §4.8: forwards a
// header subset (Host dropped), a 10s timeout, following redirects,
// reading with a strict 10 MiB cap via a dynamically grown buffer.
func Fetch(ctx context.Context, targetURL string, headers http.Header) (FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return FetchResult{}, xerr.New("unable to reach", err, targetURL)
	}
	req.Header = headers.Clone()
	req.Header.Del("Host")

	client := &http.Client{Timeout: FetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return FetchResult{}, xerr.New("timed out", err, targetURL)
		}
		return FetchResult{}, xerr.New("unable to reach", err, targetURL)
	}
	defer resp.Body.Close()

	body, err := readBounded(resp.Body, resp.Header.Get("Content-Length"))
	if err != nil {
		if errors.Is(err, errSizeLimit) {
			return FetchResult{}, xerr.New("size limit exceeded", err, targetURL)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return FetchResult{}, xerr.New("timed out", err, targetURL)
		}
		return FetchResult{}, xerr.New("unable to reach", err, targetURL)
	}

	return FetchResult{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

var errSizeLimit = errors.New("response exceeded size cap")

// readBounded accumulates r into a growing buffer sized from
// contentLength when known, doubling on overflow, never exceeding
// MaxBodyBytes + 1 probe byte (so exactly MaxBodyBytes succeeds and
// MaxBodyBytes+1 is detected as over-cap).
func readBounded(r io.Reader, contentLength string) ([]byte, error) {
	initial := initialBufCap
	if cl, err := strconv.Atoi(contentLength); err == nil && cl > 0 && cl <= MaxBodyBytes {
		initial = cl
	}
	buf := bytes.NewBuffer(make([]byte, 0, initial))

	limited := io.LimitReader(r, MaxBodyBytes+1)
	n, err := io.Copy(buf, limited)
	if err != nil {
		return nil, err
	}
	if n > MaxBodyBytes {
		return nil, errSizeLimit
	}
	return buf.Bytes(), nil
}
