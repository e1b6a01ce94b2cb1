package resolve

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// MaxPageBytes caps how much of a linked page is read; titles and snippets
// live near the top of the document anyway.
const MaxPageBytes = 4 * 1024 * 1024

// HTTPRequestTimeout bounds a single page fetch end to end.
const HTTPRequestTimeout = 15 * time.Second

var (
	httpDialTimeout           = HTTPRequestTimeout / 3
	httpTLSTimeout            = HTTPRequestTimeout / 3
	httpResponseHeaderTimeout = HTTPRequestTimeout / 2
)

// limitedReadCloser wraps an io.ReadCloser to enforce the page size limit.
type limitedReadCloser struct {
	io.ReadCloser
	n      int64
	source string
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, fmt.Errorf("content from %q exceeds size limit", l.source)
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.ReadCloser.Read(p)
	l.n -= int64(n)
	return n, err
}

// httpClient is shared across resolutions; timeouts prevent a dead link from
// stalling the pipeline. Safe for concurrent use.
var httpClient = &http.Client{
	Timeout: HTTPRequestTimeout,
	Transport: &http.Transport{
		Dial: (&net.Dialer{
			Timeout: httpDialTimeout,
		}).Dial,
		TLSHandshakeTimeout:   httpTLSTimeout,
		ResponseHeaderTimeout: httpResponseHeaderTimeout,
	},
}

// fetchPage retrieves the page body, following redirects, with the size
// limit applied. The returned URL is the final one after redirects.
func fetchPage(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request for %q: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", "winnow/1.0 (+link title resolver)")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %q: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch %q: unexpected status %d", rawURL, resp.StatusCode)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &limitedReadCloser{ReadCloser: resp.Body, n: MaxPageBytes, source: rawURL}, finalURL, nil
}
