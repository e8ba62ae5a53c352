package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRedirects = 5

	userAgent = "WebWatch/2.0"
)

// Options fix the behavior of every probe a Prober issues. There is no
// per-call override.
type Options struct {
	// Timeout bounds the whole exchange: dial, TLS, request, response.
	Timeout time.Duration
	// MaxRedirects is the number of redirects followed before the probe is
	// treated as a transport failure.
	MaxRedirects int
	// InsecureSkipVerify disables certificate verification for the probe
	// request only. The certificate summary fetch always verifies.
	InsecureSkipVerify bool
}

// Prober issues single GET probes against HTTP(S) targets. It is safe for
// concurrent use; all probes share one pooled transport.
type Prober struct {
	client *http.Client
	opts   Options
}

func New(opts Options) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		},
	}

	maxRedirects := opts.MaxRedirects
	return &Prober{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		opts: opts,
	}
}

// Do probes target with a single GET and never returns an error: anything
// that prevents an HTTP response (DNS, dial, TLS, timeout, too many
// redirects) is folded into the outcome with StatusCode -1, ResponseTimeMs
// -1 and the error text. An HTTP error status is a normal outcome.
func (p *Prober) Do(ctx context.Context, target string) Outcome {
	ts := time.Now().UTC()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failedOutcome(ts, err)
	}
	setProbeHeaders(req.Header)

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return failedOutcome(ts, err)
	}
	defer resp.Body.Close()

	out := Outcome{
		StatusCode:     resp.StatusCode,
		ResponseTimeMs: float64(elapsed) / float64(time.Millisecond),
		ContentType:    resp.Header.Get("Content-Type"),
		ContentLength:  contentLength(resp.Header),
		Server:         resp.Header.Get("Server"),
		Encoding:       charsetOf(resp.Header.Get("Content-Type")),
		Headers:        resp.Header.Clone(),
		Timestamp:      ts,
	}
	if final := resp.Request.URL.String(); final != target {
		out.RedirectURL = final
	}
	if req.URL.Scheme == "https" {
		out.TLS = p.certSummary(ctx, req.URL.Hostname())
	}
	return out
}

func failedOutcome(ts time.Time, err error) Outcome {
	return Outcome{
		StatusCode:     -1,
		ResponseTimeMs: -1,
		Timestamp:      ts,
		Error:          err.Error(),
	}
}

// setProbeHeaders applies the fixed header set sent with every probe. Date
// is stamped per request.
func setProbeHeaders(h http.Header) {
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("Connection", "keep-alive")
	h.Set("Date", time.Now().UTC().Format(http.TimeFormat))
}

// contentLength parses the Content-Length header directly; chunked or
// missing lengths report 0, not -1.
func contentLength(h http.Header) int64 {
	v := h.Get("Content-Length")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// charsetOf extracts the charset parameter of a Content-Type value, lowered,
// or "" when absent or unparseable.
func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}
