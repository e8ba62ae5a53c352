package probe

import (
	"net/http"
	"time"
)

// Outcome is the immutable record of one probe attempt. Exactly one of two
// shapes is produced: a completed HTTP exchange (any status code, including
// 4xx/5xx) or a transport failure, marked by StatusCode == -1 and a non-empty
// Error. Outcomes are returned by value and never mutated after creation.
type Outcome struct {
	StatusCode     int         `json:"status_code"`
	ResponseTimeMs float64     `json:"response_time_ms"`
	ContentType    string      `json:"content_type,omitempty"`
	ContentLength  int64       `json:"content_length"`
	Server         string      `json:"server,omitempty"`
	Encoding       string      `json:"encoding,omitempty"`
	RedirectURL    string      `json:"redirect_url,omitempty"`
	Headers        http.Header `json:"headers,omitempty"`
	TLS            *TLSInfo    `json:"tls_info,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Error          string      `json:"error,omitempty"`
}

// Failed reports whether the probe died before any HTTP response arrived.
func (o Outcome) Failed() bool { return o.StatusCode == -1 }

// Up reports whether the probe saw the one status code that counts as
// success. 2xx variants other than 200 are not up.
func (o Outcome) Up() bool { return o.StatusCode == http.StatusOK }

// TLSInfo is a summary of the certificate presented by the target host.
type TLSInfo struct {
	Issuer  string    `json:"issuer"`
	Subject string    `json:"subject"`
	Version int       `json:"version"`
	Expires time.Time `json:"expires"`
	Serial  string    `json:"serial_number"`
}
