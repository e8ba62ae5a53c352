// Package validate gates target URLs before anything probes them.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// targetPattern accepts http/https/ftp/ftps in front of a dotted domain,
// localhost, or an IPv4 literal, with an optional port and path. Bare ftp
// targets still fail IsValidURL because Normalize prefixes a scheme first.
var targetPattern = regexp.MustCompile(`(?i)^(?:http|ftp)s?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// Normalize returns raw with an https:// prefix when no http(s) scheme is
// present.
func Normalize(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}

// IsValidURL reports whether raw is acceptable as a monitoring target. A
// missing scheme is tolerated (https is assumed); anything that does not
// look like a host the prober could reach is rejected.
func IsValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	norm := Normalize(raw)
	if !targetPattern.MatchString(norm) {
		return false
	}
	u, err := url.Parse(norm)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// URLInfo is the decomposition of a validated target.
type URLInfo struct {
	Scheme   string `json:"scheme"`
	Host     string `json:"host"`
	Path     string `json:"path"`
	Query    string `json:"query"`
	Fragment string `json:"fragment"`
	Port     string `json:"port"`
}

// Info decomposes raw after validation. The port falls back to the scheme
// default (443 or 80) when the URL does not carry one.
func Info(raw string) (*URLInfo, error) {
	if !IsValidURL(raw) {
		return nil, fmt.Errorf("invalid url: %s", raw)
	}
	u, err := url.Parse(Normalize(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid url: %s", raw)
	}
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return &URLInfo{
		Scheme:   u.Scheme,
		Host:     u.Host,
		Path:     u.Path,
		Query:    u.RawQuery,
		Fragment: u.Fragment,
		Port:     port,
	}, nil
}

// IsSecure reports whether raw is a valid https target, with a short reason
// for the verdict.
func IsSecure(raw string) (bool, string) {
	if !IsValidURL(raw) {
		return false, "invalid url"
	}
	u, err := url.Parse(Normalize(raw))
	if err != nil {
		return false, "invalid url"
	}
	if u.Scheme == "https" {
		return true, "uses https"
	}
	return false, "plain " + u.Scheme
}
