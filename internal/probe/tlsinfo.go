package probe

import (
	"context"
	"crypto/tls"
	"net"
)

// certSummary dials host:443 for the leaf certificate of an HTTPS target.
// The handshake always verifies, regardless of InsecureSkipVerify, and any
// failure is swallowed: the probe outcome carries no TLS summary.
func (p *Prober) certSummary(ctx context.Context, host string) *TLSInfo {
	if host == "" {
		return nil
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: p.opts.Timeout},
		Config: &tls.Config{
			ServerName: host,
			MinVersion: tls.VersionTLS12,
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		return nil
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil
	}
	cert := state.PeerCertificates[0]
	return &TLSInfo{
		Issuer:  cert.Issuer.String(),
		Subject: cert.Subject.String(),
		Version: cert.Version,
		Expires: cert.NotAfter.UTC(),
		Serial:  cert.SerialNumber.String(),
	}
}
