package httpserver

import (
	"crypto/tls"
	"fmt"

	"github.com/pion/dtls/v3/pkg/crypto/selfsign"
)

// selfSignedConfig returns a TLS config with a fresh self-signed certificate
// valid for host. Browsers will warn once per session; the certificate is
// never written to disk.
func selfSignedConfig(host string) (*tls.Config, error) {
	var sans []string
	if host != "" && host != "localhost" {
		sans = append(sans, host)
	}
	cert, err := selfsign.GenerateSelfSignedWithDNS("localhost", sans...)
	if err != nil {
		return nil, fmt.Errorf("generate self-signed certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
