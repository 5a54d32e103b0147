package config

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

// TLSConfig carries base64 encoded PEM material for a client connection, the
// form secret stores hand it to the process. With Enabled false and no
// material the connection stays in plaintext.
type TLSConfig struct {
	Enabled bool
	CA      string
	Cert    string
	Key     string
}

func tlsFromEnv(prefix string) TLSConfig {
	return TLSConfig{
		Enabled: os.Getenv(prefix+"_TLS_ENABLED") == "true",
		CA:      os.Getenv(prefix + "_TLS_CA_BASE64"),
		Cert:    os.Getenv(prefix + "_TLS_CERT_BASE64"),
		Key:     os.Getenv(prefix + "_TLS_KEY_BASE64"),
	}
}

// Active reports whether the connection should use TLS.
func (c TLSConfig) Active() bool {
	return c.Enabled || c.CA != "" || c.Cert != "" || c.Key != ""
}

// Build decodes the material into a client *tls.Config. It returns nil when
// TLS is not active. Without a CA the system roots are used; a certificate
// and key enable mutual TLS and must be given together.
func (c TLSConfig) Build() (*tls.Config, error) {
	if !c.Active() {
		return nil, nil
	}
	out := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.CA != "" {
		caPEM, err := decodePEM("ca", c.CA)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, errors.New("tls ca: no certificates found")
		}
		out.RootCAs = pool
	}

	if (c.Cert == "") != (c.Key == "") {
		return nil, errors.New("tls client certificate and key must be set together")
	}
	if c.Cert != "" {
		certPEM, err := decodePEM("cert", c.Cert)
		if err != nil {
			return nil, err
		}
		keyPEM, err := decodePEM("key", c.Key)
		if err != nil {
			return nil, err
		}
		pair, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, fmt.Errorf("tls key pair: %w", err)
		}
		out.Certificates = []tls.Certificate{pair}
	}
	return out, nil
}

func decodePEM(name, value string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(value), ""))
	if err != nil {
		return nil, fmt.Errorf("tls %s: decode base64: %w", name, err)
	}
	return raw, nil
}
