package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSigned returns base64 encoded PEM certificate and key for a throwaway CA.
func selfSigned(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "schema-registry"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return base64.StdEncoding.EncodeToString(certPEM), base64.StdEncoding.EncodeToString(keyPEM)
}

func TestTLSConfig_Build(t *testing.T) {
	cert, key := selfSigned(t)

	t.Run("inactive", func(t *testing.T) {
		got, err := TLSConfig{}.Build()
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("enabled without material uses system roots", func(t *testing.T) {
		got, err := TLSConfig{Enabled: true}.Build()
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.RootCAs)
		assert.Empty(t, got.Certificates)
		assert.Equal(t, uint16(tls.VersionTLS12), got.MinVersion)
	})

	t.Run("ca and client pair", func(t *testing.T) {
		got, err := TLSConfig{CA: cert, Cert: cert, Key: key}.Build()
		require.NoError(t, err)
		require.NotNil(t, got.RootCAs)
		assert.Len(t, got.Certificates, 1)
	})

	t.Run("wrapped base64 is accepted", func(t *testing.T) {
		wrapped := cert[:40] + "\n" + cert[40:]
		got, err := TLSConfig{CA: wrapped}.Build()
		require.NoError(t, err)
		assert.NotNil(t, got.RootCAs)
	})
}

func TestTLSConfig_BuildErrors(t *testing.T) {
	cert, key := selfSigned(t)
	notPEM := base64.StdEncoding.EncodeToString([]byte("not a certificate"))

	tests := []struct {
		name string
		cfg  TLSConfig
		want string
	}{
		{name: "bad base64", cfg: TLSConfig{CA: "%%%"}, want: "tls ca: decode base64"},
		{name: "ca without certificates", cfg: TLSConfig{CA: notPEM}, want: "no certificates found"},
		{name: "cert without key", cfg: TLSConfig{Cert: cert}, want: "must be set together"},
		{name: "key without cert", cfg: TLSConfig{Key: key}, want: "must be set together"},
		{name: "mismatched pair", cfg: TLSConfig{Cert: cert, Key: notPEM}, want: "tls key pair"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFromEnv_TLS(t *testing.T) {
	cert, key := selfSigned(t)
	t.Setenv("KAFKA_TLS_ENABLED", "true")
	t.Setenv("SCHEMA_REGISTRY_TLS_CA_BASE64", cert)
	t.Setenv("SCHEMA_REGISTRY_TLS_CERT_BASE64", cert)
	t.Setenv("SCHEMA_REGISTRY_TLS_KEY_BASE64", key)

	cfg := FromEnv()

	assert.True(t, cfg.Kafka.TLS.Active())
	assert.Empty(t, cfg.Kafka.TLS.CA)
	assert.Equal(t, cert, cfg.SchemaRegistry.TLS.CA)
	registryTLS, err := cfg.SchemaRegistry.TLS.Build()
	require.NoError(t, err)
	assert.Len(t, registryTLS.Certificates, 1)
}
