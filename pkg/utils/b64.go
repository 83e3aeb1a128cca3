package utils

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"log"
	"os"
)

// Managed brokers hand out TLS material as base64 strings, not files.
// writeEnvPEM materializes one on disk where the tls loaders can read it.
func writeEnvPEM(envVar, destPath string) error {
	raw := os.Getenv(envVar)
	if raw == "" {
		return fmt.Errorf("missing env var: %s", envVar)
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("decode %s: %w", envVar, err)
	}
	return os.WriteFile(destPath, data, 0600)
}

// LoadKafkaTLS builds the client keypair and CA pool for mutual-TLS broker
// connections. Runs before the logger in some paths, so failures go fatal
// through the stdlib log.
func LoadKafkaTLS() (tls.Certificate, *x509.CertPool) {
	for _, m := range []struct{ env, path string }{
		{"SERVICE_CERT_BASE64", "/tmp/service.cert"},
		{"SERVICE_KEY_BASE64", "/tmp/service.key"},
		{"CA_PEM_BASE64", "/tmp/ca.pem"},
	} {
		if err := writeEnvPEM(m.env, m.path); err != nil {
			log.Fatalf("kafka tls material: %v", err)
		}
	}

	keypair, err := tls.LoadX509KeyPair("/tmp/service.cert", "/tmp/service.key")
	if err != nil {
		log.Fatalf("kafka tls keypair: %v", err)
	}

	caCert, err := os.ReadFile("/tmp/ca.pem")
	if err != nil {
		log.Fatalf("kafka ca cert: %v", err)
	}
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		log.Fatalf("kafka ca cert: invalid PEM")
	}
	return keypair, caCertPool
}
