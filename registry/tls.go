package registry

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// check reports the first missing certificate path.
func (t *TLSConfig) check() error {
	switch {
	case t.CertFile == "":
		return errors.New("TLS cert file is required when TLS is enabled")
	case t.KeyFile == "":
		return errors.New("TLS key file is required when TLS is enabled")
	case t.CAFile == "":
		return errors.New("TLS CA file is required when TLS is enabled")
	}
	return nil
}

// clientConfig loads the certificates into a tls.Config. It returns nil
// when TLS is disabled.
func (t *TLSConfig) clientConfig() (*tls.Config, error) {
	if t == nil || !t.Enabled {
		return nil, nil
	}
	if err := t.check(); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caData, err := os.ReadFile(t.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caData) {
		return nil, errors.New("failed to parse CA certificate")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
