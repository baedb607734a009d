package server

import (
	"crypto/tls"
	"fmt"
)

// DefaultTLSConfig returns a secure default TLS configuration following
// Mozilla's Intermediate compatibility recommendations.
// Supports TLS 1.2+ with strong cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			// TLS 1.3 cipher suites are auto-selected when negotiated.
			// TLS 1.2 cipher suites (ECDHE only for forward secrecy)
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		},
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}
}

// ModernTLSConfig returns a TLS configuration following Mozilla's Modern
// compatibility guidelines. Requires TLS 1.3 only with the strongest cipher suites.
// Use this for internal services or when you control all clients.
func ModernTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		// TLS 1.3 cipher suites are auto-selected
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}
}

// TLSConfigOption customizes a TLS configuration. Options validate their
// input and report failures instead of producing a half-configured config.
type TLSConfigOption func(*tls.Config) error

// WithTLSCertificate loads a certificate and key pair from files and adds
// it to the TLS configuration.
func WithTLSCertificate(certFile, keyFile string) TLSConfigOption {
	return func(cfg *tls.Config) error {
		if certFile == "" || keyFile == "" {
			return ErrEmptyCertPath
		}
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("%w: files %s, %s: %w", ErrFailedLoadCert, certFile, keyFile, err)
		}
		cfg.Certificates = append(cfg.Certificates, cert)
		return nil
	}
}

// WithTLSMinVersion sets the minimum TLS version.
func WithTLSMinVersion(version uint16) TLSConfigOption {
	return func(cfg *tls.Config) error {
		switch version {
		case tls.VersionTLS10, tls.VersionTLS11, tls.VersionTLS12, tls.VersionTLS13:
			cfg.MinVersion = version
			return nil
		default:
			return fmt.Errorf("%w: 0x%04x", ErrInvalidTLSVersion, version)
		}
	}
}

// NewTLSConfig creates a new TLS configuration with the given options,
// starting from the secure default configuration.
func NewTLSConfig(opts ...TLSConfigOption) (*tls.Config, error) {
	cfg := DefaultTLSConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
