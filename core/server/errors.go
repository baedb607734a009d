package server

import "errors"

var (
	// ErrMissingAddress is returned when the server address is not provided.
	ErrMissingAddress = errors.New("server address is required")

	// ErrServerAlreadyRunning is returned by Start when the server is
	// already serving.
	ErrServerAlreadyRunning = errors.New("server is already running")

	// ErrFailedLoadCert is returned when the configured certificate files
	// cannot be loaded.
	ErrFailedLoadCert = errors.New("failed to load certificate")

	// ErrEmptyCertPath is returned when a certificate or key file path is empty.
	ErrEmptyCertPath = errors.New("certificate and key paths are required")

	// ErrInvalidTLSVersion is returned for TLS versions outside 1.0 through 1.3.
	ErrInvalidTLSVersion = errors.New("invalid TLS version")
)
