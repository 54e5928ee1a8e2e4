// Package toottls builds a *tls.Config from the core's TLSConfig
// triple (certificate path, key path, optional key password),
// validating the triple with go-playground/validator before touching
// the filesystem.
package toottls

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Config mirrors the fields the core's TLSConfig carries; it is
// defined independently here (rather than importing the root
// package) so toottls has no import cycle back to toot.
type Config struct {
	CertFile    string `validate:"required,filepath"`
	KeyFile     string `validate:"required,filepath"`
	KeyPassword string
}

// Wrapper builds a *tls.Config from a validated Config. The default
// implementation requires an unencrypted private key; crypto/x509
// dropped legacy encrypted-PEM support, so Build rejects a
// KeyPassword rather than silently ignoring it.
type Wrapper interface {
	Build(cfg Config) (*tls.Config, error)
}

type defaultWrapper struct {
	validate *validator.Validate
}

// NewWrapper returns the default Wrapper, validating every Config
// with v before attempting to load it. Pass nil to use a
// validator.Validate built with defaults.
func NewWrapper(v *validator.Validate) Wrapper {
	if v == nil {
		v = validator.New()
	}
	return defaultWrapper{validate: v}
}

func (w defaultWrapper) Build(cfg Config) (*tls.Config, error) {
	if err := w.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("toottls: invalid TLS config: %w", err)
	}

	certPEM, err := os.ReadFile(cfg.CertFile)
	if err != nil {
		return nil, fmt.Errorf("toottls: reading cert file: %w", err)
	}
	keyPEM, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("toottls: reading key file: %w", err)
	}

	if cfg.KeyPassword != "" {
		return nil, fmt.Errorf("toottls: encrypted private keys are not supported (crypto/x509 removed legacy PEM decryption; provide an unencrypted key)")
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("toottls: loading key pair: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
