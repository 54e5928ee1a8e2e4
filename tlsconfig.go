package toot

import "path/filepath"

// TLSConfig is the immutable certificate/key triple an Acceptor wraps
// its listener with. Paths are canonicalized at construction so a
// relative path given at startup survives a later working-directory
// change.
type TLSConfig struct {
	CertFile    string
	KeyFile     string
	KeyPassword string
}

// NewTLSConfig canonicalizes certFile/keyFile and returns a TLSConfig.
func NewTLSConfig(certFile, keyFile, keyPassword string) (TLSConfig, error) {
	cert, err := filepath.Abs(certFile)
	if err != nil {
		return TLSConfig{}, err
	}
	key, err := filepath.Abs(keyFile)
	if err != nil {
		return TLSConfig{}, err
	}
	return TLSConfig{CertFile: cert, KeyFile: key, KeyPassword: keyPassword}, nil
}
