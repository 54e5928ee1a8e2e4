package toottls

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// generateSelfSignedPair writes a throwaway self-signed cert/key pair
// to dir, the same rsa.GenerateKey/x509.CreateCertificate/pem.Encode
// sequence the rawhttp test suite uses to stand up TLS fixtures.
func generateSelfSignedPair(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "toottls-test"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return certPath, keyPath
}

func TestBuildValidPair(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := generateSelfSignedPair(t, dir)

	w := NewWrapper(nil)
	cfg, err := w.Build(Config{CertFile: certPath, KeyFile: keyPath})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Fatalf("Certificates = %d, want 1", len(cfg.Certificates))
	}
}

func TestBuildMissingFilesFails(t *testing.T) {
	w := NewWrapper(nil)
	if _, err := w.Build(Config{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}); err == nil {
		t.Fatal("expected an error for nonexistent cert/key files")
	}
}

func TestBuildRejectsEncryptedKey(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := generateSelfSignedPair(t, dir)

	w := NewWrapper(nil)
	_, err := w.Build(Config{CertFile: certPath, KeyFile: keyPath, KeyPassword: "secret"})
	if err == nil {
		t.Fatal("expected error for encrypted key password")
	}
}
