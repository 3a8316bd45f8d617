package keygen

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// KeyPair holds an SSH key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is the PEM-encoded private key.
	PrivateKey []byte
	// PublicKey is the public key in OpenSSH authorized_keys format.
	PublicKey []byte

	signer ssh.Signer
}

// Signer returns the parsed private key.
func (k *KeyPair) Signer() ssh.Signer {
	return k.signer
}

// GenerateRSAKeyPair generates a new RSA key pair with the specified bit size.
func GenerateRSAKeyPair(bits int) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}
	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	return newKeyPair(privateKey, privateKeyPEM)
}

// GenerateEd25519KeyPair generates a new Ed25519 key pair in OpenSSH
// private key format.
func GenerateEd25519KeyPair(comment string) (*KeyPair, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Ed25519 private key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(privateKey, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Ed25519 private key: %w", err)
	}
	return newKeyPair(privateKey, pem.EncodeToMemory(block))
}

func newKeyPair(privateKey interface{}, privateKeyPEM []byte) (*KeyPair, error) {
	signer, err := ssh.NewSignerFromKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH signer: %w", err)
	}

	return &KeyPair{
		PrivateKey: privateKeyPEM,
		PublicKey:  ssh.MarshalAuthorizedKey(signer.PublicKey()),
		signer:     signer,
	}, nil
}

// WriteFiles writes the private key to dir/name with mode 0600 and the
// public key to dir/name.pub. It returns the private key path.
func (k *KeyPair) WriteFiles(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, k.PrivateKey, 0o600); err != nil {
		return "", fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(path+".pub", k.PublicKey, 0o600); err != nil {
		return "", fmt.Errorf("failed to write public key: %w", err)
	}
	return path, nil
}
