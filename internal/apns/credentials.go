// Package apns signs provider JWTs and delivers background push
// notifications to Apple's push gateway.
package apns

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/cesargomez89/xcc-relay/internal/config"
	"github.com/cesargomez89/xcc-relay/internal/constants"
)

// Credentials holds the provider-authentication material loaded once at
// startup and shared read-only for the process lifetime.
type Credentials struct {
	TeamID        string
	KeyID         string
	PrivateKeyPEM string
	Passphrase    string
	Host          string
}

// LoadCredentials assembles APNs credentials from configuration. A missing
// required field returns nil without error: push dispatch degrades to a
// no-op rather than failing the service.
func LoadCredentials(cfg *config.Config) (*Credentials, error) {
	keyPEM := cfg.APNSPrivateKeyPEM
	if keyPEM == "" && cfg.APNSPrivateKeyPath != "" {
		contents, err := os.ReadFile(cfg.APNSPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read APNs private key file: %w", err)
		}
		keyPEM = strings.TrimSpace(string(contents))
	}

	if cfg.APNSTeamID == "" || cfg.APNSKeyID == "" || keyPEM == "" {
		return nil, nil
	}

	host := constants.APNSProductionHost
	if cfg.APNSUseSandbox {
		host = constants.APNSSandboxHost
	}

	return &Credentials{
		TeamID:        cfg.APNSTeamID,
		KeyID:         cfg.APNSKeyID,
		PrivateKeyPEM: keyPEM,
		Passphrase:    cfg.APNSPrivateKeyPassphrase,
		Host:          host,
	}, nil
}

// privateKey parses the PEM-encoded ES256 signing key. Apple ships .p8 keys
// as unencrypted PKCS#8; legacy passphrase-protected EC keys are handled for
// parity with older deployments.
func (c *Credentials) privateKey() (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(c.PrivateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("failed to decode APNs private key PEM")
	}

	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // legacy encrypted PEM support
		if c.Passphrase == "" {
			return nil, fmt.Errorf("APNs private key is encrypted but no passphrase configured")
		}
		decrypted, err := x509.DecryptPEMBlock(block, []byte(c.Passphrase)) //nolint:staticcheck // legacy encrypted PEM support
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt APNs private key: %w", err)
		}
		der = decrypted
	}

	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("APNs private key is not an ECDSA key")
		}
		return ecKey, nil
	}

	key, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs private key: %w", err)
	}
	return key, nil
}
