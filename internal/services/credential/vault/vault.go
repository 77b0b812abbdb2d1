package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/hookflow/hookflow/internal/domain/credential"
)

// Vault encrypts credential secrets at rest with AES-256-GCM.
type Vault struct {
	key []byte
}

func New(key string) (*Vault, error) {
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}
	return &Vault{key: []byte(key)}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (v *Vault) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// EncryptCredential seals the platform's secret field in place.
func (v *Vault) EncryptCredential(cred *credential.Credential) error {
	field := credential.SecretField(cred.Platform)
	if field == "" {
		return nil
	}
	secret, ok := cred.Data[field].(string)
	if !ok || secret == "" {
		return nil
	}

	encrypted, err := v.Encrypt(secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", field, err)
	}
	cred.Data[field] = encrypted
	cred.Data["encrypted"] = true
	return nil
}

// DecryptCredential opens the platform's secret field in place.
// Records written before encryption was introduced pass through untouched.
func (v *Vault) DecryptCredential(cred *credential.Credential) error {
	if encrypted, ok := cred.Data["encrypted"].(bool); !ok || !encrypted {
		return nil
	}

	field := credential.SecretField(cred.Platform)
	if field == "" {
		return nil
	}
	sealed, ok := cred.Data[field].(string)
	if !ok {
		return nil
	}

	secret, err := v.Decrypt(sealed)
	if err != nil {
		return fmt.Errorf("failed to decrypt %s: %w", field, err)
	}
	cred.Data[field] = secret
	cred.Data["encrypted"] = false
	return nil
}
