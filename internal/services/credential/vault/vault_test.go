package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookflow/hookflow/internal/domain/credential"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestVaultRoundTrip(t *testing.T) {
	v, err := New(testKey)
	require.NoError(t, err)

	ciphertext, err := v.Encrypt("super-secret-token")
	require.NoError(t, err)
	assert.NotEqual(t, "super-secret-token", ciphertext)

	plaintext, err := v.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-token", plaintext)
}

func TestVaultRejectsShortKey(t *testing.T) {
	_, err := New("too-short")
	assert.Error(t, err)
}

func TestVaultDecryptGarbage(t *testing.T) {
	v, err := New(testKey)
	require.NoError(t, err)

	_, err = v.Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = v.Decrypt("YWJj") // valid base64, too short for a nonce
	assert.Error(t, err)
}

func TestEncryptCredential(t *testing.T) {
	v, err := New(testKey)
	require.NoError(t, err)

	cred := credential.New("my bot", credential.PlatformTelegram, "user-1", map[string]interface{}{
		"botToken": "123:abc",
	})

	require.NoError(t, v.EncryptCredential(cred))
	assert.NotEqual(t, "123:abc", cred.Data["botToken"])
	assert.Equal(t, true, cred.Data["encrypted"])

	require.NoError(t, v.DecryptCredential(cred))
	assert.Equal(t, "123:abc", cred.Data["botToken"])
	assert.Equal(t, false, cred.Data["encrypted"])
}

func TestDecryptCredentialPlainRecord(t *testing.T) {
	v, err := New(testKey)
	require.NoError(t, err)

	cred := credential.New("legacy", credential.PlatformEmail, "user-1", map[string]interface{}{
		"apiKey": "re_plain",
	})

	// No encrypted marker, data passes through unchanged.
	require.NoError(t, v.DecryptCredential(cred))
	assert.Equal(t, "re_plain", cred.Data["apiKey"])
}
