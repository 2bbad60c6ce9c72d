package integration

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	creds := Credentials{"propertyId": "123456", "accessToken": "secret-token"}
	encrypted, err := c.EncryptCredentials(creds)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "secret-token")

	decrypted, err := c.DecryptCredentials(encrypted)
	require.NoError(t, err)
	assert.Equal(t, creds, decrypted)
}

func TestCipherUsesFreshNoncePerEncryption(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	creds := Credentials{"accessToken": "same"}
	first, err := c.EncryptCredentials(creds)
	require.NoError(t, err)
	second, err := c.EncryptCredentials(creds)
	require.NoError(t, err)

	// Same plaintext must never produce the same ciphertext.
	assert.NotEqual(t, first, second)
}

func TestCipherAcceptsBase64Key(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(testKey))
	c, err := NewCipher(encoded)
	require.NoError(t, err)

	encrypted, err := c.EncryptCredentials(Credentials{"k": "v"})
	require.NoError(t, err)
	decrypted, err := c.DecryptCredentials(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "v", decrypted["k"])
}

func TestCipherRejectsBadKeyLength(t *testing.T) {
	_, err := NewCipher("too-short")
	assert.Error(t, err)
}

func TestCipherDetectsTampering(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	encrypted, err := c.EncryptCredentials(Credentials{"accessToken": "tok"})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = c.DecryptCredentials(tampered)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "decrypt"))
}

func TestCipherRejectsGarbage(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	_, err = c.DecryptCredentials("not-base64!!!")
	assert.Error(t, err)

	_, err = c.DecryptCredentials(base64.StdEncoding.EncodeToString([]byte("tiny")))
	assert.Error(t, err)
}
