package integration

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Cipher encrypts provider credentials at rest with AES-256-GCM. A fresh
// nonce is generated per encryption and prepended to the ciphertext.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key, accepted raw or
// base64-encoded.
func NewCipher(key string) (*Cipher, error) {
	keyBytes := []byte(key)
	if len(keyBytes) != 32 {
		decoded, err := base64.StdEncoding.DecodeString(key)
		if err != nil || len(decoded) != 32 {
			return nil, errors.New("credential encryption key must be 32 bytes (raw or base64)")
		}
		keyBytes = decoded
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// EncryptCredentials serializes and encrypts a credential set.
func (c *Cipher) EncryptCredentials(creds Credentials) (string, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptCredentials reverses EncryptCredentials.
func (c *Cipher) DecryptCredentials(encrypted string) (Credentials, error) {
	sealed, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("malformed encrypted credentials: %w", err)
	}
	if len(sealed) < c.aead.NonceSize() {
		return nil, errors.New("malformed encrypted credentials: too short")
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}
