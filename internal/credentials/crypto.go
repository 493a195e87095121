package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Cipher encrypts and decrypts token payloads with AES-256-GCM.
// The wire format is "iv:payload", both parts hex encoded, so stored
// values are printable and the nonce travels with the ciphertext.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("cipher key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(value string) ([]byte, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return nil, ErrMalformedCiphertext
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, ErrMalformedCiphertext
	}
	sealed, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, ErrMalformedCiphertext
	}
	if len(nonce) != c.aead.NonceSize() {
		return nil, ErrMalformedCiphertext
	}
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt token: %w", err)
	}
	return plaintext, nil
}
