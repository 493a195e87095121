package credentials

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x2a}, 32)
}

func TestNewCipherKeyLength(t *testing.T) {
	_, err := NewCipher(make([]byte, 16))
	require.Error(t, err)

	_, err = NewCipher(nil)
	require.Error(t, err)

	c, err := NewCipher(testKey())
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	value, err := c.Encrypt([]byte("ya29.access-token-value"))
	require.NoError(t, err)

	plain, err := c.Decrypt(value)
	require.NoError(t, err)
	require.Equal(t, "ya29.access-token-value", string(plain))
}

func TestEncryptWireFormat(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	value, err := c.Encrypt([]byte("secret"))
	require.NoError(t, err)

	parts := strings.Split(value, ":")
	require.Len(t, parts, 2)

	nonce, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	require.Len(t, nonce, 12)

	_, err = hex.DecodeString(parts[1])
	require.NoError(t, err)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	first, err := c.Encrypt([]byte("secret"))
	require.NoError(t, err)
	second, err := c.Encrypt([]byte("secret"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestDecryptMalformed(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	for _, value := range []string{
		"",
		"no-separator",
		"zz:00",
		"00:zz",
		"00:0000",
	} {
		_, err := c.Decrypt(value)
		require.ErrorIs(t, err, ErrMalformedCiphertext, value)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	c1, err := NewCipher(testKey())
	require.NoError(t, err)
	c2, err := NewCipher(bytes.Repeat([]byte{0x3b}, 32))
	require.NoError(t, err)

	value, err := c1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = c2.Decrypt(value)
	require.Error(t, err)
}

func TestDecryptTamperedPayloadFails(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	value, err := c.Encrypt([]byte("secret"))
	require.NoError(t, err)

	parts := strings.SplitN(value, ":", 2)
	payload, err := hex.DecodeString(parts[1])
	require.NoError(t, err)
	payload[0] ^= 0xff
	tampered := parts[0] + ":" + hex.EncodeToString(payload)

	_, err = c.Decrypt(tampered)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMalformedCiphertext)
}
