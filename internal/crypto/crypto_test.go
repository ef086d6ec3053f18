package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	k1, err := DeriveKey("short secret")
	require.NoError(t, err)
	assert.Len(t, k1, 32)

	k2, err := DeriveKey("short secret")
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "derivation is deterministic")

	k3, err := DeriveKey("another secret")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	_, err = DeriveKey("")
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := DeriveKey("test secret")
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)

	plaintext := "today I wrote about the signal beneath the desire"
	ciphertext, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := c.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptEmptyStringPassesThrough(t *testing.T) {
	key, _ := DeriveKey("test secret")
	c, _ := NewCipher(key)

	out, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	key, _ := DeriveKey("test secret")
	c, _ := NewCipher(key)

	ciphertext, err := c.Encrypt("secret entry")
	require.NoError(t, err)

	flip := byte('A')
	if ciphertext[0] == 'A' {
		flip = 'B'
	}
	tampered := string(flip) + ciphertext[1:]
	_, err = c.Decrypt(tampered)
	assert.Error(t, err)
}

func TestNewCipherRejectsBadKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("too short"))
	assert.Error(t, err)
}
