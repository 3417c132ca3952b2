package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", testEncryptionKey)

	encrypted, err := EncryptToken("my-reddit-access-token")
	require.NoError(t, err)
	assert.NotEqual(t, "my-reddit-access-token", encrypted)

	decrypted, err := DecryptToken(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "my-reddit-access-token", decrypted)
}

func TestEncryptProducesDistinctCiphertexts(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", testEncryptionKey)

	a, err := EncryptToken("same-token")
	require.NoError(t, err)
	b, err := EncryptToken("same-token")
	require.NoError(t, err)
	// Random nonce per call.
	assert.NotEqual(t, a, b)
}

func TestEncryptRejectsWrongKeyLength(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "too-short")

	_, err := EncryptToken("token")
	assert.ErrorIs(t, err, errInvalidEncryptionKeyLength)

	_, err = DecryptToken("whatever")
	assert.ErrorIs(t, err, errInvalidEncryptionKeyLength)
}

func TestNoKeyPassesTokenThrough(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")

	encrypted, err := EncryptToken("plain-token")
	require.NoError(t, err)
	assert.Equal(t, "plain-token", encrypted)

	decrypted, err := DecryptToken("plain-token")
	require.NoError(t, err)
	assert.Equal(t, "plain-token", decrypted)
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", testEncryptionKey)

	_, err := DecryptToken("not base64!!!")
	assert.Error(t, err)

	_, err = DecryptToken("dG9vc2hvcnQ=")
	assert.ErrorIs(t, err, errCiphertextTooShort)
}
