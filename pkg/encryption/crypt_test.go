package encryption_test

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geobridge/geo-agent/pkg/encryption"
	"github.com/geobridge/geo-agent/pkg/file"
)

func writeKeyFile(t *testing.T, size int) string {
	t.Helper()
	key := make([]byte, size)
	_, err := rand.Read(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "aes.key")
	require.NoError(t, os.WriteFile(path, key, 0600))
	return path
}

func TestEncryptionManager_RoundTrip(t *testing.T) {
	manager := encryption.NewEncryptionManager(file.NewFileService())
	require.NoError(t, manager.Initialize(writeKeyFile(t, 32)))

	plaintext := []byte(`{"jwt_token":"abc","refresh_token":"def"}`)

	ciphertext, err := manager.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := manager.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptionManager_RejectsTamperedCiphertext(t *testing.T) {
	manager := encryption.NewEncryptionManager(file.NewFileService())
	require.NoError(t, manager.Initialize(writeKeyFile(t, 32)))

	ciphertext, err := manager.Encrypt([]byte("payload"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xFF
	_, err = manager.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestEncryptionManager_RejectsInvalidKeySize(t *testing.T) {
	manager := encryption.NewEncryptionManager(file.NewFileService())
	err := manager.Initialize(writeKeyFile(t, 16))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid AES key size")
}

func TestEncryptionManager_RequiresInitialization(t *testing.T) {
	manager := encryption.NewEncryptionManager(file.NewFileService())

	_, err := manager.Encrypt([]byte("payload"))
	assert.Error(t, err)

	_, err = manager.Decrypt(make([]byte, 32))
	assert.Error(t, err)
}
