package jwt_test

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	jwtLib "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geobridge/geo-agent/pkg/encryption"
	"github.com/geobridge/geo-agent/pkg/file"
	"github.com/geobridge/geo-agent/pkg/jwt"
)

type jwtTestEnv struct {
	manager    jwt.JWTManagerInterface
	secret     []byte
	tokenFile  string
	secretFile string
}

func newJWTTestEnv(t *testing.T) *jwtTestEnv {
	t.Helper()
	dir := t.TempDir()

	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	secretFile := filepath.Join(dir, "jwt_secret.key")
	require.NoError(t, os.WriteFile(secretFile, secret, 0600))

	aesKey := make([]byte, 32)
	_, err = rand.Read(aesKey)
	require.NoError(t, err)
	aesKeyFile := filepath.Join(dir, "aes.key")
	require.NoError(t, os.WriteFile(aesKeyFile, aesKey, 0600))

	fileClient := file.NewFileService()
	encryptionManager := encryption.NewEncryptionManager(fileClient)
	require.NoError(t, encryptionManager.Initialize(aesKeyFile))

	tokenFile := filepath.Join(dir, "tokens.bin")
	manager := jwt.NewJWTManager(tokenFile, fileClient, encryptionManager)
	require.NoError(t, manager.Initialize(secretFile))

	return &jwtTestEnv{
		manager:    manager,
		secret:     secret,
		tokenFile:  tokenFile,
		secretFile: secretFile,
	}
}

func (e *jwtTestEnv) signToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	token := jwtLib.NewWithClaims(jwtLib.SigningMethodHS256, jwtLib.MapClaims{
		"sub": "test-device",
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString(e.secret)
	require.NoError(t, err)
	return signed
}

func TestJWTManager_SaveAndValidate(t *testing.T) {
	env := newJWTTestEnv(t)
	signed := env.signToken(t, time.Hour)

	require.NoError(t, env.manager.SaveJWT(signed))

	isValid, err := env.manager.IsJWTValid()
	require.NoError(t, err)
	assert.True(t, isValid)
	assert.Equal(t, signed, env.manager.GetJWT())

	// The token file must not hold the token in cleartext
	raw, err := os.ReadFile(env.tokenFile)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), signed)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	env := newJWTTestEnv(t)
	expired := env.signToken(t, -time.Hour)

	// Signature validation during save already rejects expired tokens
	err := env.manager.SaveJWT(expired)
	assert.Error(t, err)
}

func TestJWTManager_RejectsForeignSignature(t *testing.T) {
	env := newJWTTestEnv(t)

	foreign := jwtLib.NewWithClaims(jwtLib.SigningMethodHS256, jwtLib.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := foreign.SignedString([]byte("some-other-secret-entirely-here"))
	require.NoError(t, err)

	assert.Error(t, env.manager.SaveJWT(signed))
}

func TestJWTManager_PersistsAcrossInstances(t *testing.T) {
	env := newJWTTestEnv(t)
	signed := env.signToken(t, time.Hour)

	require.NoError(t, env.manager.SaveJWT(signed))
	require.NoError(t, env.manager.SaveRefreshToken("refresh-token-value"))

	fileClient := file.NewFileService()
	encryptionManager := encryption.NewEncryptionManager(fileClient)
	aesKeyFile := filepath.Join(filepath.Dir(env.tokenFile), "aes.key")
	require.NoError(t, encryptionManager.Initialize(aesKeyFile))

	reloaded := jwt.NewJWTManager(env.tokenFile, fileClient, encryptionManager)
	require.NoError(t, reloaded.Initialize(env.secretFile))

	assert.Equal(t, signed, reloaded.GetJWT())
	refreshToken, err := reloaded.GetRefreshToken()
	require.NoError(t, err)
	assert.Equal(t, "refresh-token-value", refreshToken)
}

func TestJWTManager_EmptyStateIsInvalid(t *testing.T) {
	env := newJWTTestEnv(t)

	isValid, err := env.manager.IsJWTValid()
	require.NoError(t, err)
	assert.False(t, isValid)
	assert.Empty(t, env.manager.GetJWT())
}
