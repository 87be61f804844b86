package geolocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidMAC(t *testing.T) {
	assert.True(t, isValidMAC("00:14:22:01:23:45"))
	assert.True(t, isValidMAC("AA:BB:CC:DD:EE:FF"))

	assert.False(t, isValidMAC(""))
	assert.False(t, isValidMAC("00:14:22:01:23"))
	assert.False(t, isValidMAC("00:14:22:01:23:45:67"))
	assert.False(t, isValidMAC("00:14:22:01:23:GG"))
	assert.False(t, isValidMAC("0:14:22:01:23:45"))
}
