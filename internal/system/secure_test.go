package system

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureBuffer_SetAndWipe(t *testing.T) {
	b := NewSecureBuffer()
	defer b.Destroy()

	assert.True(t, b.Empty())

	secret := []byte("correct horse battery staple")
	require.NoError(t, b.Set(secret))
	assert.Equal(t, secret, b.Bytes())
	assert.Equal(t, len(secret), b.Len())

	// Keep a view onto the backing array to prove the wipe is in place
	backing := b.data
	b.Wipe()

	assert.True(t, b.Empty())
	assert.False(t, bytes.Contains(backing, secret))
	assert.Equal(t, bytes.Repeat([]byte{filler}, SecureBufferSize), backing)
}

func TestSecureBuffer_SetReusesBackingArray(t *testing.T) {
	b := NewSecureBuffer()
	defer b.Destroy()

	backing := &b.data[0]
	require.NoError(t, b.Set([]byte("first")))
	require.NoError(t, b.Set([]byte("second")))

	assert.Same(t, backing, &b.data[0])
	assert.Equal(t, "second", string(b.Bytes()))
	// no residue of the longer earlier value past the new length
	assert.Equal(t, byte(filler), b.data[len("second")])
}

func TestSecureBuffer_TooLong(t *testing.T) {
	b := NewSecureBuffer()
	defer b.Destroy()

	err := b.Set(make([]byte, SecureBufferSize+1))
	assert.ErrorIs(t, err, ErrSecretTooLong)
	assert.True(t, b.Empty())
}

func TestSecureBuffer_NilSafe(t *testing.T) {
	var b *SecureBuffer
	assert.Nil(t, b.Bytes())
	assert.Equal(t, 0, b.Len())
	b.Wipe()
	b.Destroy()
}

func TestZero(t *testing.T) {
	p := []byte("secret")
	Zero(p)
	assert.Equal(t, make([]byte, 6), p)
}
