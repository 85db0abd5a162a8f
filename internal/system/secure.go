package system

import (
	"crypto/rand"
	"errors"

	"golang.org/x/sys/unix"
)

// SecureBufferSize is the fixed capacity of every SecureBuffer.
const SecureBufferSize = 256

// ErrSecretTooLong is returned when a value does not fit in a SecureBuffer.
var ErrSecretTooLong = errors.New("secret exceeds buffer capacity")

// filler is what an empty buffer holds, never anything secret
const filler = ' '

// SecureBuffer is a fixed-capacity byte buffer for secrets. The backing
// array is allocated once and only ever overwritten in place, so wiping it
// leaves no copy of the secret behind that this package knows about.
type SecureBuffer struct {
	data   []byte
	n      int
	locked bool
}

// NewSecureBuffer allocates a buffer filled with non-secret filler and
// tries to lock it into memory so it is never swapped out.
func NewSecureBuffer() *SecureBuffer {
	b := &SecureBuffer{data: make([]byte, SecureBufferSize)}
	for i := range b.data {
		b.data[i] = filler
	}
	// Mlock fails without CAP_IPC_LOCK or over RLIMIT_MEMLOCK; keep going unlocked
	b.locked = unix.Mlock(b.data) == nil
	return b
}

// Set copies src into the buffer. src is left untouched; callers own it
// and should zero it themselves.
func (b *SecureBuffer) Set(src []byte) error {
	if len(src) > len(b.data) {
		return ErrSecretTooLong
	}
	b.Wipe()
	copy(b.data, src)
	b.n = len(src)
	return nil
}

// Bytes returns a view of the current value. The slice aliases the
// buffer, so it becomes filler after Wipe. Do not retain it.
func (b *SecureBuffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data[:b.n]
}

// Len returns the length of the current value.
func (b *SecureBuffer) Len() int {
	if b == nil {
		return 0
	}
	return b.n
}

// Empty reports whether the buffer holds no value.
func (b *SecureBuffer) Empty() bool {
	return b.Len() == 0
}

// Wipe overwrites the whole buffer with random bytes, then with filler.
func (b *SecureBuffer) Wipe() {
	if b == nil || b.data == nil {
		return
	}
	if _, err := rand.Read(b.data); err != nil {
		Zero(b.data)
	}
	for i := range b.data {
		b.data[i] = filler
	}
	b.n = 0
}

// Destroy wipes the buffer and releases the memory lock.
func (b *SecureBuffer) Destroy() {
	if b == nil || b.data == nil {
		return
	}
	b.Wipe()
	if b.locked {
		_ = unix.Munlock(b.data)
		b.locked = false
	}
}

// Zero overwrites p with zeros.
func Zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
