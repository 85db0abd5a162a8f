package volume

import (
	"github.com/nace/vcmounter/internal/system"
)

// Credentials holds the secrets for one session. Every field lives in a
// SecureBuffer that is overwritten in place, never replaced.
type Credentials struct {
	password *system.SecureBuffer
	pim      *system.SecureBuffer
	hash     *system.SecureBuffer
	cipher   *system.SecureBuffer
}

// NewCredentials allocates empty credentials
func NewCredentials() *Credentials {
	return &Credentials{
		password: system.NewSecureBuffer(),
		pim:      system.NewSecureBuffer(),
		hash:     system.NewSecureBuffer(),
		cipher:   system.NewSecureBuffer(),
	}
}

// Empty reports whether the credentials must be acquired first
func (c *Credentials) Empty() bool {
	return c.password.Empty()
}

// SetPassword copies p in; the caller zeroes p
func (c *Credentials) SetPassword(p []byte) error { return c.password.Set(p) }

// SetPIM copies p in; the caller zeroes p
func (c *Credentials) SetPIM(p []byte) error { return c.pim.Set(p) }

// SetHash stores the hash algorithm name, empty for the engine default
func (c *Credentials) SetHash(name string) error { return c.hash.Set([]byte(name)) }

// SetCipher stores the encryption algorithm name, empty for the engine default
func (c *Credentials) SetCipher(name string) error { return c.cipher.Set([]byte(name)) }

// Password returns a view of the password; do not retain it
func (c *Credentials) Password() []byte { return c.password.Bytes() }

// PIM returns a view of the PIM; do not retain it
func (c *Credentials) PIM() []byte { return c.pim.Bytes() }

// Hash returns the selected hash algorithm
func (c *Credentials) Hash() string { return string(c.hash.Bytes()) }

// Cipher returns the selected encryption algorithm
func (c *Credentials) Cipher() string { return string(c.cipher.Bytes()) }

// Wipe overwrites every field in place
func (c *Credentials) Wipe() {
	c.password.Wipe()
	c.pim.Wipe()
	c.hash.Wipe()
	c.cipher.Wipe()
}

// Destroy wipes and unlocks the buffers. The credentials are unusable after.
func (c *Credentials) Destroy() {
	c.password.Destroy()
	c.pim.Destroy()
	c.hash.Destroy()
	c.cipher.Destroy()
}
