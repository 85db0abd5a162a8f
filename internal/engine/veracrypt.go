// Package engine drives the VeraCrypt command line in text mode.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/nace/vcmounter/internal/system"
)

// ErrNotMapped is returned by Properties when the engine knows nothing
// about the device
var ErrNotMapped = errors.New("volume not mapped")

// VeraCrypt runs the engine executable
type VeraCrypt struct {
	runner system.Runner
	app    string
	user   string
}

// NewVeraCrypt creates a new engine adapter. Map calls run as user.
func NewVeraCrypt(runner system.Runner, app, user string) *VeraCrypt {
	return &VeraCrypt{
		runner: runner,
		app:    app,
		user:   user,
	}
}

// Map decrypts req.Device into a virtual device without mounting it
func (v *VeraCrypt) Map(req MapRequest) error {
	input := req.Input()
	defer system.Zero(input)

	_, err := v.runner.Exec(system.Command{
		Name:  v.app,
		Args:  req.Args(),
		Stdin: bytes.NewReader(input),
		User:  v.user,
	})
	if err != nil {
		return fmt.Errorf("failed to map %s: %w", req.Device, err)
	}
	return nil
}

// Properties queries the engine about one device
func (v *VeraCrypt) Properties(device string) (Properties, error) {
	out, err := v.runner.Exec(system.Command{
		Name: v.app,
		Args: []string{"-t", "--volume-properties", device},
	})
	if err != nil || strings.TrimSpace(out) == "" {
		return Properties{}, ErrNotMapped
	}
	return ParseProperties(out), nil
}

// Dismount unmaps one device. With force the engine unmaps even when the
// filesystem is busy.
func (v *VeraCrypt) Dismount(device string, force bool) error {
	_, err := v.runner.Exec(system.Command{
		Name: v.app,
		Args: DismountArgs(device, force),
	})
	if err != nil {
		return fmt.Errorf("failed to dismount %s: %w", device, err)
	}
	return nil
}

// DismountAll unmaps every volume the engine manages
func (v *VeraCrypt) DismountAll(force bool) error {
	_, err := v.runner.Exec(system.Command{
		Name: v.app,
		Args: DismountArgs("", force),
	})
	if err != nil {
		return fmt.Errorf("failed to dismount volumes: %w", err)
	}
	return nil
}

// List returns the engine's listing of mapped volumes
func (v *VeraCrypt) List() (string, error) {
	out, err := v.runner.Exec(system.Command{
		Name: v.app,
		Args: []string{"-t", "-l"},
	})
	if err != nil {
		// "No volumes mounted." comes back with a non-zero status
		if strings.TrimSpace(out) == "" {
			return "", nil
		}
		return "", fmt.Errorf("failed to list volumes: %w", err)
	}
	return strings.TrimSpace(out), nil
}
