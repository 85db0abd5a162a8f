package system

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
)

// SafeDir is the working directory held while volumes are handled
const SafeDir = "/"

// ErrNotRoot is returned by RequireRoot for unprivileged callers
var ErrNotRoot = errors.New("this command must be run as root (try with sudo)")

// IsRoot checks if running as root
func IsRoot() bool {
	return os.Geteuid() == 0
}

// RequireRoot ensures the program is running as root
func RequireRoot() error {
	if !IsRoot() {
		return ErrNotRoot
	}
	return nil
}

// IgnoreInterrupt makes the process deaf to Ctrl-C so a map or unmap
// sequence is never left half done.
func IgnoreInterrupt() {
	signal.Ignore(os.Interrupt)
}

// EnterSafeDir moves the process out of any mount point it was started
// in. A cwd under a mount point makes the process a holder that the
// forced teardown would kill.
func EnterSafeDir() error {
	if err := os.Chdir(SafeDir); err != nil {
		return fmt.Errorf("failed to change directory to %s: %w", SafeDir, err)
	}
	return nil
}
