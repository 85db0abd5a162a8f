// Package host wraps the OS primitives the volume lifecycle depends on:
// mounts, swap, NFS exports, services, holders, loop devices, fsck and
// disk power.
package host

import (
	"fmt"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/nace/vcmounter/internal/system"
)

// MountManager handles filesystem mount operations
type MountManager struct {
	runner system.Runner
}

// NewMountManager creates a new mount manager
func NewMountManager(runner system.Runner) *MountManager {
	return &MountManager{
		runner: runner,
	}
}

// Mount mounts a device to an existing mount point
func (m *MountManager) Mount(device, mountPoint string, options []string) error {
	args := []string{}
	if len(options) > 0 {
		args = append(args, "-o", strings.Join(options, ","))
	}
	args = append(args, device, mountPoint)

	if _, err := system.RunWith(m.runner, "mount", args...); err != nil {
		return fmt.Errorf("failed to mount %s to %s: %w", device, mountPoint, err)
	}
	return nil
}

// RemountReadOnly remounts the filesystem on device read-only so that
// nothing new can be written while it is being torn down
func (m *MountManager) RemountReadOnly(device string) error {
	if _, err := system.RunWith(m.runner, "mount", "-o", "remount,ro", device); err != nil {
		return fmt.Errorf("failed to remount %s read-only: %w", device, err)
	}
	return nil
}

// IsMounted reports whether path is a mount point. Errors (a path that
// does not exist) count as not mounted.
func (m *MountManager) IsMounted(path string) bool {
	mounted, err := mountinfo.Mounted(path)
	return err == nil && mounted
}
