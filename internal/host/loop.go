package host

import (
	"fmt"
	"os"

	"github.com/nace/vcmounter/internal/system"
	"golang.org/x/sys/unix"
)

// LoopManager handles loop device operations
type LoopManager struct {
	runner system.Runner
}

// NewLoopManager creates a new loop manager
func NewLoopManager(runner system.Runner) *LoopManager {
	return &LoopManager{
		runner: runner,
	}
}

// Detach detaches a loop device. A missing node or an already detached
// device is not an error. When the ioctl is refused it falls back to
// losetup.
func (m *LoopManager) Detach(device string) error {
	if device == "" {
		return nil
	}
	if _, err := os.Stat(device); os.IsNotExist(err) {
		return nil
	}

	err := clearLoopFd(device)
	if err == nil {
		return nil
	}

	if _, lerr := system.RunWith(m.runner, "losetup", "--detach", device); lerr != nil {
		return fmt.Errorf("failed to detach loop device %s: %v; %w", device, err, lerr)
	}
	return nil
}

func clearLoopFd(device string) error {
	fd, err := unix.Open(device, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open loop device %s: %w", device, err)
	}
	defer unix.Close(fd)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.LOOP_CLR_FD, 0)
	// ENXIO: device not configured
	if errno != 0 && errno != unix.ENXIO {
		return fmt.Errorf("LOOP_CLR_FD failed for %s: %w", device, errno)
	}
	return nil
}
