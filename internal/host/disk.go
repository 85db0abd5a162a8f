package host

import (
	"fmt"
	"time"

	"github.com/nace/vcmounter/internal/system"
	"golang.org/x/sys/unix"
)

// SpinDownDelay lets the unmap settle before the disk is put to sleep
const SpinDownDelay = 2 * time.Second

// DiskManager flushes and powers down disks
type DiskManager struct {
	runner system.Runner
	sleep  func(time.Duration)
}

// NewDiskManager creates a new disk manager
func NewDiskManager(runner system.Runner) *DiskManager {
	return &DiskManager{
		runner: runner,
		sleep:  time.Sleep,
	}
}

// Sync flushes pending writes of all filesystems
func (m *DiskManager) Sync() {
	unix.Sync()
}

// SpinDown puts the disk behind device into standby. Anything that is not
// a block device (a file container) is ignored.
func (m *DiskManager) SpinDown(device string) error {
	if !system.IsBlockDevice(device) {
		return nil
	}
	m.sleep(SpinDownDelay)
	if _, err := system.RunWith(m.runner, "hdparm", "-y", device); err != nil {
		return fmt.Errorf("failed to spin down %s: %w", device, err)
	}
	return nil
}
